package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/commands"
)

// ParseError means neither parse phase found a JSON object in the output.
type ParseError struct {
	Output  string
	Strict  error
	Lenient error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON object in model output (strict: %v; lenient: %v)", e.Strict, e.Lenient)
}

var errNoObject = errors.New("no balanced object found")

// ParseParameters decodes the extraction output: ParseStrict first, then
// ExtractFirstObject. It returns *ParseError when both fail.
func ParseParameters(output string) (map[string]any, error) {
	obj, strictErr := ParseStrict(output)
	if strictErr == nil {
		return obj, nil
	}
	obj, lenientErr := ExtractFirstObject(output)
	if lenientErr == nil {
		return obj, nil
	}
	return nil, &ParseError{Output: output, Strict: strictErr, Lenient: lenientErr}
}

// ParseStrict decodes output as a single JSON object. A surrounding Markdown
// code fence is allowed; any other text is not.
func ParseStrict(output string) (map[string]any, error) {
	s := stripFence(strings.TrimSpace(output))
	if s == "" {
		return nil, errors.New("empty output")
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("output is null, not an object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return normalizeNumbers(obj), nil
}

// ExtractFirstObject returns the first brace-delimited substring of output
// that decodes as a JSON object. Braces inside JSON strings are respected.
func ExtractFirstObject(output string) (map[string]any, error) {
	for start := strings.IndexByte(output, '{'); start >= 0; {
		if end := matchBrace(output, start); end > start {
			dec := json.NewDecoder(strings.NewReader(output[start : end+1]))
			dec.UseNumber()
			var obj map[string]any
			if err := dec.Decode(&obj); err == nil && obj != nil {
				return normalizeNumbers(obj), nil
			}
		}
		next := strings.IndexByte(output[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, errNoObject
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := s[3 : len(s)-3]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string ("json") on the opening line.
		if !strings.ContainsAny(body[:nl], "{[\"") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

// normalizeNumbers converts json.Number to int64 when integral and float64
// otherwise, so validation sees ordinary Go numbers.
func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return normalizeNumbers(x)
	case []any:
		for i := range x {
			x[i] = normalizeValue(x[i])
		}
		return x
	default:
		return v
	}
}

var tokenPattern = regexp.MustCompile(`[A-Za-z]+(?:[_\- ][A-Za-z]+)*`)

// ParseCommand maps identification output to a command. It accepts the
// whole output as one token first, then looks for exactly one known command
// name inside it. ok is false for empty, ambiguous or unknown output.
func ParseCommand(output string, known func(commands.Name) bool) (commands.Name, bool) {
	output = strings.TrimSpace(output)
	if output == "" {
		return "", false
	}

	if obj, err := ParseStrict(output); err == nil {
		if s, isString := obj["command"].(string); isString {
			output = s
		}
	}

	if n := commands.Normalize(output); n == commands.None || known(n) {
		return n, n != ""
	}

	var found commands.Name
	for _, tok := range tokenPattern.FindAllString(output, -1) {
		for _, cand := range candidateNames(tok) {
			if cand != commands.None && !known(cand) {
				continue
			}
			if found != "" && found != cand {
				return "", false
			}
			found = cand
		}
	}
	return found, found != ""
}

// candidateNames yields the normalised token and, for multi-word tokens, the
// underscore-only form so prose like "LIST_TASKS command" still matches.
func candidateNames(tok string) []commands.Name {
	var out []commands.Name
	if n := commands.Normalize(tok); n != "" {
		out = append(out, n)
	}
	for _, word := range strings.Fields(tok) {
		if n := commands.Normalize(word); n != "" && !containsName(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func containsName(names []commands.Name, n commands.Name) bool {
	for _, x := range names {
		if x == n {
			return true
		}
	}
	return false
}

// compactJSON marshals v without indentation, falling back to "{}".
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}
