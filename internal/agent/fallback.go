package agent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/commands"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var defaultFallbackYAML []byte

// FallbackRule maps request keywords to a default command.
type FallbackRule struct {
	Command  commands.Name `yaml:"command"`
	Keywords []string      `yaml:"keywords"`
}

// FallbackRules is an ordered keyword rule set. The first matching rule wins.
type FallbackRules struct {
	Rules []FallbackRule `yaml:"rules"`
}

// DefaultFallbackRules returns the built-in rule set.
func DefaultFallbackRules() FallbackRules {
	rules, err := ParseFallbackRules(defaultFallbackYAML)
	if err != nil {
		panic(fmt.Sprintf("agent: embedded fallback rules: %v", err))
	}
	return rules
}

// LoadFallbackRules reads a rule set from a YAML file. An empty path yields
// the built-in rules.
func LoadFallbackRules(path string) (FallbackRules, error) {
	if path == "" {
		return DefaultFallbackRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FallbackRules{}, fmt.Errorf("agent: read fallback rules: %w", err)
	}
	return ParseFallbackRules(data)
}

// ParseFallbackRules decodes YAML rules and normalises commands and keywords.
func ParseFallbackRules(data []byte) (FallbackRules, error) {
	var fr FallbackRules
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return FallbackRules{}, fmt.Errorf("agent: parse fallback rules: %w", err)
	}
	for i := range fr.Rules {
		r := &fr.Rules[i]
		r.Command = commands.Normalize(string(r.Command))
		if r.Command == "" || r.Command == commands.None {
			return FallbackRules{}, fmt.Errorf("agent: fallback rule %d has no command", i)
		}
		kw := r.Keywords[:0]
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		if len(kw) == 0 {
			return FallbackRules{}, fmt.Errorf("agent: fallback rule %d (%s) has no keywords", i, r.Command)
		}
		r.Keywords = kw
	}
	return fr, nil
}

// check reports rules naming commands the registry does not know.
func (fr FallbackRules) check(known func(commands.Name) bool) error {
	for _, r := range fr.Rules {
		if !known(r.Command) {
			return fmt.Errorf("agent: fallback rule names unknown command %s", r.Command)
		}
	}
	return nil
}

// Match returns the command of the first rule with a keyword in utterance.
func (fr FallbackRules) Match(utterance string) (commands.Name, bool) {
	text := strings.ToLower(utterance)
	for _, r := range fr.Rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Command, true
			}
		}
	}
	return "", false
}
