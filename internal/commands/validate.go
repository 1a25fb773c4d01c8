package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/spf13/cast"
)

// Validate coerces raw into the declared types of name's schema and checks
// required and allowed-value constraints. Unknown keys are ignored. A nil
// value or blank string counts as absent. Every failing field is reported.
func (r *Registry) Validate(name Name, raw map[string]any) (Params, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return Params{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	values := make(map[string]any, len(d.Schema))
	var fields []FieldError

	for _, p := range d.Schema {
		v, present := raw[p.Name]
		if present && isBlank(v) {
			present = false
		}
		if !present {
			if p.Required {
				fields = append(fields, FieldError{Field: p.Name, Reason: "is required"})
			}
			continue
		}

		coerced, err := coerce(p.Type, v)
		if err != nil {
			fields = append(fields, FieldError{Field: p.Name, Reason: err.Error()})
			continue
		}

		if len(p.Allowed) > 0 {
			canonical, ok := matchAllowed(p.Allowed, coerced)
			if !ok {
				fields = append(fields, FieldError{
					Field:  p.Name,
					Reason: "must be one of " + strings.Join(p.Allowed, ", "),
				})
				continue
			}
			coerced = canonical
		}

		values[p.Name] = coerced
	}

	if len(fields) > 0 {
		return Params{}, &ValidationError{Command: name, Fields: fields}
	}
	return Params{command: name, values: values}, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func coerce(t ParamType, v any) (any, error) {
	switch t {
	case TypeString:
		if _, isMap := v.(map[string]any); isMap {
			return nil, fmt.Errorf("expected string")
		}
		if _, isSlice := v.([]any); isSlice {
			return nil, fmt.Errorf("expected string")
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("expected string")
		}
		return strings.TrimSpace(s), nil

	case TypeInteger:
		return coerceInteger(v)

	case TypeNumber:
		if _, isBool := v.(bool); isBool {
			return nil, fmt.Errorf("expected number")
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("expected number")
		}
		return f, nil

	case TypeBoolean:
		if s, isString := v.(string); isString {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "yes", "y", "да":
				return true, nil
			case "no", "n", "нет":
				return false, nil
			}
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("expected boolean")
		}
		return b, nil

	case TypeDate:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("expected date YYYY-MM-DD")
		}
		s = strings.TrimSpace(s)
		if len(s) > len(workspace.DateLayout) {
			// Accept full timestamps and keep the calendar date.
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				return ts.Format(workspace.DateLayout), nil
			}
		}
		d, err := time.Parse(workspace.DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("expected date YYYY-MM-DD")
		}
		return d.Format(workspace.DateLayout), nil

	default:
		return nil, fmt.Errorf("unsupported parameter type %q", t)
	}
}

// coerceInteger accepts integral numbers within int64 range and strings in
// plain decimal notation ("12", "12.0", "1e3"). Prefixed forms such as
// "0x1F" are rejected and leading zeros do not switch to octal.
func coerceInteger(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return nil, fmt.Errorf("expected integer")
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || strings.ContainsAny(s, "xXpP") {
			return nil, fmt.Errorf("expected integer")
		}
		return integralFloat(f)
	case json.Number:
		return coerceInteger(x.String())
	case float64:
		return integralFloat(x)
	case float32:
		return integralFloat(float64(x))
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("expected integer, %v is out of range", x)
		}
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("expected integer, %v is out of range", x)
		}
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fmt.Errorf("expected integer")
	}
	return n, nil
}

func integralFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected integer, got %v", f)
	}
	// 1<<63 is exactly representable; MaxInt64 is not.
	if f < -(1<<63) || f >= 1<<63 {
		return nil, fmt.Errorf("expected integer, %v is out of range", f)
	}
	return int64(f), nil
}

// matchAllowed compares case-insensitively and returns the declared spelling.
func matchAllowed(allowed []string, v any) (any, bool) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			if _, isString := v.(string); isString {
				return a, true
			}
			return v, true
		}
	}
	return nil, false
}
