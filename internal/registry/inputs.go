package registry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Inputs are the resolved arguments of a unit. Values may arrive as native
// Go values (local execution) or as their JSON decoding (remote execution),
// so the accessors accept both shapes.
type Inputs map[string]any

// Has reports whether the input is present and not nil.
func (in Inputs) Has(key string) bool {
	v, ok := in[key]
	return ok && v != nil
}

// String returns a required string input.
func (in Inputs) String(key string) (string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing input %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("input %q is %T, want string", key, v)
	}
	return s, nil
}

// OptionalString returns a string input or "" when absent.
func (in Inputs) OptionalString(key string) (string, error) {
	if !in.Has(key) {
		return "", nil
	}
	return in.String(key)
}

// Strings returns a required list of strings.
func (in Inputs) Strings(key string) ([]string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("missing input %q", key)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("input %q[%d] is %T, want string", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("input %q is %T, want a list of strings", key, v)
	}
}

// Int returns a required integer input.
func (in Inputs) Int(key string) (int, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing input %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("input %q is %v, want an integer", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("input %q: %w", key, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("input %q is %T, want int", key, v)
	}
}

// IntOr returns an integer input or def when absent.
func (in Inputs) IntOr(key string, def int) (int, error) {
	if !in.Has(key) {
		return def, nil
	}
	return in.Int(key)
}

// Bool returns a boolean input, false when absent.
func (in Inputs) Bool(key string) (bool, error) {
	if !in.Has(key) {
		return false, nil
	}
	b, ok := in[key].(bool)
	if !ok {
		return false, fmt.Errorf("input %q is %T, want bool", key, in[key])
	}
	return b, nil
}

// Decode converts an input of any shape into out through its JSON form.
func (in Inputs) Decode(key string, out any) error {
	v, ok := in[key]
	if !ok {
		return fmt.Errorf("missing input %q", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("input %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("input %q: %w", key, err)
	}
	return nil
}
