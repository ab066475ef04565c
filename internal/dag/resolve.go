package dag

import "fmt"

// Lookup returns the output behind a reference.
type Lookup func(ref FieldRef) (any, error)

// ResolveInputs substitutes every reference of a unit's inputs. Executors
// call it only once all producers have completed.
func ResolveInputs(inputs map[string]Input, lookup Lookup) (map[string]any, error) {
	out := make(map[string]any, len(inputs))
	for name, in := range inputs {
		switch in.Kind {
		case KindValue:
			out[name] = in.Value
		case KindRef:
			if in.Ref == nil {
				return nil, fmt.Errorf("input %q is a reference without target", name)
			}
			v, err := lookup(*in.Ref)
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", name, err)
			}
			out[name] = v
		case KindRefs:
			values := make([]any, 0, len(in.Refs))
			for _, ref := range in.Refs {
				v, err := lookup(ref)
				if err != nil {
					return nil, fmt.Errorf("input %q: %w", name, err)
				}
				values = append(values, v)
			}
			out[name] = values
		default:
			return nil, fmt.Errorf("input %q has unknown kind %q", name, in.Kind)
		}
	}
	return out, nil
}
