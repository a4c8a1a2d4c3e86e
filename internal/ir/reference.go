package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reference is a tagged pointer from one resource's attributes to another
// resource's output. References are resolved against committed state at apply
// time; their presence in an attribute map induces a dependency edge.
type Reference struct {
	Target string `json:"target"` // logical name of the referenced resource
	Output string `json:"output"` // output attribute on the target
}

func (r Reference) String() string {
	return fmt.Sprintf("resource.%s.%s", r.Target, r.Output)
}

// MarshalJSON encodes a reference as {"$ref": "target.output"} so that
// references survive the round trip through durable state and still compare
// equal to their in-memory form under canonical JSON.
func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$ref": r.Target + "." + r.Output})
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	ref, ok := m["$ref"]
	if !ok {
		return fmt.Errorf("not a reference: %s", data)
	}
	target, output, found := strings.Cut(ref, ".")
	if !found {
		return fmt.Errorf("malformed reference %q", ref)
	}
	r.Target = target
	r.Output = output
	return nil
}

// RehydrateReferences converts {"$ref": ...} maps produced by a JSON load
// back into Reference values, recursively.
func RehydrateReferences(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if raw, ok := val["$ref"].(string); ok && len(val) == 1 {
			if target, output, found := strings.Cut(raw, "."); found {
				return Reference{Target: target, Output: output}
			}
		}
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = RehydrateReferences(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = RehydrateReferences(inner)
		}
		return out
	default:
		return v
	}
}

// ExtractReferences walks an attribute value structurally and collects every
// Reference it contains. Plain strings are never treated as references.
func ExtractReferences(v any) []Reference {
	var refs []Reference
	walkValue(v, func(r Reference) {
		refs = append(refs, r)
	})
	return refs
}

func walkValue(v any, fn func(Reference)) {
	switch val := v.(type) {
	case Reference:
		fn(val)
	case *Reference:
		if val != nil {
			fn(*val)
		}
	case map[string]any:
		for _, inner := range val {
			walkValue(inner, fn)
		}
	case []any:
		for _, inner := range val {
			walkValue(inner, fn)
		}
	}
}
