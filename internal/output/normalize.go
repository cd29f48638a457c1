package output

import "fmt"

// NormalizeJSONValue rewrites CBOR-decoded values so encoding/json accepts
// them: map[any]any keys become strings and byte strings become a length.
func NormalizeJSONValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = NormalizeJSONValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = NormalizeJSONValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeJSONValue(val)
		}
		return out
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(t))
	default:
		return v
	}
}
