// Package scoring implements the partial-merge engine and the point,
// completion and aggregate calculators over the schema registry.
package scoring

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

// present reports whether v holds a value: not nil, not a blank string and
// not an empty array or object.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		for _, inner := range t {
			if present(inner) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// nonEmptyArray reports whether v is an array with at least one element.
func nonEmptyArray(v any) bool {
	a, ok := v.([]any)
	return ok && len(a) > 0
}

// lookup resolves a dotted path ("parent.leaf") against fields.
func lookup(fields map[string]any, path string) any {
	parent, leaf, ok := strings.Cut(path, ".")
	if !ok {
		return fields[path]
	}
	m, isMap := fields[parent].(map[string]any)
	if !isMap {
		return nil
	}
	return m[leaf]
}

// filled applies the completion rule of kind to v.
func filled(kind registry.Kind, v any) bool {
	if kind == registry.KindArrayNonEmpty {
		return nonEmptyArray(v)
	}
	return present(v)
}

var leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// parseNumber returns the leading decimal number of v, or false when v does
// not start with one.
func parseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		m := leadingNumber.FindString(t)
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// normalize round-trips data through JSON so every value has one of the
// canonical decoded types (string, float64, bool, []any, map[string]any).
func normalize(data map[string]any) (map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, model.InvalidInputf("scoring: patch data is not encodable: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, eris.Wrap(err, "scoring: decode patch data")
	}
	return out, nil
}
