// Package merge folds partial server payloads into richer local documents.
//
// Documents are JSON-shaped values: map[string]any, []any, and scalars. A key
// missing from the source is treated as undefined and left alone; a key present
// with a nil value is an explicit null.
package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Smart merges source into target in place.
//
//   - lists replace the target list, except that an empty source list never
//     clears a non-empty target list
//   - records recurse, creating an empty record when the target has none
//   - null never erases a non-null target value
//   - scalars overwrite
func Smart(target, source map[string]any) {
	for key, sv := range source {
		tv, present := target[key]
		switch s := sv.(type) {
		case []any:
			if len(s) == 0 && present && listLen(tv) > 0 {
				continue
			}
			target[key] = s
		case map[string]any:
			t, ok := tv.(map[string]any)
			if !ok {
				t = make(map[string]any, len(s))
				target[key] = t
			}
			Smart(t, s)
		case nil:
			if present && tv != nil {
				continue
			}
			target[key] = nil
		default:
			target[key] = sv
		}
	}
}

func listLen(v any) int {
	if l, ok := v.([]any); ok {
		return len(l)
	}
	return 0
}

// Into merges source into the struct pointed to by target, keeping the pointer
// (and therefore every holder of it) intact. target is round-tripped through its
// JSON form, so only exported, JSON-visible fields take part; any other field is
// reset to its zero value.
func Into(target any, source map[string]any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("merge target must be a non-nil pointer, got %T", target)
	}
	doc, err := ToDocument(target)
	if err != nil {
		return err
	}
	Smart(doc, source)
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode merged document: %w", err)
	}
	// Decode into a fresh value: unmarshaling into target would reuse existing
	// slice elements and keep fields a replacement list entry leaves out.
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(merged, fresh.Interface()); err != nil {
		return fmt.Errorf("failed to decode merged document into %T: %w", target, err)
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// ToDocument converts v into its generic JSON document form.
func ToDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return Decode(raw)
}

// Decode parses a JSON object, keeping numbers as json.Number so integers
// survive the round trip exactly.
func Decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
