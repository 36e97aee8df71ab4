package ruleeng

import (
	"fmt"
	"reflect"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// extracted holds the two parallel views C2 produces from a resolved
// field value: a flat list of scalars (nil is a legitimate scalar,
// meaning "the field resolved to null") and a flat list of (key,value)
// pairs.
type extracted struct {
	scalars []any
	pairs   []ruletypes.KVPair
}

// extractValue normalizes an arbitrary resolved value per §4.2. It
// never panics: reflection faults are caught, logged, and yield the
// degenerate empty result.
func extractValue(v any) (result extracted) {
	defer func() {
		if r := recover(); r != nil {
			logFault("value extractor recovered from panic", "panic", r)
			result = extracted{}
		}
	}()

	if v == nil {
		return extracted{scalars: []any{nil}}
	}

	switch t := v.(type) {
	case []string:
		scalars := make([]any, len(t))
		for i, s := range t {
			scalars[i] = s
		}
		return extracted{scalars: scalars}

	case map[string]string:
		pairs := make([]ruletypes.KVPair, 0, len(t))
		for k, val := range t {
			pairs = append(pairs, ruletypes.KVPair{Key: k, Value: val})
		}
		return extracted{pairs: pairs}

	case map[string][]string:
		var pairs []ruletypes.KVPair
		for k, vals := range t {
			for _, val := range vals {
				pairs = append(pairs, ruletypes.KVPair{Key: k, Value: val})
			}
		}
		return extracted{pairs: pairs}

	case []ruletypes.KVPair:
		return extracted{pairs: append([]ruletypes.KVPair(nil), t...)}
	}

	// Fall back to reflection for types the static switch can't name
	// (e.g. named slice/map types the collectors declare per result
	// type).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.String {
			scalars := make([]any, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				scalars[i] = rv.Index(i).String()
			}
			return extracted{scalars: scalars}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			var pairs []ruletypes.KVPair
			for _, key := range rv.MapKeys() {
				pairs = append(pairs, ruletypes.KVPair{
					Key:   key.String(),
					Value: fmt.Sprint(rv.MapIndex(key).Interface()),
				})
			}
			return extracted{pairs: pairs}
		}
	}

	s := fmt.Sprint(v)
	if s == "" {
		return extracted{}
	}
	return extracted{scalars: []any{s}}
}

// mergeScalars forms the multiset union S = scalars_b ∪ scalars_a used
// throughout §4.3, preserving order (before first, then after).
func mergeScalars(before, after extracted) []any {
	out := make([]any, 0, len(before.scalars)+len(after.scalars))
	out = append(out, before.scalars...)
	out = append(out, after.scalars...)
	return out
}

func mergePairs(before, after extracted) []ruletypes.KVPair {
	out := make([]ruletypes.KVPair, 0, len(before.pairs)+len(after.pairs))
	out = append(out, before.pairs...)
	out = append(out, after.pairs...)
	return out
}

// scalarString renders a scalar (possibly nil) as the string form the
// operators compare against.
func scalarString(s any) (str string, isNull bool) {
	if s == nil {
		return "", true
	}
	if str, ok := s.(string); ok {
		return str, false
	}
	return fmt.Sprint(s), false
}
