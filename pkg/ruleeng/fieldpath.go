package ruleeng

import (
	"reflect"
	"strconv"
	"strings"
)

// ResolveField walks a dotted path against an arbitrary object graph —
// structs, map[string]any, and slices/arrays may all appear at any
// level — and returns the value reached, or nil if the path does not
// resolve. It never panics: reflection failures are caught, logged at
// Info level, and treated as a missing field, per the field accessor's
// contract that walking failures degrade to null rather than propagate.
func ResolveField(v any, path string) any {
	if v == nil || path == "" {
		return nil
	}
	cur := any(v)
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		cur = resolveSegment(cur, seg)
	}
	return cur
}

func resolveSegment(v any, seg string) (result any) {
	defer func() {
		if r := recover(); r != nil {
			logFault("field accessor recovered from reflection panic",
				"segment", seg, "panic", r)
			result = nil
		}
	}()

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			logFault("map with non-string key encountered", "segment", seg)
			return nil
		}
		mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()

	case reflect.Struct:
		fv := rv.FieldByNameFunc(func(name string) bool { return name == seg })
		if !fv.IsValid() {
			return nil
		}
		if !fv.CanInterface() {
			return nil
		}
		return fv.Interface()

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return nil
		}
		if idx >= rv.Len() {
			return nil
		}
		return rv.Index(idx).Interface()

	default:
		return nil
	}
}
