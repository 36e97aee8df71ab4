package ruleeng

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// regexCache is the process-wide, append-mostly cache of compiled
// patterns described in §5: the first writer for a given joined
// pattern wins, an invalid pattern caches a sentinel that never
// matches.
var regexCache sync.Map // map[string]*regexp.Regexp

var neverMatch = regexp.MustCompile(`$.^`) // never matches any input

func compiledRegex(patterns []string) *regexp.Regexp {
	key := strings.Join(patterns, "|")
	if v, ok := regexCache.Load(key); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(key)
	if err != nil {
		logFault("invalid regex pattern, caching never-match sentinel", "pattern", key, "error", err)
		re = neverMatch
	}
	actual, _ := regexCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// AnalyzeClause evaluates a single clause against a compare result,
// per §4.3. It never panics and never returns an error: any fault
// collapses the result to false and is logged.
func AnalyzeClause(r *ruletypes.CompareResult, c ruletypes.Clause) (result bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logFault("clause evaluation recovered from panic",
				"field", c.Field, "operation", c.Operation, "panic", rec)
			result = false
		}
	}()

	var after, before any
	if r.ChangeType == ruletypes.ChangeCreated || r.ChangeType == ruletypes.ChangeModified {
		after = ResolveField(r.Compare, c.Field)
	}
	if r.ChangeType == ruletypes.ChangeDeleted || r.ChangeType == ruletypes.ChangeModified {
		before = ResolveField(r.Base, c.Field)
	}

	extB := extractValue(before)
	extA := extractValue(after)
	scalars := mergeScalars(extB, extA)
	pairs := mergePairs(extB, extA)

	typeHolder := before
	if typeHolder == nil {
		typeHolder = after
	}

	switch c.Operation {
	case ruletypes.OpEQ:
		return setIntersects(c.Data, scalars)
	case ruletypes.OpNEQ:
		return !setIntersects(c.Data, scalars)
	case ruletypes.OpContains:
		return containsPredicate(c, scalars, pairs, typeHolder, false)
	case ruletypes.OpContainsAny:
		return containsPredicate(c, scalars, pairs, typeHolder, true)
	case ruletypes.OpStartsWith:
		return affixPredicate(c.Data, scalars, true)
	case ruletypes.OpEndsWith:
		return affixPredicate(c.Data, scalars, false)
	case ruletypes.OpGT:
		return comparePredicate(c.Data, scalars, func(s, n int64) bool { return s > n })
	case ruletypes.OpLT:
		return comparePredicate(c.Data, scalars, func(s, n int64) bool { return s < n })
	case ruletypes.OpRegex:
		return regexPredicate(c.Data, scalars)
	case ruletypes.OpIsNull:
		return allNull(scalars)
	case ruletypes.OpIsTrue:
		return anyTrue(scalars)
	case ruletypes.OpIsBefore:
		return datePredicate(c.Data, scalars, func(s, d time.Time) bool { return s.Before(d) })
	case ruletypes.OpIsAfter:
		return datePredicate(c.Data, scalars, func(s, d time.Time) bool { return s.After(d) })
	case ruletypes.OpIsExpired:
		now := time.Now().UTC()
		return datePredicate([]string{now.Format(time.RFC3339)}, scalars,
			func(s, d time.Time) bool { return s.Before(d) })
	case ruletypes.OpWasModified:
		return r.ChangeType == ruletypes.ChangeModified && !deepEqual(before, after)
	default:
		// Reserved/unsupported operators (DOES_NOT_CONTAIN*) and any
		// future unknown tag: the validator rejects these in a valid
		// rule file, so reaching here means a caller bypassed
		// validation. Fail closed.
		logFault("unsupported operation reached evaluator", "operation", c.Operation)
		return false
	}
}

func setIntersects(data []string, scalars []any) bool {
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		for _, d := range data {
			if str == d {
				return true
			}
		}
	}
	return false
}

// containsPredicate implements both CONTAINS (all=true) and
// CONTAINS_ANY (all=false). See §4.3's table: pairs win when present,
// otherwise list-vs-scalar dispatch on typeHolder's shape.
func containsPredicate(c ruletypes.Clause, scalars []any, pairs []ruletypes.KVPair, typeHolder any, any_ bool) bool {
	if len(pairs) > 0 {
		if any_ {
			for _, want := range c.DictData {
				if pairContains(pairs, want) {
					return true
				}
			}
			return len(c.DictData) == 0
		}
		for _, want := range c.DictData {
			if !pairContains(pairs, want) {
				return false
			}
		}
		return true
	}

	if isListShaped(typeHolder) {
		if any_ {
			for _, want := range c.Data {
				if scalarsContain(scalars, want) {
					return true
				}
			}
			return len(c.Data) == 0
		}
		for _, want := range c.Data {
			if !scalarsContain(scalars, want) {
				return false
			}
		}
		return true
	}

	// Scalar string: every (any) element of Data is a substring of the
	// first non-null scalar.
	var base string
	found := false
	for _, s := range scalars {
		if str, isNull := scalarString(s); !isNull {
			base, found = str, true
			break
		}
	}
	if !found {
		return false
	}
	if any_ {
		for _, want := range c.Data {
			if strings.Contains(base, want) {
				return true
			}
		}
		return len(c.Data) == 0
	}
	for _, want := range c.Data {
		if !strings.Contains(base, want) {
			return false
		}
	}
	return true
}

func isListShaped(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]string); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func pairContains(pairs []ruletypes.KVPair, want ruletypes.KVPair) bool {
	for _, p := range pairs {
		if p.Key == want.Key && p.Value == want.Value {
			return true
		}
	}
	return false
}

func scalarsContain(scalars []any, want string) bool {
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if !isNull && str == want {
			return true
		}
	}
	return false
}

func affixPredicate(data []string, scalars []any, prefix bool) bool {
	coll := defaultCollator()
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		for _, d := range data {
			var match bool
			if prefix {
				match = coll.HasPrefix(str, d)
			} else {
				match = coll.HasSuffix(str, d)
			}
			if match {
				return true
			}
		}
	}
	return false
}

func comparePredicate(data []string, scalars []any, cmp func(s, n int64) bool) bool {
	if len(data) != 1 {
		return false
	}
	n, err := strconv.ParseInt(data[0], 10, 64)
	if err != nil {
		logFault("GT/LT operand is not a parseable integer", "data", data[0])
		return false
	}
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		sv, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue
		}
		if cmp(sv, n) {
			return true
		}
	}
	return false
}

func regexPredicate(data []string, scalars []any) bool {
	if len(data) == 0 {
		return false
	}
	re := compiledRegex(data)
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		if re.MatchString(str) {
			return true
		}
	}
	return false
}

func allNull(scalars []any) bool {
	if len(scalars) == 0 {
		return true
	}
	for _, s := range scalars {
		if _, isNull := scalarString(s); !isNull {
			return false
		}
	}
	return true
}

func anyTrue(scalars []any) bool {
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		if b, err := strconv.ParseBool(str); err == nil && b {
			return true
		}
	}
	return false
}

func datePredicate(data []string, scalars []any, cmp func(s, d time.Time) bool) bool {
	dates := make([]time.Time, 0, len(data))
	for _, d := range data {
		t, err := parseFlexibleTime(d)
		if err != nil {
			logFault("date operand not parseable", "value", d, "error", err)
			continue
		}
		dates = append(dates, t)
	}
	for _, s := range scalars {
		str, isNull := scalarString(s)
		if isNull {
			continue
		}
		st, err := parseFlexibleTime(str)
		if err != nil {
			continue
		}
		for _, d := range dates {
			if cmp(st, d) {
				return true
			}
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseFlexibleTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// deepEqual implements the "object-graph deep-equality used by one
// operator" the spec treats as an abstract external collaborator
// (§1). reflect.DeepEqual is the stand-in: it is total over any and
// panics only on incomparable types it does not itself already guard,
// which AnalyzeClause's recover() handles.
func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
