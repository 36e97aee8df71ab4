// Package ruletypes defines the data model the rule analyzer evaluates
// against: platforms, change types, result types, verdicts, clauses,
// rules, rule files, and the compare result that a rule file is matched
// against.
package ruletypes

import "fmt"

// Platform names a host operating system a rule may be scoped to.
type Platform string

const (
	PlatformWindows Platform = "WINDOWS"
	PlatformLinux   Platform = "LINUX"
	PlatformDarwin  Platform = "DARWIN"
)

// ChangeType identifies which side(s) of a diff are populated.
type ChangeType string

const (
	ChangeCreated  ChangeType = "CREATED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeDeleted  ChangeType = "DELETED"
)

// ResultType tags the kind of collected object a compare result describes.
type ResultType string

// Verdict is an ordered analysis severity. The engine never combines
// verdicts across matched rules; it only reports which rules matched.
// Ordering exists so a caller can pick the maximum verdict among the
// matched rules' declared severities.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictInformation
	VerdictVerbose
	VerdictWarning
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictNone:
		return "NONE"
	case VerdictInformation:
		return "INFORMATION"
	case VerdictVerbose:
		return "VERBOSE"
	case VerdictWarning:
		return "WARNING"
	case VerdictError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseVerdict parses the canonical rule-file spelling of a verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "NONE":
		return VerdictNone, nil
	case "INFORMATION":
		return VerdictInformation, nil
	case "VERBOSE":
		return VerdictVerbose, nil
	case "WARNING":
		return VerdictWarning, nil
	case "ERROR":
		return VerdictError, nil
	default:
		return VerdictNone, fmt.Errorf("ruletypes: unknown verdict %q", s)
	}
}

// Operation is the closed set of clause operators. DoesNotContain and
// DoesNotContainAll are reserved tags: the validator rejects any clause
// that uses them, and the evaluator never encounters them in a valid
// rule file.
type Operation string

const (
	OpEQ                 Operation = "EQ"
	OpNEQ                Operation = "NEQ"
	OpContains           Operation = "CONTAINS"
	OpContainsAny        Operation = "CONTAINS_ANY"
	OpEndsWith           Operation = "ENDS_WITH"
	OpStartsWith         Operation = "STARTS_WITH"
	OpGT                 Operation = "GT"
	OpLT                 Operation = "LT"
	OpRegex              Operation = "REGEX"
	OpIsNull             Operation = "IS_NULL"
	OpIsTrue             Operation = "IS_TRUE"
	OpIsBefore           Operation = "IS_BEFORE"
	OpIsAfter            Operation = "IS_AFTER"
	OpIsExpired          Operation = "IS_EXPIRED"
	OpWasModified        Operation = "WAS_MODIFIED"
	OpDoesNotContain     Operation = "DOES_NOT_CONTAIN"     // reserved, unsupported
	OpDoesNotContainAll  Operation = "DOES_NOT_CONTAIN_ALL" // reserved, unsupported
)

// KVPair is an ordered (key, value) string pair, used both for a
// clause's DictData operand and for the pairs view C2 extracts from an
// arbitrary value.
type KVPair struct {
	Key   string
	Value string
}

// Clause is a single predicate over a dotted field path.
type Clause struct {
	Field     string
	Operation Operation
	Data      []string
	DictData  []KVPair
	Label     string // empty means unlabeled
}

// HasLabel reports whether the clause carries a non-empty label.
func (c Clause) HasLabel() bool { return c.Label != "" }

// Rule is a named, typed boolean composition of clauses carrying a
// verdict.
type Rule struct {
	Name         string
	Description  string
	Verdict      Verdict
	ResultType   ResultType
	Platforms    []Platform   // nil means "any platform"
	ChangeTypes  []ChangeType // nil means "any change type"
	Clauses      []Clause
	Expression   string // empty means implicit AND over all clauses
	SchemaVersion string // optional, see ruleloader.CheckSchemaVersion
}

// HasPlatform reports whether the rule applies to p (nil Platforms
// means "any").
func (r Rule) HasPlatform(p Platform) bool {
	if len(r.Platforms) == 0 {
		return true
	}
	for _, rp := range r.Platforms {
		if rp == p {
			return true
		}
	}
	return false
}

// HasChangeType reports whether the rule applies to ct (nil ChangeTypes
// means "any").
func (r Rule) HasChangeType(ct ChangeType) bool {
	if len(r.ChangeTypes) == 0 {
		return true
	}
	for _, rct := range r.ChangeTypes {
		if rct == ct {
			return true
		}
	}
	return false
}

// RuleFile is the top-level rule catalog: default verdicts per result
// type plus the ordered rule list.
type RuleFile struct {
	DefaultVerdicts map[ResultType]Verdict
	Rules           []Rule
}

// EmptyRuleFile is returned whenever a loader fails; Analyze against it
// always yields zero matches, never a crash.
func EmptyRuleFile() *RuleFile {
	return &RuleFile{DefaultVerdicts: map[ResultType]Verdict{}}
}

// CompareResult is the diff object for a single collected entity
// between two snapshots. Base is nil for CREATED, Compare is nil for
// DELETED. Analysis and MatchedRules are mutated by the analyzer.
type CompareResult struct {
	ResultType   ResultType
	ChangeType   ChangeType
	Base         any
	Compare      any
	Analysis     Verdict
	MatchedRules []Rule
}
