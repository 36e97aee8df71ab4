package celexpr

import (
	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Issue is one determinism or shape violation found while validating a
// translated expression.
type Issue struct {
	Message  string
	Severity string // ERROR
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Issues []Issue
}

// Validator parses a CEL expression and walks its AST looking for
// constructs that would make clause-composition non-deterministic or
// unboundedly expensive — the same concern celdp.CELDPValidator
// enforces for policy expressions, narrowed to what a boolean
// clause-composition expression could even attempt: no floating
// point, no time-dependent calls, no map iteration.
type Validator struct {
	env *cel.Env
}

// NewValidator builds a Validator with a bare CEL env, sufficient for
// parsing (type-checking happens later, at Evaluator.env.Compile).
func NewValidator() (*Validator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, err
	}
	return &Validator{env: env}, nil
}

// Validate parses source and reports any determinism violations.
func (v *Validator) Validate(source string) (*ValidationResult, error) {
	parsed, issues := v.env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	result := &ValidationResult{Valid: true, Issues: []Issue{}}
	checkRecursively(parsed.Expr(), &result.Issues) //nolint:staticcheck // Expr() is deprecated but still the only AST walk entry point

	if len(result.Issues) > 0 {
		result.Valid = false
	}
	return result, nil
}

func checkRecursively(e *exprpb.Expr, issues *[]Issue) {
	if e == nil {
		return
	}

	switch k := e.ExprKind.(type) {
	case *exprpb.Expr_ConstExpr:
		if _, ok := k.ConstExpr.ConstantKind.(*exprpb.Constant_DoubleValue); ok {
			*issues = append(*issues, Issue{Message: "floating point literals are forbidden", Severity: "ERROR"})
		}

	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		switch call.Function {
		case "now", "timestamp":
			*issues = append(*issues, Issue{Message: call.Function + "() is forbidden: clause composition must be deterministic", Severity: "ERROR"})
		case "keys", "values":
			*issues = append(*issues, Issue{Message: "map iteration (keys/values) is forbidden due to non-determinism", Severity: "ERROR"})
		}
		if call.Target != nil {
			checkRecursively(call.Target, issues)
		}
		for _, arg := range call.Args {
			checkRecursively(arg, issues)
		}

	case *exprpb.Expr_SelectExpr:
		checkRecursively(k.SelectExpr.Operand, issues)

	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.Elements {
			checkRecursively(el, issues)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.Entries {
			if entry.GetMapKey() != nil {
				checkRecursively(entry.GetMapKey(), issues)
			}
			checkRecursively(entry.Value, issues)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := k.ComprehensionExpr
		checkRecursively(comp.IterRange, issues)
		checkRecursively(comp.AccuInit, issues)
		checkRecursively(comp.LoopCondition, issues)
		checkRecursively(comp.LoopStep, issues)
		checkRecursively(comp.Result, issues)
	}
}
