// Package celexpr is the opt-in, precedence-aware expression backend
// the spec's design notes allow behind a flag: where pkg/ruleeng's
// flat evaluator treats AND/OR/XOR/NAND/NOR as equal-precedence,
// left-to-right operators, this package compiles the same clause
// labels into a CEL expression with CEL's normal operator precedence
// (&&/|| binding tighter than a bare token sequence would otherwise
// suggest). It is never the default; pkg/ruleeng.EvaluateExpression
// remains the mandatory flat-mode evaluator, and nothing in pkg/ruleeng
// calls this package: a caller computes the clause values and passes
// them to Evaluator.Evaluate itself.
//
// Grounded on core/pkg/kernel/celdp/evaluator.go and validator.go,
// which use the same cel-go compile/validate/evaluate pipeline for a
// different expression surface (arbitrary policy decisions, not
// boolean clause composition).
package celexpr

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Error mirrors celdp.CELError's shape: a machine-readable code plus
// a human message, so a caller can distinguish "expression doesn't
// compile" from "expression referenced an unknown label" without
// string matching.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Evaluator compiles and runs precedence-aware boolean expressions
// over a fixed "clauses" variable: a map from clause label to the
// already-computed (by ruleeng.AnalyzeClause) boolean value for that
// label.
type Evaluator struct {
	validator *Validator
	env       *cel.Env
}

// NewEvaluator builds an Evaluator with the "clauses" map[string]bool
// variable bound, the only input this mode needs.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("clauses", cel.MapType(cel.StringType, cel.BoolType)),
	)
	if err != nil {
		return nil, fmt.Errorf("celexpr: building CEL env: %w", err)
	}
	v := &Validator{env: env}
	return &Evaluator{validator: v, env: env}, nil
}

// Evaluate translates expression (the spec's flat boolean mini-language
// over labeled clauses) into CEL source, validates it against the
// determinism restrictions Validator enforces, compiles, and runs it
// against clauseValues. A label present in the expression but absent
// from clauseValues evaluates to false, matching flat mode's "an
// unresolvable label fails the rule" rule.
func (e *Evaluator) Evaluate(expression string, clauseValues map[string]bool) (bool, *Error) {
	src, err := Translate(expression)
	if err != nil {
		return false, &Error{Code: "CELEXPR/TRANSLATE_FAILED", Message: err.Error()}
	}

	res, err := e.validator.Validate(src)
	if err != nil {
		return false, &Error{Code: "CELEXPR/PARSE_FAILED", Message: err.Error()}
	}
	if !res.Valid {
		msg := ""
		for i, iss := range res.Issues {
			if i > 0 {
				msg += "; "
			}
			msg += iss.Message
		}
		return false, &Error{Code: "CELEXPR/VALIDATION_FAILED", Message: msg}
	}

	ast, issues := e.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return false, &Error{Code: "CELEXPR/COMPILE_FAILED", Message: issues.Err().Error()}
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, &Error{Code: "CELEXPR/PROGRAM_FAILED", Message: err.Error()}
	}

	boxed := make(map[string]any, len(clauseValues))
	for k, v := range clauseValues {
		boxed[k] = v
	}
	val, _, err := prg.Eval(map[string]any{"clauses": boxed})
	if err != nil {
		// A label referenced by the expression but absent from
		// clauseValues surfaces here as CEL's "no such key" map-index
		// error. Flat mode treats an unresolvable label as failing the
		// whole expression rather than erroring, so this mode matches
		// that rather than propagating a runtime error for the same
		// authoring mistake.
		if strings.Contains(err.Error(), "no such key") {
			return false, nil
		}
		return false, &Error{Code: "CELEXPR/RUNTIME_ERROR", Message: err.Error()}
	}

	b, ok := val.Value().(bool)
	if !ok {
		return false, &Error{Code: "CELEXPR/NON_BOOL_RESULT", Message: "expression did not evaluate to a boolean"}
	}
	return b, nil
}
