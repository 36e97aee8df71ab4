package ruleeng

import (
	"strings"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// BoolOp is a binary boolean combinator used by the expression
// mini-language. NOT is modeled separately as a unary prefix (§4.4):
// it is never the pendingOp a combination step operates with.
type BoolOp int

const (
	OpOR BoolOp = iota
	OpAND
	OpXOR
	OpNAND
	OpNOR
	OpNOT
)

func parseBinOp(tok string) (BoolOp, bool) {
	switch tok {
	case "AND":
		return OpAND, true
	case "OR":
		return OpOR, true
	case "XOR":
		return OpXOR, true
	case "NAND":
		return OpNAND, true
	case "NOR":
		return OpNOR, true
	default:
		return 0, false
	}
}

// Operate implements the truth table in §4.4. NOT is defined here for
// completeness (returns !a, ignoring b) but a well-formed expression
// never invokes it as a binary combinator — the validator forbids NOT
// from appearing anywhere but the unary prefix position.
func Operate(op BoolOp, a, b bool) bool {
	switch op {
	case OpAND:
		return a && b
	case OpOR:
		return a || b
	case OpXOR:
		return a != b
	case OpNAND:
		return !(a && b)
	case OpNOR:
		return !(a || b)
	case OpNOT:
		return !a
	default:
		return a
	}
}

func countLeadingOpens(tok string) int {
	n := 0
	for n < len(tok) && tok[n] == '(' {
		n++
	}
	return n
}

func countTrailingCloses(tok string) int {
	n := 0
	for n < len(tok) && tok[len(tok)-1-n] == ')' {
		n++
	}
	return n
}

func stripOneLeadingParen(tok string) string {
	if strings.HasPrefix(tok, "(") {
		return tok[1:]
	}
	return tok
}

func stripOneTrailingParen(tok string) string {
	if strings.HasSuffix(tok, ")") {
		return tok[:len(tok)-1]
	}
	return tok
}

func stripAllParens(tok string) string {
	return strings.Trim(tok, "()")
}

// shouldShortCircuit implements §4.4's short-circuit table: whether
// the upcoming atom can be skipped given the accumulator's current
// value and the operator it would combine with, and if so, what the
// resulting accumulator value is.
func shouldShortCircuit(op BoolOp, current bool) (skip bool, result bool) {
	switch {
	case op == OpAND && !current:
		return true, false
	case op == OpNOR && current:
		return true, false
	case op == OpOR && current:
		return true, true
	case op == OpNAND && !current:
		return true, true
	default:
		return false, false
	}
}

// exprEvaluator evaluates a flat boolean expression over a rule's
// clauses, memoizing atom values in a shared ClauseCache keyed by
// (ResultHandle, ClauseIdentity).
type exprEvaluator struct {
	byLabel map[string][]ruletypes.Clause
	result  *ruletypes.CompareResult
	handle  ResultHandle
	cache   ClauseCache
}

func newExprEvaluator(rule ruletypes.Rule, result *ruletypes.CompareResult, handle ResultHandle, cache ClauseCache) *exprEvaluator {
	byLabel := make(map[string][]ruletypes.Clause)
	for _, c := range rule.Clauses {
		byLabel[c.Label] = append(byLabel[c.Label], c)
	}
	return &exprEvaluator{byLabel: byLabel, result: result, handle: handle, cache: cache}
}

func (e *exprEvaluator) analyzeClauseCached(c ruletypes.Clause) bool {
	id := clauseIdentityOf(c)
	if v, ok := e.cache.Get(e.handle, id); ok {
		return v
	}
	v := AnalyzeClause(e.result, c)
	e.cache.Set(e.handle, id, v)
	return v
}

// resolveAtom looks up the unique clause with the given label. Zero or
// more than one match short-circuits the *whole* expression to false,
// per §4.4.
func (e *exprEvaluator) resolveAtom(label string) (value bool, ok bool) {
	matches := e.byLabel[label]
	if len(matches) != 1 {
		return false, false
	}
	return e.analyzeClauseCached(matches[0]), true
}

// evaluate walks tokens left to right per §4.4's grammar, with no
// operator precedence beyond explicit parenthesization, and returns
// (value, true) or (false, false) if the expression references an
// unresolvable label.
func (e *exprEvaluator) evaluate(tokens []string) (bool, bool) {
	i := 0
	current := false
	pendingOp := OpOR
	invert := false

	for i < len(tokens) {
		tok := tokens[i]

		if tok == "NOT" {
			invert = true
			i++
			continue
		}
		if op, isOp := parseBinOp(tok); isOp {
			pendingOp = op
			i++
			continue
		}

		// tok begins an atom: either a parenthesized group or a bare
		// variable. Determine its token span [i, j] first — we need
		// this even when short-circuiting, to know how far to skip.
		j := i
		if countLeadingOpens(tok) > 0 {
			curOpens, curCloses := 0, 0
			for ; j < len(tokens); j++ {
				curOpens += countLeadingOpens(tokens[j])
				curCloses += countTrailingCloses(tokens[j])
				if curCloses >= curOpens {
					break
				}
			}
			if j >= len(tokens) {
				j = len(tokens) - 1
			}
		}

		if skip, result := shouldShortCircuit(pendingOp, current); skip {
			current = result
			invert = false
			i = j + 1
			continue
		}

		var atomVal bool
		if countLeadingOpens(tok) > 0 {
			sub := make([]string, j-i+1)
			copy(sub, tokens[i:j+1])
			sub[0] = stripOneLeadingParen(sub[0])
			sub[len(sub)-1] = stripOneTrailingParen(sub[len(sub)-1])
			val, ok := e.evaluate(sub)
			if !ok {
				return false, false
			}
			atomVal = val
		} else {
			val, ok := e.resolveAtom(stripAllParens(tok))
			if !ok {
				return false, false
			}
			atomVal = val
		}

		if invert {
			atomVal = !atomVal
		}
		current = Operate(pendingOp, current, atomVal)
		invert = false
		i = j + 1
	}

	return current, true
}

// EvaluateExpression evaluates rule.Expression against result, using
// handle and cache for the §5 memoization discipline. Returns false if
// the expression references a label that doesn't resolve to exactly
// one clause on rule — this should never happen for a rule that passed
// VerifyRules, but the evaluator stays total regardless.
func EvaluateExpression(rule ruletypes.Rule, result *ruletypes.CompareResult, handle ResultHandle, cache ClauseCache) bool {
	tokens := strings.Fields(rule.Expression)
	if len(tokens) == 0 {
		return false
	}
	ev := newExprEvaluator(rule, result, handle, cache)
	value, ok := ev.evaluate(tokens)
	if !ok {
		return false
	}
	return value
}
