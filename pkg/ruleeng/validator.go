package ruleeng

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// RuleValidationIssue is one violation found by VerifyRules. It
// supplements the "human-readable violation string" the spec calls
// for (§4.5, §7) with structured fields so a caller can group or sort
// without parsing Message; Error() still satisfies the plain-string
// contract.
type RuleValidationIssue struct {
	Rule    string
	Field   string // clause label, "expression", or "" for rule-level
	Message string
}

func (i RuleValidationIssue) Error() string {
	if i.Field == "" {
		return fmt.Sprintf("rule %q: %s", i.Rule, i.Message)
	}
	return fmt.Sprintf("rule %q [%s]: %s", i.Rule, i.Field, i.Message)
}

// VerifyRules runs C5's static checks over every rule in file and
// returns the accumulated violations. It never returns an error or
// panics — a malformed rule file is reported as data, per §4.5/§7.
func VerifyRules(file *ruletypes.RuleFile) []RuleValidationIssue {
	var issues []RuleValidationIssue
	if file == nil {
		return issues
	}
	for _, rule := range file.Rules {
		issues = append(issues, verifyRule(rule)...)
	}
	return issues
}

func verifyRule(rule ruletypes.Rule) []RuleValidationIssue {
	var issues []RuleValidationIssue
	add := func(field, format string, args ...any) {
		issues = append(issues, RuleValidationIssue{Rule: rule.Name, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	seenLabels := map[string]int{}
	labeledCount, unlabeledCount := 0, 0
	for _, c := range rule.Clauses {
		if c.HasLabel() {
			labeledCount++
			seenLabels[c.Label]++
			if strings.ContainsAny(c.Label, " ()") {
				add(c.Label, "label contains an illegal character (space, '(' or ')')")
			}
		} else {
			unlabeledCount++
		}
		issues = append(issues, verifyClauseShape(rule.Name, c)...)
	}
	for label, count := range seenLabels {
		if count > 1 {
			add(label, "duplicate clause label")
		}
	}

	// Label totality: all-present or all-absent.
	if labeledCount > 0 && unlabeledCount > 0 {
		add("", "clause labels must be either all present or all absent, not mixed")
	}

	if rule.Expression != "" {
		if unlabeledCount > 0 {
			add("expression", "every clause must carry a label when an expression is present")
		}
		issues = append(issues, verifyExpression(rule)...)
	}

	return issues
}

func verifyClauseShape(ruleName string, c ruletypes.Clause) []RuleValidationIssue {
	var issues []RuleValidationIssue
	add := func(format string, args ...any) {
		issues = append(issues, RuleValidationIssue{Rule: ruleName, Field: c.Label, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Operation {
	case ruletypes.OpEQ, ruletypes.OpNEQ, ruletypes.OpEndsWith, ruletypes.OpStartsWith, ruletypes.OpRegex:
		if len(c.Data) == 0 {
			add("operation %s requires non-empty Data", c.Operation)
		}
		if len(c.DictData) != 0 {
			add("operation %s forbids DictData", c.Operation)
		}
		if c.Operation == ruletypes.OpRegex {
			for _, pattern := range c.Data {
				if _, err := regexp.Compile(pattern); err != nil {
					add("invalid regular expression %q: %v", pattern, err)
				}
			}
		}

	case ruletypes.OpContains, ruletypes.OpContainsAny:
		hasData, hasDict := len(c.Data) != 0, len(c.DictData) != 0
		if hasData == hasDict {
			add("operation %s requires exactly one of Data, DictData to be non-empty", c.Operation)
		}

	case ruletypes.OpGT, ruletypes.OpLT:
		if len(c.DictData) != 0 {
			add("operation %s forbids DictData", c.Operation)
		}
		if len(c.Data) != 1 {
			add("operation %s requires Data to be a single integer", c.Operation)
		} else if _, err := strconv.ParseInt(c.Data[0], 10, 64); err != nil {
			add("operation %s operand %q is not a parseable integer", c.Operation, c.Data[0])
		}

	case ruletypes.OpIsBefore, ruletypes.OpIsAfter:
		if len(c.DictData) != 0 {
			add("operation %s forbids DictData", c.Operation)
		}
		if len(c.Data) != 1 {
			add("operation %s requires Data to be a single timestamp", c.Operation)
		} else if _, err := parseFlexibleTime(c.Data[0]); err != nil {
			add("operation %s operand %q is not a parseable timestamp", c.Operation, c.Data[0])
		}

	case ruletypes.OpIsNull, ruletypes.OpIsTrue, ruletypes.OpIsExpired, ruletypes.OpWasModified:
		if len(c.Data) != 0 || len(c.DictData) != 0 {
			add("operation %s forbids both Data and DictData", c.Operation)
		}

	default:
		add("unsupported operation %q", c.Operation)
	}

	return issues
}

// verifyExpression checks §4.5/§6's grammar: balanced parentheses,
// alternating variable/operator tokens starting and ending on a
// variable, well-formed per-token paren affixes, no consecutive NOTs,
// every variable bound to exactly one declared label and vice versa.
func verifyExpression(rule ruletypes.Rule) []RuleValidationIssue {
	var issues []RuleValidationIssue
	add := func(format string, args ...any) {
		issues = append(issues, RuleValidationIssue{Rule: rule.Name, Field: "expression", Message: fmt.Sprintf(format, args...)})
	}

	tokens := strings.Fields(rule.Expression)
	if len(tokens) == 0 {
		add("expression is empty")
		return issues
	}

	totalOpens, totalCloses := 0, 0
	referenced := map[string]bool{}
	lastWasNot := false
	expectVariable := true // grammar starts on a variable (NOT counts as part of the variable slot)

	for idx, tok := range tokens {
		if err := validateTokenParenShape(tok); err != nil {
			add("token %q at position %d: %v", tok, idx, err)
		}
		opens, closes := countLeadingOpens(tok), countTrailingCloses(tok)
		totalOpens += opens
		totalCloses += closes

		bare := stripAllParens(tok)

		if bare == "NOT" {
			if closes > 0 {
				add("token %q at position %d: NOT may not carry a closing paren", tok, idx)
			}
			if !expectVariable {
				add("token %q at position %d: NOT may not appear where an operator is expected", tok, idx)
			}
			if lastWasNot {
				add("token %q at position %d: consecutive NOT", tok, idx)
			}
			lastWasNot = true
			continue // still expecting a variable next
		}

		if expectVariable {
			if _, isOp := parseBinOp(bare); isOp {
				add("token %q at position %d: expected a variable, found an operator", tok, idx)
			} else {
				referenced[bare] = true
			}
			expectVariable = false
		} else {
			if _, isOp := parseBinOp(bare); !isOp {
				add("token %q at position %d: expected an operator, found a variable", tok, idx)
			}
			expectVariable = true
		}
		lastWasNot = false
	}

	if expectVariable {
		add("expression must end on a variable, not an operator")
	}
	if totalCloses != totalOpens {
		add("unbalanced parentheses: %d opening vs %d closing", totalOpens, totalCloses)
	}

	declared := map[string]int{}
	for _, c := range rule.Clauses {
		declared[c.Label]++
	}
	for label := range referenced {
		if declared[label] == 0 {
			add("variable %q does not resolve to any declared clause label", label)
		} else if declared[label] > 1 {
			add("variable %q resolves to more than one clause label", label)
		}
	}
	for label := range declared {
		if !referenced[label] {
			add("declared label %q is not referenced by the expression", label)
		}
	}

	return issues
}

// validateTokenParenShape enforces §4.5's per-token rule: '(' only as
// a contiguous prefix, ')' only as a contiguous suffix, nothing else
// between them, nothing else after a ')' or before a '('.
func validateTokenParenShape(tok string) error {
	opens := countLeadingOpens(tok)
	closes := countTrailingCloses(tok)
	if opens+closes > len(tok) {
		// opens and closes count disjoint characters, so their sum never
		// exceeds len(tok) and this branch is not taken; a token made only
		// of parens, e.g. "((" or "))", falls through to the empty-body
		// check below and is rejected there.
		if opens > 0 && closes > 0 {
			return fmt.Errorf("token is parens with no variable body")
		}
		return nil
	}
	body := tok[opens : len(tok)-closes]
	if strings.ContainsAny(body, "()") {
		return fmt.Errorf("parentheses may only appear as a contiguous prefix/suffix")
	}
	if body == "" {
		return fmt.Errorf("token has no variable or operator body")
	}
	return nil
}
