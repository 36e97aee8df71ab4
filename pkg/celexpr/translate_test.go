package celexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compareguard/ruleanalyzer/pkg/celexpr"
)

func TestTranslate_BasicOperators(t *testing.T) {
	got, err := celexpr.Translate("A AND (B OR NOT C)")
	require.NoError(t, err)
	assert.Equal(t, `clauses["A"] && (clauses["B"] || ! clauses["C"])`, got)
}

func TestTranslate_XORBecomesInequality(t *testing.T) {
	got, err := celexpr.Translate("A XOR B")
	require.NoError(t, err)
	assert.Equal(t, `clauses["A"] != clauses["B"]`, got)
}

func TestTranslate_NANDRejected(t *testing.T) {
	_, err := celexpr.Translate("A NAND B")
	assert.Error(t, err)
}

func TestTranslate_NORRejected(t *testing.T) {
	_, err := celexpr.Translate("A NOR B")
	assert.Error(t, err)
}

func TestTranslate_EmptyExpressionIsError(t *testing.T) {
	_, err := celexpr.Translate("")
	assert.Error(t, err)
}

func TestTranslate_NestedParens(t *testing.T) {
	got, err := celexpr.Translate("((A))")
	require.NoError(t, err)
	assert.Equal(t, `((clauses["A"]))`, got)
}
