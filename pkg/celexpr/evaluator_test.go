package celexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compareguard/ruleanalyzer/pkg/celexpr"
)

func TestEvaluator_PrecedenceOverridesFlatLeftToRight(t *testing.T) {
	eval, err := celexpr.NewEvaluator()
	require.NoError(t, err)

	// Flat mode would read this strictly left-to-right: (A OR B) AND C.
	// CEL precedence gives && tighter binding: A OR (B AND C).
	ok, cerr := eval.Evaluate("A OR B AND C", map[string]bool{"A": true, "B": false, "C": false})
	require.Nil(t, cerr)
	assert.True(t, ok)
}

func TestEvaluator_UnresolvableLabelEvaluatesFalse(t *testing.T) {
	eval, err := celexpr.NewEvaluator()
	require.NoError(t, err)

	ok, cerr := eval.Evaluate("A AND B", map[string]bool{"A": true})
	require.Nil(t, cerr)
	assert.False(t, ok)
}

func TestEvaluator_RejectsNonDeterministicConstructs(t *testing.T) {
	eval, err := celexpr.NewEvaluator()
	require.NoError(t, err)

	_, cerr := eval.Evaluate("A AND (1.5 > 1)", map[string]bool{"A": true})
	require.NotNil(t, cerr)
	assert.Equal(t, "CELEXPR/VALIDATION_FAILED", cerr.Code)
}

func TestEvaluator_TranslateFailurePropagates(t *testing.T) {
	eval, err := celexpr.NewEvaluator()
	require.NoError(t, err)

	_, cerr := eval.Evaluate("A NAND B", map[string]bool{"A": true, "B": true})
	require.NotNil(t, cerr)
	assert.Equal(t, "CELEXPR/TRANSLATE_FAILED", cerr.Code)
}

func TestEvaluator_NegationAndGrouping(t *testing.T) {
	eval, err := celexpr.NewEvaluator()
	require.NoError(t, err)

	ok, cerr := eval.Evaluate("NOT (A AND B)", map[string]bool{"A": true, "B": false})
	require.Nil(t, cerr)
	assert.True(t, ok)
}
