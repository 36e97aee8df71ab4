package ruleeng_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compareguard/ruleanalyzer/pkg/ruleeng"
	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

func TestAnalyzer_ImplicitANDOverClauses(t *testing.T) {
	rf := &ruletypes.RuleFile{Rules: []ruletypes.Rule{{
		Name:       "implicit-and",
		Verdict:    ruletypes.VerdictWarning,
		ResultType: "FILE",
		Clauses: []ruletypes.Clause{
			{Field: "name", Operation: ruletypes.OpEQ, Data: []string{"passwd"}},
			{Field: "size", Operation: ruletypes.OpGT, Data: []string{"0"}},
		},
	}}}
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, rf)
	result := &ruletypes.CompareResult{
		ResultType: "FILE",
		ChangeType: ruletypes.ChangeCreated,
		Compare:    map[string]any{"name": "passwd", "size": "644"},
	}
	matched, err := a.Analyze(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "implicit-and", matched[0].Name)
	// §3: the engine never combines verdicts into Analysis, it only
	// reports which rules matched; Analysis stays at its reset value.
	assert.Equal(t, ruletypes.VerdictNone, result.Analysis)
}

// §8 property 2: a rule with zero clauses matches every candidate.
func TestAnalyzer_EmptyClauseRuleAlwaysMatches(t *testing.T) {
	rf := &ruletypes.RuleFile{Rules: []ruletypes.Rule{{
		Name: "catch-all", ResultType: "FILE", Verdict: ruletypes.VerdictInformation,
	}}}
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, rf)
	result := &ruletypes.CompareResult{ResultType: "FILE", ChangeType: ruletypes.ChangeCreated, Compare: map[string]any{}}
	matched, err := a.Analyze(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

// §8 property 6: candidate filtering by result_type/change_type/platform.
func TestAnalyzer_CandidateFiltering(t *testing.T) {
	rf := &ruletypes.RuleFile{Rules: []ruletypes.Rule{
		{Name: "wrong-result-type", ResultType: "REGISTRY"},
		{Name: "wrong-change-type", ResultType: "FILE", ChangeTypes: []ruletypes.ChangeType{ruletypes.ChangeDeleted}},
		{Name: "wrong-platform", ResultType: "FILE", Platforms: []ruletypes.Platform{ruletypes.PlatformWindows}},
		{Name: "matches", ResultType: "FILE"},
	}}
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, rf)
	result := &ruletypes.CompareResult{ResultType: "FILE", ChangeType: ruletypes.ChangeCreated, Compare: map[string]any{}}
	matched, err := a.Analyze(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "matches", matched[0].Name)
}

func TestAnalyzer_ResetsAnalysisEachCall(t *testing.T) {
	rf := &ruletypes.RuleFile{Rules: []ruletypes.Rule{{Name: "r", ResultType: "FILE", Verdict: ruletypes.VerdictError}}}
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, rf)
	result := &ruletypes.CompareResult{
		ResultType: "FILE", ChangeType: ruletypes.ChangeCreated,
		Analysis: ruletypes.VerdictError, MatchedRules: []ruletypes.Rule{{Name: "stale"}},
	}
	_, err := a.Analyze(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, result.MatchedRules, 1)
	assert.Equal(t, "r", result.MatchedRules[0].Name)
	// Analyze resets Analysis to NONE and never raises it, even though
	// the matched rule's own Verdict is ERROR — combining verdicts is
	// the caller's job, not the engine's (§3).
	assert.Equal(t, ruletypes.VerdictNone, result.Analysis)
}

func TestAnalyzer_NilResultReturnsErrNilArgument(t *testing.T) {
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, ruletypes.EmptyRuleFile())
	_, err := a.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ruleeng.ErrNilArgument)
}

func TestAnalyzer_NilRuleFileDegradesToEmpty(t *testing.T) {
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, nil)
	result := &ruletypes.CompareResult{ResultType: "FILE", ChangeType: ruletypes.ChangeCreated}
	matched, err := a.Analyze(context.Background(), result)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestApply_NilArgumentsSignalError(t *testing.T) {
	_, err := ruleeng.Apply(nil, &ruletypes.CompareResult{}, nil)
	assert.ErrorIs(t, err, ruleeng.ErrNilArgument)

	rule := ruletypes.Rule{}
	_, err = ruleeng.Apply(&rule, nil, nil)
	assert.ErrorIs(t, err, ruleeng.ErrNilArgument)
}

func TestApply_MintsOwnCacheWhenNilGiven(t *testing.T) {
	rule := ruletypes.Rule{Name: "r", ResultType: "FILE"}
	result := &ruletypes.CompareResult{ResultType: "FILE", ChangeType: ruletypes.ChangeCreated}
	ok, err := ruleeng.Apply(&rule, result, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

// §8 property 1: totality — Analyze never panics, even on
// a rule file containing the reserved operators or malformed clauses.
func TestAnalyzer_TotalityAgainstMalformedRules(t *testing.T) {
	rf := &ruletypes.RuleFile{Rules: []ruletypes.Rule{{
		Name:       "malformed",
		ResultType: "FILE",
		Clauses: []ruletypes.Clause{
			{Field: "x", Operation: ruletypes.OpDoesNotContain, Data: []string{"y"}},
			{Field: "y", Operation: ruletypes.OpGT, Data: []string{"not-an-int"}},
		},
	}}}
	a := ruleeng.NewAnalyzer(ruletypes.PlatformLinux, rf)
	result := &ruletypes.CompareResult{ResultType: "FILE", ChangeType: ruletypes.ChangeCreated, Compare: map[string]any{}}
	assert.NotPanics(t, func() {
		_, _ = a.Analyze(context.Background(), result)
	})
}
