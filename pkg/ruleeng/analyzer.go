package ruleeng

import (
	"context"
	"errors"
	"time"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// ErrNilArgument is the one error the engine surfaces to its caller
// per §7: calling Apply or Analyze with a nil rule/compare result is a
// programmer error, not an evaluation fault.
var ErrNilArgument = errors.New("ruleeng: rule and compare result must both be non-nil")

// Hooks lets a caller observe Analyze calls without coupling ruleeng
// to any particular telemetry stack. pkg/observability implements
// this against OpenTelemetry; the zero value (nil) disables
// observation entirely.
type Hooks interface {
	OnAnalyze(ctx context.Context, resultType ruletypes.ResultType, changeType ruletypes.ChangeType, matched int, duration time.Duration)
}

// Analyzer is the C6 facade: it selects candidate rules by
// (result_type, change_type, platform), applies C3/C4 to each, and
// returns the matches.
type Analyzer struct {
	platform ruletypes.Platform
	file     *ruletypes.RuleFile
	cache    ClauseCache
	hooks    Hooks
}

// Option configures an Analyzer at construction.
type Option func(*Analyzer)

// WithClauseCache swaps the default in-process cache for another
// ClauseCache implementation (e.g. RedisClauseCache).
func WithClauseCache(cache ClauseCache) Option {
	return func(a *Analyzer) { a.cache = cache }
}

// WithHooks attaches an observability sink.
func WithHooks(hooks Hooks) Option {
	return func(a *Analyzer) { a.hooks = hooks }
}

// NewAnalyzer constructs an Analyzer for platform against file. A nil
// file is treated as an empty rule file (§6: load failures degrade to
// empty, never crash); Analyze against it always returns no matches.
func NewAnalyzer(platform ruletypes.Platform, file *ruletypes.RuleFile, opts ...Option) *Analyzer {
	if file == nil {
		file = ruletypes.EmptyRuleFile()
	}
	a := &Analyzer{platform: platform, file: file, cache: NewMemClauseCache()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full C6 pipeline against r: reset, candidate
// filtering, per-rule evaluation, cache invalidation, return matches.
// It mutates r.MatchedRules in place; r.Analysis is reset to
// VerdictNone and never raised — the engine reports which rules
// matched, it never combines their verdicts (§3). Picking a verdict
// from r.MatchedRules, if one is wanted, is the caller's job.
func (a *Analyzer) Analyze(ctx context.Context, r *ruletypes.CompareResult) ([]ruletypes.Rule, error) {
	if r == nil {
		return nil, ErrNilArgument
	}
	start := time.Now()

	r.Analysis = ruletypes.VerdictNone
	r.MatchedRules = nil

	handle := NewResultHandle()
	defer a.cache.Clear(handle)

	var matched []ruletypes.Rule
	for _, rule := range a.file.Rules {
		if !candidateMatches(rule, a.platform, r) {
			continue
		}
		ok, err := applyRule(rule, r, handle, a.cache)
		if err != nil {
			// applyRule only errors on nil rule/result, neither of
			// which can happen here; defensive, not reachable.
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	r.MatchedRules = matched
	if a.hooks != nil {
		a.hooks.OnAnalyze(ctx, r.ResultType, r.ChangeType, len(matched), time.Since(start))
	}
	return matched, nil
}

// VerifyRules returns the accumulated violations over every rule this
// Analyzer was constructed with.
func (a *Analyzer) VerifyRules() []RuleValidationIssue {
	return VerifyRules(a.file)
}

func candidateMatches(rule ruletypes.Rule, platform ruletypes.Platform, r *ruletypes.CompareResult) bool {
	return rule.ResultType == r.ResultType && rule.HasPlatform(platform) && rule.HasChangeType(r.ChangeType)
}

// Apply evaluates a single rule against result in isolation, minting
// its own handle/cache scope. This is the public, low-level entry
// point — the one place besides Analyze that surfaces ErrNilArgument
// (§7).
func Apply(rule *ruletypes.Rule, result *ruletypes.CompareResult, cache ClauseCache) (bool, error) {
	if rule == nil || result == nil {
		return false, ErrNilArgument
	}
	if cache == nil {
		cache = NewMemClauseCache()
	}
	handle := NewResultHandle()
	defer cache.Clear(handle)
	return applyRule(*rule, result, handle, cache)
}

// applyRule implements §3's "implicit AND" / expression dispatch: a
// rule with an Expression is evaluated by C4; otherwise every clause
// must evaluate true, left to right with short-circuit, and a rule
// with zero clauses matches unconditionally (§8 property 2).
func applyRule(rule ruletypes.Rule, result *ruletypes.CompareResult, handle ResultHandle, cache ClauseCache) (bool, error) {
	if result == nil {
		return false, ErrNilArgument
	}
	if rule.Expression != "" {
		return EvaluateExpression(rule, result, handle, cache), nil
	}
	for _, c := range rule.Clauses {
		id := clauseIdentityOf(c)
		v, ok := cache.Get(handle, id)
		if !ok {
			v = AnalyzeClause(result, c)
			cache.Set(handle, id, v)
		}
		if !v {
			return false, nil
		}
	}
	return true, nil
}
