// Package ruleloader loads, structurally validates, and authenticates
// rule files from the backends an operator might keep a catalog in:
// local disk, an embedded bundle, object storage, or a database-backed
// registry. It owns the YAML authoring format and its conversion to
// pkg/ruletypes; pkg/ruleeng never parses rule-file bytes itself.
package ruleloader

import (
	"fmt"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// document is the on-disk YAML shape a rule file is authored in. It is
// deliberately a separate type from ruletypes.RuleFile: the wire format
// uses plain strings for enums (friendlier to hand-author and to a
// JSON Schema check) while the in-memory model uses typed constants.
type document struct {
	SchemaVersion   string                     `yaml:"schema_version" json:"schema_version"`
	DefaultVerdicts map[string]string          `yaml:"default_verdicts,omitempty" json:"default_verdicts,omitempty"`
	Rules           []documentRule             `yaml:"rules" json:"rules"`
}

type documentRule struct {
	Name          string            `yaml:"name" json:"name"`
	Description   string            `yaml:"description,omitempty" json:"description,omitempty"`
	Verdict       string            `yaml:"verdict" json:"verdict"`
	ResultType    string            `yaml:"result_type" json:"result_type"`
	Platforms     []string          `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	ChangeTypes   []string          `yaml:"change_types,omitempty" json:"change_types,omitempty"`
	Clauses       []documentClause  `yaml:"clauses" json:"clauses"`
	Expression    string            `yaml:"expression,omitempty" json:"expression,omitempty"`
	SchemaVersion string            `yaml:"schema_version,omitempty" json:"schema_version,omitempty"`
}

type documentClause struct {
	Field     string            `yaml:"field" json:"field"`
	Operation string            `yaml:"operation" json:"operation"`
	Data      []string          `yaml:"data,omitempty" json:"data,omitempty"`
	DictData  map[string]string `yaml:"dict_data,omitempty" json:"dict_data,omitempty"`
	Label     string            `yaml:"label,omitempty" json:"label,omitempty"`
}

// toRuleFile converts the wire document into the in-memory model,
// collecting every conversion error (unknown verdict, clause with no
// field) instead of stopping at the first one, so a caller can report
// everything wrong with a rule file in one pass. Platform and change-type
// names are copied as given and not checked.
func (d document) toRuleFile() (*ruletypes.RuleFile, []error) {
	var errs []error
	rf := &ruletypes.RuleFile{DefaultVerdicts: map[ruletypes.ResultType]ruletypes.Verdict{}}

	for rt, vs := range d.DefaultVerdicts {
		v, err := ruletypes.ParseVerdict(vs)
		if err != nil {
			errs = append(errs, fmt.Errorf("default_verdicts[%s]: %w", rt, err))
			continue
		}
		rf.DefaultVerdicts[ruletypes.ResultType(rt)] = v
	}

	for i, dr := range d.Rules {
		rule, ruleErrs := dr.toRule()
		for _, e := range ruleErrs {
			errs = append(errs, fmt.Errorf("rules[%d] %q: %w", i, dr.Name, e))
		}
		rf.Rules = append(rf.Rules, rule)
	}

	return rf, errs
}

func (dr documentRule) toRule() (ruletypes.Rule, []error) {
	var errs []error
	r := ruletypes.Rule{
		Name:          dr.Name,
		Description:   dr.Description,
		ResultType:    ruletypes.ResultType(dr.ResultType),
		Expression:    dr.Expression,
		SchemaVersion: dr.SchemaVersion,
	}

	v, err := ruletypes.ParseVerdict(dr.Verdict)
	if err != nil {
		errs = append(errs, err)
	}
	r.Verdict = v

	for _, p := range dr.Platforms {
		r.Platforms = append(r.Platforms, ruletypes.Platform(p))
	}
	for _, ct := range dr.ChangeTypes {
		r.ChangeTypes = append(r.ChangeTypes, ruletypes.ChangeType(ct))
	}

	for j, dc := range dr.Clauses {
		c, err := dc.toClause()
		if err != nil {
			errs = append(errs, fmt.Errorf("clauses[%d]: %w", j, err))
			continue
		}
		r.Clauses = append(r.Clauses, c)
	}

	return r, errs
}

func (dc documentClause) toClause() (ruletypes.Clause, error) {
	if dc.Field == "" {
		return ruletypes.Clause{}, fmt.Errorf("clause has no field")
	}
	c := ruletypes.Clause{
		Field:     dc.Field,
		Operation: ruletypes.Operation(dc.Operation),
		Data:      dc.Data,
		Label:     dc.Label,
	}
	for k, v := range dc.DictData {
		c.DictData = append(c.DictData, ruletypes.KVPair{Key: k, Value: v})
	}
	return c, nil
}
