package ruleloader

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaVersion reports whether ruleVersion satisfies constraint,
// the schema-version compatibility gate the spec's SchemaVersion
// supplement calls for: a rule authored against a newer clause/operator
// vocabulary than this binary understands should be rejected at load
// time rather than silently mis-evaluated.
//
// Grounded on core/pkg/trust/pack_loader.go's enforceMonotonicVersion,
// which uses the same library for a version-ordering rather than a
// constraint check; the constraint form mirrors how
// core/pkg/registry/postgres_registry.go sorts by semver.Version.
func CheckSchemaVersion(ruleVersion, constraint string) error {
	v, err := semver.NewVersion(ruleVersion)
	if err != nil {
		return fmt.Errorf("ruleloader: rule schema_version %q is not valid semver: %w", ruleVersion, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("ruleloader: schema version constraint %q is invalid: %w", constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("ruleloader: rule schema_version %s does not satisfy %s", ruleVersion, constraint)
	}
	return nil
}
