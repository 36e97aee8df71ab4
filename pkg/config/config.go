// Package config loads the rule analyzer's runtime configuration from
// environment variables. Grounded on core/pkg/config/config.go, which
// uses the same os.Getenv-with-defaults style rather than a flag or
// viper framework.
package config

import (
	"os"
	"strconv"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// Config holds the rule analyzer's runtime configuration. No package in
// this module reads a Config: ruleloader.Load, ruleeng.NewAnalyzer and
// celexpr.NewEvaluator take their settings as arguments, and the field
// comments below name the setting each value is for.
type Config struct {
	// Platform tags which host OS this process analyzes compare
	// results for (§3: Rule.Platforms filtering).
	Platform ruletypes.Platform

	// RuleFileBackend names the pkg/ruleloader backend to load from:
	// "file", "embedded", "s3", "gcs", or "postgres".
	RuleFileBackend string
	RuleFilePath    string // for "file"/"embedded"
	RuleFileBucket  string // for "s3"/"gcs"
	RuleFileKey     string // for "s3"/"gcs"
	RuleFileDSN     string // for "postgres"
	RuleFileCatalog string // for "postgres"

	// SQLiteCachePath, if non-empty, is the path of a local
	// last-known-good cache (pkg/ruleloader.SQLiteCache) for the backend.
	SQLiteCachePath string

	// RequiredSchemaVersion, if non-empty, is the semver constraint for
	// ruleloader.LoadOptions.RequiredSchemaVersion, which is checked
	// against each rule's SchemaVersion when the rule sets one.
	RequiredSchemaVersion string

	// ManifestPublicKeyPEM and ManifestToken, if both non-empty, are the
	// key and token for a signed manifest (ruleloader.ManifestVerifier)
	// attesting the rule file's content hash.
	ManifestPublicKeyPEM string
	ManifestToken        string

	// UseCELExpressionMode records the choice of pkg/celexpr's
	// precedence-aware evaluator over the flat default (§9 design note).
	// ruleeng.Analyzer always evaluates expressions in flat mode.
	UseCELExpressionMode bool

	// ClauseCacheBackend names the pkg/ruleeng.ClauseCache
	// implementation: "memory" (default) or "redis".
	ClauseCacheBackend string
	RedisAddr          string

	LogLevel string

	Observability ObservabilityConfig
}

// ObservabilityConfig configures pkg/observability.
type ObservabilityConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRate   float64
}

// Load reads configuration from the environment, applying the same
// defaults-when-unset pattern as the teacher's config.Load.
func Load() *Config {
	cfg := &Config{
		Platform:              ruletypes.Platform(envOr("RULEANALYZER_PLATFORM", "LINUX")),
		RuleFileBackend:        envOr("RULEANALYZER_RULE_BACKEND", "file"),
		RuleFilePath:           envOr("RULEANALYZER_RULE_PATH", "rules.yaml"),
		RuleFileBucket:         os.Getenv("RULEANALYZER_RULE_BUCKET"),
		RuleFileKey:            os.Getenv("RULEANALYZER_RULE_KEY"),
		RuleFileDSN:            os.Getenv("RULEANALYZER_RULE_DSN"),
		RuleFileCatalog:        envOr("RULEANALYZER_RULE_CATALOG", "default"),
		SQLiteCachePath:        os.Getenv("RULEANALYZER_SQLITE_CACHE_PATH"),
		RequiredSchemaVersion:  os.Getenv("RULEANALYZER_REQUIRED_SCHEMA_VERSION"),
		ManifestPublicKeyPEM:   os.Getenv("RULEANALYZER_MANIFEST_PUBLIC_KEY"),
		ManifestToken:          os.Getenv("RULEANALYZER_MANIFEST_TOKEN"),
		UseCELExpressionMode:   envBool("RULEANALYZER_CEL_EXPRESSIONS", false),
		ClauseCacheBackend:     envOr("RULEANALYZER_CLAUSE_CACHE", "memory"),
		RedisAddr:              os.Getenv("RULEANALYZER_REDIS_ADDR"),
		LogLevel:               envOr("RULEANALYZER_LOG_LEVEL", "INFO"),
		Observability: ObservabilityConfig{
			Enabled:      envBool("RULEANALYZER_OTEL_ENABLED", false),
			ServiceName:  envOr("RULEANALYZER_OTEL_SERVICE_NAME", "rule-analyzer"),
			OTLPEndpoint: envOr("RULEANALYZER_OTEL_ENDPOINT", "localhost:4317"),
			Insecure:     envBool("RULEANALYZER_OTEL_INSECURE", true),
			SampleRate:   envFloat("RULEANALYZER_OTEL_SAMPLE_RATE", 1.0),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
