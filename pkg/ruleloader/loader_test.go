package ruleloader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compareguard/ruleanalyzer/pkg/ruleloader"
	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

const validYAML = `
schema_version: "1.0.0"
default_verdicts:
  FILE: WARNING
rules:
  - name: world-writable-passwd
    verdict: ERROR
    result_type: FILE
    platforms: [LINUX]
    change_types: [CREATED, MODIFIED]
    clauses:
      - field: path
        operation: EQ
        data: ["/etc/passwd"]
        label: A
      - field: mode
        operation: CONTAINS
        data: ["w"]
        label: B
    expression: "A AND B"
`

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidFileRoundTrips(t *testing.T) {
	path := writeTempFile(t, validYAML)
	rf, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: path}, ruleloader.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, rf.Rules, 1)
	assert.Equal(t, "world-writable-passwd", rf.Rules[0].Name)
	assert.Equal(t, ruletypes.VerdictError, rf.Rules[0].Verdict)
	assert.Equal(t, ruletypes.VerdictWarning, rf.DefaultVerdicts["FILE"])
	assert.True(t, rf.Rules[0].HasPlatform(ruletypes.PlatformLinux))
	assert.False(t, rf.Rules[0].HasPlatform(ruletypes.PlatformWindows))
}

func TestLoad_MissingFileDegradesToEmpty(t *testing.T) {
	rf, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: "/nonexistent/rules.yaml"}, ruleloader.LoadOptions{})
	require.Error(t, err)
	assert.Empty(t, rf.Rules)
}

func TestLoad_StructurallyInvalidDocumentFails(t *testing.T) {
	const bad = `
schema_version: "1.0.0"
rules:
  - name: missing-verdict-and-result-type
    clauses: []
`
	path := writeTempFile(t, bad)
	rf, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: path}, ruleloader.LoadOptions{})
	require.Error(t, err)
	assert.Empty(t, rf.Rules)
}

func TestLoad_UnknownVerdictIsConversionError(t *testing.T) {
	const bad = `
schema_version: "1.0.0"
rules:
  - name: bogus-verdict
    verdict: CATASTROPHIC
    result_type: FILE
    clauses: []
`
	path := writeTempFile(t, bad)
	_, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: path}, ruleloader.LoadOptions{})
	assert.Error(t, err)
}

func TestLoad_SchemaVersionGate(t *testing.T) {
	const versioned = `
schema_version: "1.0.0"
rules:
  - name: versioned
    verdict: WARNING
    result_type: FILE
    schema_version: "2.0.0"
    clauses: []
`
	path := writeTempFile(t, versioned)
	_, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: path}, ruleloader.LoadOptions{RequiredSchemaVersion: "^1.0.0"})
	assert.Error(t, err)

	rf, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: path}, ruleloader.LoadOptions{RequiredSchemaVersion: "^2.0.0"})
	require.NoError(t, err)
	assert.Len(t, rf.Rules, 1)
}

func TestContentHash_StableAcrossKeyOrder(t *testing.T) {
	a := []byte(`{"b":1,"a":2}`)
	b := []byte(`{"a":2,"b":1}`)
	ha, err := ruleloader.ContentHash(a)
	require.NoError(t, err)
	hb, err := ruleloader.ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
