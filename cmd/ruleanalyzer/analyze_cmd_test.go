package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyzeCmdRules = `
schema_version: "1.0.0"
rules:
  - name: world-writable-passwd
    verdict: ERROR
    result_type: FILE
    clauses:
      - field: path
        operation: EQ
        data: ["/etc/passwd"]
`

const analyzeCmdFixture = `{
  "result_type": "FILE",
  "change_type": "CREATED",
  "compare": {"path": "/etc/passwd"}
}`

func writeJSONFixture(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunAnalyzeCmd_MatchedRuleReportsVerdict(t *testing.T) {
	rulesPath := writeRulesFixture(t, analyzeCmdRules)
	inputPath := writeJSONFixture(t, "input.json", analyzeCmdFixture)

	var stdout, stderr bytes.Buffer
	code := runAnalyzeCmd([]string{"--rules", rulesPath, "--input", inputPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"verdict": "ERROR"`)
	assert.Contains(t, stdout.String(), "world-writable-passwd")
}

func TestRunAnalyzeCmd_NoMatchReportsNone(t *testing.T) {
	rulesPath := writeRulesFixture(t, analyzeCmdRules)
	inputPath := writeJSONFixture(t, "input.json", `{"result_type":"FILE","change_type":"CREATED","compare":{"path":"/etc/shadow"}}`)

	var stdout, stderr bytes.Buffer
	code := runAnalyzeCmd([]string{"--rules", rulesPath, "--input", inputPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"verdict": "NONE"`)
}

func TestRunAnalyzeCmd_MissingFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runAnalyzeCmd([]string{"--rules", "x.yaml"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "required")
}

func TestRunAnalyzeCmd_UnreadableInputFile(t *testing.T) {
	rulesPath := writeRulesFixture(t, analyzeCmdRules)
	var stdout, stderr bytes.Buffer
	code := runAnalyzeCmd([]string{"--rules", rulesPath, "--input", "/nonexistent.json"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRunAnalyzeCmd_MalformedInputJSON(t *testing.T) {
	rulesPath := writeRulesFixture(t, analyzeCmdRules)
	inputPath := writeJSONFixture(t, "bad.json", `{not-json`)
	var stdout, stderr bytes.Buffer
	code := runAnalyzeCmd([]string{"--rules", rulesPath, "--input", inputPath}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}
