package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verifyCmdValidRules = `
schema_version: "1.0.0"
rules:
  - name: ok
    verdict: WARNING
    result_type: FILE
    clauses:
      - field: path
        operation: EQ
        data: ["/etc/passwd"]
        label: A
    expression: "A"
`

const verifyCmdBrokenRules = `
schema_version: "1.0.0"
rules:
  - name: broken
    verdict: WARNING
    result_type: FILE
    clauses:
      - field: path
        operation: EQ
        data: ["/etc/passwd"]
    expression: "A AND (B"
`

func writeRulesFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunVerifyCmd_NoViolations(t *testing.T) {
	path := writeRulesFixture(t, verifyCmdValidRules)
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd([]string{"--rules", path}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "no violations")
}

func TestRunVerifyCmd_ViolationsFound(t *testing.T) {
	path := writeRulesFixture(t, verifyCmdBrokenRules)
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd([]string{"--rules", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "violation(s) found")
}

func TestRunVerifyCmd_MissingRulesFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd([]string{}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--rules is required")
}

func TestRunVerifyCmd_UnreadableRulesFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd([]string{"--rules", "/nonexistent/path.yaml"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Error")
}
