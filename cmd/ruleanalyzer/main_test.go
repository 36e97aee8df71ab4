package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ruleanalyzer"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_HelpPrintsUsageToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ruleanalyzer", "help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Usage:")
	assert.Empty(t, stderr.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ruleanalyzer", "bogus"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.True(t, strings.Contains(stderr.String(), "Unknown command"))
}
