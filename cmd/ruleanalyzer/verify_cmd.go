package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/compareguard/ruleanalyzer/pkg/ruleeng"
	"github.com/compareguard/ruleanalyzer/pkg/ruleloader"
)

// runVerifyCmd implements `ruleanalyzer verify`: load a rule file and
// run C5's static checks over it, printing every violation.
//
// Exit codes:
//
//	0 = no violations
//	1 = at least one violation
//	2 = runtime error (couldn't load/parse the file at all)
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var rulesPath string
	cmd.StringVar(&rulesPath, "rules", "", "Path to the rule file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if rulesPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --rules is required")
		return 2
	}

	file, err := ruleloader.Load(context.Background(), ruleloader.FileLoader{Path: rulesPath}, ruleloader.LoadOptions{})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: loading %s: %v\n", rulesPath, err)
		return 2
	}

	issues := ruleeng.VerifyRules(file)
	if len(issues) == 0 {
		_, _ = fmt.Fprintf(stdout, "OK: %d rule(s), no violations\n", len(file.Rules))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "%d violation(s) found in %d rule(s):\n", len(issues), len(file.Rules))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue.Error())
	}
	return 1
}
