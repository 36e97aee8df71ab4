package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/compareguard/ruleanalyzer/pkg/ruleeng"
	"github.com/compareguard/ruleanalyzer/pkg/ruleloader"
	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// compareResultFixture is the on-disk JSON shape `analyze` replays: a
// single compare result, authored by hand or captured from the
// snapshot/diff pipeline this engine's §1 treats as an external
// collaborator.
type compareResultFixture struct {
	ResultType string `json:"result_type"`
	ChangeType string `json:"change_type"`
	Base       any    `json:"base"`
	Compare    any    `json:"compare"`
}

// analyzeReport is what `analyze` prints: the verdict and matched rule
// names, enough for a CI pipeline to assert against without parsing
// the full ruletypes.Rule structs back out.
type analyzeReport struct {
	Verdict      string   `json:"verdict"`
	MatchedRules []string `json:"matched_rules"`
}

// runAnalyzeCmd implements `ruleanalyzer analyze`: load a rule file and
// a captured compare-result fixture, run the engine, print the
// verdict and matched rules as JSON.
//
// Exit codes:
//
//	0 = ran to completion (regardless of whether any rule matched)
//	2 = runtime error
func runAnalyzeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("analyze", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var rulesPath, inputPath, platform string
	cmd.StringVar(&rulesPath, "rules", "", "Path to the rule file (REQUIRED)")
	cmd.StringVar(&inputPath, "input", "", "Path to a compare-result JSON fixture (REQUIRED)")
	cmd.StringVar(&platform, "platform", "LINUX", "Platform tag to evaluate rules against")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if rulesPath == "" || inputPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --rules and --input are both required")
		return 2
	}

	ctx := context.Background()
	file, err := ruleloader.Load(ctx, ruleloader.FileLoader{Path: rulesPath}, ruleloader.LoadOptions{})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: loading %s: %v\n", rulesPath, err)
		return 2
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: reading %s: %v\n", inputPath, err)
		return 2
	}
	var fixture compareResultFixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: parsing %s: %v\n", inputPath, err)
		return 2
	}

	result := &ruletypes.CompareResult{
		ResultType: ruletypes.ResultType(fixture.ResultType),
		ChangeType: ruletypes.ChangeType(fixture.ChangeType),
		Base:       fixture.Base,
		Compare:    fixture.Compare,
	}

	analyzer := ruleeng.NewAnalyzer(ruletypes.Platform(platform), file)
	if _, err := analyzer.Analyze(ctx, result); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: analyze: %v\n", err)
		return 2
	}

	// The engine itself never combines verdicts (§3) — it only reports
	// which rules matched. As the caller, picking the maximum verdict
	// across matched rules for a human-facing report is our job.
	verdict := ruletypes.VerdictNone
	report := analyzeReport{}
	for _, r := range result.MatchedRules {
		report.MatchedRules = append(report.MatchedRules, r.Name)
		if r.Verdict > verdict {
			verdict = r.Verdict
		}
	}
	report.Verdict = verdict.String()
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: encoding report: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, string(out))
	return 0
}
