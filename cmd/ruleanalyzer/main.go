// Command ruleanalyzer is a small CLI around pkg/ruleeng and
// pkg/ruleloader, for CI pipelines that want to lint a rule file or
// replay a captured compare-result fixture without embedding the
// engine in another Go program. Grounded on
// core/cmd/helm/main.go's args[1]-dispatch style and
// core/cmd/helm/verify_cmd.go's flag.NewFlagSet-per-subcommand shape.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the CLI entrypoint, separated from main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "analyze":
		return runAnalyzeCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ruleanalyzer — lint and replay rule-analyzer catalogs")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ruleanalyzer verify  --rules <path>")
	fmt.Fprintln(w, "  ruleanalyzer analyze --rules <path> --input <compare-result.json> [--platform LINUX]")
}
