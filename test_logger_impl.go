package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hrdashboard/dashboard-contract-tests/framework"
	"github.com/hrdashboard/dashboard-contract-tests/logging"

	"github.com/fatih/color"
)

var (
	passColor    = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed, color.Bold)
	skipColor    = color.New(color.FgYellow)
	summaryColor = color.New(color.Bold)
)

type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Fprintf(c.Out, "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(c.Out, "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput logging.CapturedOutput) {
	if failed {
		fmt.Fprintf(c.Out, "  %s %s\n", failColor.Sprint("FAILED:"), id)
	} else {
		fmt.Fprintf(c.Out, "  %s %s\n", passColor.Sprint("PASS:"), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.Out, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		fmt.Fprintf(c.Out, "  %s %s\n", skipColor.Sprint("SKIPPED:"), id)
	} else {
		fmt.Fprintf(c.Out, "  %s %s (%s)\n", skipColor.Sprint("SKIPPED:"), id, reason)
	}
}

// PrintResults writes the summary that follows the per-test output.
func PrintResults(out io.Writer, results framework.Results) {
	passed, failed, skipped := results.Counts()
	fmt.Fprintln(out, summaryColor.Sprint("Results:"))
	fmt.Fprintf(out, "  %d passed, %d failed, %d skipped\n", passed, failed, skipped)
	if results.Aborted != nil {
		fmt.Fprintf(out, "  %s %s\n", failColor.Sprint("ABORTED:"), results.Aborted)
	}
	if len(results.Failures) == 0 {
		return
	}
	fmt.Fprintln(out, "Failed tests:")
	for _, f := range results.Failures {
		fmt.Fprintf(out, "  %s\n", f.TestID)
		for _, a := range f.Assertions {
			if !a.Passed {
				fmt.Fprintf(out, "    %s\n", a)
			}
		}
	}
}
