package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hrdashboard/dashboard-contract-tests/dashtests"
	"github.com/hrdashboard/dashboard-contract-tests/fixtures"
	"github.com/hrdashboard/dashboard-contract-tests/framework"
	"github.com/hrdashboard/dashboard-contract-tests/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var params commandParams
	if err := params.Read(args, stderr); err != nil {
		fmt.Fprintf(stderr, "Invalid parameters: %s\n", err)
		return 1
	}

	mainDebugLogger := logging.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(stdout, "", log.LstdFlags)
	}

	suite := dashtests.DefaultSuite()
	if params.suitePath != "" {
		s, err := dashtests.LoadSuite(params.suitePath)
		if err != nil {
			fmt.Fprintf(stderr, "Suite error: %s\n", err)
			return 1
		}
		suite = s
	}
	if params.fixturesPath != "" {
		overrides, err := fixtures.LoadOverrides(params.fixturesPath)
		if err != nil {
			fmt.Fprintf(stderr, "Fixture error: %s\n", err)
			return 1
		}
		suite.Fixtures.Apply(overrides)
	}
	if params.settleSet {
		suite.SettleTimeout = params.settleTimeout
	}

	harness, err := framework.NewTestHarness(
		params.markupSource,
		params.fetchTimeout,
		mainDebugLogger,
		stdout,
	)
	if err != nil {
		fmt.Fprintf(stderr, "Markup error: %s\n", err)
		return 1
	}

	fmt.Fprintln(stdout)
	framework.PrintFilterDescription(stdout, params.filters)

	fmt.Fprintln(stdout, "Running test suite")

	testLogger := &ConsoleTestLogger{
		Out:                  stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := dashtests.RunTestSuite(harness, suite, params.filters.AsFilter, testLogger)

	fmt.Fprintln(stdout)
	PrintResults(stdout, results)
	if results.OK() {
		return 0
	}
	if f := results.FirstFailure(); f != nil {
		fmt.Fprintf(stderr, "%s\n", f)
		if len(f.ID.Path) > 0 {
			fmt.Fprintf(stderr, "To run this test again:\n  %s\n", params.rerunCommand(f.ID))
		}
	}
	return 1
}
