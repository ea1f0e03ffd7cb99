package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hrdashboard/dashboard-contract-tests/framework"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboardMarkup = "dashtests/testdata/Index.html"

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Out: &buf}

	passed := framework.TestID{Path: []string{"no privileges"}}
	failed := framework.TestID{Path: []string{"approver only"}}
	skipped := framework.TestID{Path: []string{"editor only"}}
	failure := framework.CheckOutcome{
		Description: `"my requests" tab visibility`,
		Expected:    "none",
		Actual:      "block",
	}

	logger.TestStarted(passed)
	logger.TestFinished(passed, false, nil)
	logger.TestStarted(failed)
	logger.TestError(failed, failure.AsError())
	logger.TestFinished(failed, true, nil)
	logger.TestStarted(skipped)
	logger.TestSkipped(skipped, "run aborted")

	failedResult := framework.TestResult{
		TestID: failed,
		Assertions: []framework.CheckOutcome{
			{Description: "app view is shown", Passed: true, Expected: "block", Actual: "block"},
			failure,
		},
	}
	PrintResults(&buf, framework.Results{
		Tests: []framework.TestResult{
			{TestID: passed},
			failedResult,
			{TestID: skipped, Skipped: true},
		},
		Failures: []framework.TestResult{failedResult},
	})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "console_report", buf.Bytes())
}

func TestRunPassesAgainstReferenceDashboard(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-markup", dashboardMarkup}, &stdout, &stderr)
	assert.Equal(t, 0, code, "stdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
	assert.Contains(t, stdout.String(), "4 passed, 0 failed, 0 skipped")
	assert.Empty(t, stderr.String())
}

func TestRunFailsWithRerunCommand(t *testing.T) {
	markup, err := os.ReadFile(dashboardMarkup)
	require.NoError(t, err)
	broken := strings.Replace(string(markup),
		"userCanApprove ? 'block' : 'none'",
		"userCanApprove ? 'none' : 'block'", 1)
	require.NotEqual(t, string(markup), broken)
	path := filepath.Join(t.TempDir(), "broken page.html")
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-markup", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "FAILED: no privileges")
	assert.Contains(t, stderr.String(), `"approvals" tab visibility: expected "none", got "block"`)
	assert.Contains(t, stderr.String(), "-run '^no privileges$'")
	assert.Contains(t, stderr.String(), "'"+path+"'")
}

func TestRunFilter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-markup", dashboardMarkup, "-run", "^editor only$"}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "skip any not matching")
	assert.Contains(t, stdout.String(), "1 passed, 0 failed, 0 skipped")
}

func TestRunMissingMarkup(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-markup is required")

	stderr.Reset()
	assert.Equal(t, 1, run([]string{"-markup", filepath.Join(t.TempDir(), "nope.html")}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "could not load markup")
}

func TestRunAbortsOnScriptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><script>throw new Error("boom");</script></body></html>`), 0o600))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-markup", path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "SKIPPED: approver only (run aborted)")
	assert.Contains(t, stdout.String(), "ABORTED:")
}

func TestRerunCommandQuoting(t *testing.T) {
	p := commandParams{markupSource: "pages/my page.html", suitePath: "suite.yaml"}
	cmd := p.rerunCommand(framework.TestID{Path: []string{"editor (beta)"}})
	assert.Equal(t, `dashboard-contract-tests -markup 'pages/my page.html' -suite suite.yaml -run '^editor \(beta\)$' -debug`, cmd)
}
