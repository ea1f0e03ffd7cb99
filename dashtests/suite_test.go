package dashtests

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/framework"
	"github.com/hrdashboard/dashboard-contract-tests/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceMarkup(t *testing.T) string {
	data, err := os.ReadFile("testdata/Index.html")
	require.NoError(t, err)
	return string(data)
}

func testSuite(scenarios ...Scenario) Suite {
	suite := DefaultSuite()
	suite.BridgeDelay = time.Millisecond
	if len(scenarios) > 0 {
		suite.Scenarios = scenarios
	}
	return suite
}

func runSuite(t *testing.T, markup string, suite Suite) framework.Results {
	harness := framework.NewTestHarnessFromMarkup("Index.html", []byte(markup), logging.NullLogger())
	return RunTestSuite(harness, suite, nil, nil)
}

// runActions runs a single scenario whose checklist is replaced by action.
func runActions(t *testing.T, markup string, scenario Scenario, action func(*T)) framework.Results {
	suite := testSuite(scenario)
	harness := framework.NewTestHarnessFromMarkup("Index.html", []byte(markup), logging.NullLogger())
	return framework.Run(nil, nil, func(c *framework.Context) {
		newTestScope(c, harness, &suite).RunScenario(scenario, action)
	})
}

func requireOK(t *testing.T, results framework.Results) {
	t.Helper()
	if f := results.FirstFailure(); f != nil {
		require.Fail(t, "suite failed", "%s", f)
	}
}

func assertionDescriptions(result framework.TestResult) []string {
	var ret []string
	for _, a := range result.Assertions {
		ret = append(ret, a.String())
	}
	return ret
}

func TestDefaultSuitePassesAgainstReferenceDashboard(t *testing.T) {
	results := runSuite(t, referenceMarkup(t), testSuite())
	requireOK(t, results)

	passed, failed, skipped := results.Counts()
	assert.Equal(t, 4, passed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, skipped)

	for _, r := range results.Tests {
		assert.NotEmpty(t, r.Assertions, r.TestID.String())
		for _, a := range r.Assertions {
			assert.True(t, a.Passed, a.String())
		}
	}
}

func TestPermissionVisibilityPerScenario(t *testing.T) {
	markup := referenceMarkup(t)
	for _, s := range DefaultScenarios() {
		t.Run(s.Name, func(t *testing.T) {
			var myRequests, approvals string
			results := runActions(t, markup, s, func(dt *T) {
				DoStartupChecks(dt)
				layout := dt.Layout()
				var err error
				myRequests, err = dt.RequireElement(layout.MyRequestsTab).Style("display")
				require.NoError(dt, err)
				approvals, err = dt.RequireElement(layout.ApprovalsTab).Style("display")
				require.NoError(dt, err)
			})
			requireOK(t, results)
			expected := VisibilityFor(s.Flags)
			assert.Equal(t, displayValue(expected.MyRequests), myRequests)
			assert.Equal(t, displayValue(expected.Approvals), approvals)
		})
	}
}

func TestVisibilityRule(t *testing.T) {
	for _, s := range DefaultScenarios() {
		v := s.Expected()
		assert.Equal(t, !s.Flags.CanEdit, v.MyRequests, s.Name)
		assert.Equal(t, s.Flags.CanApprove, v.Approvals, s.Name)
	}

	override := Scenario{Expect: &Visibility{MyRequests: true, Approvals: true}}
	assert.Equal(t, Visibility{MyRequests: true, Approvals: true}, override.Expected())
}

func TestNavigationFromEveryCard(t *testing.T) {
	markup := referenceMarkup(t)
	base := DefaultScenarios()[0]

	var cards []string
	results := runActions(t, markup, base, func(dt *T) {
		els, err := dt.Env().QueryAll(dt.Layout().CardSelector)
		require.NoError(dt, err)
		for _, el := range els {
			expr, ok, err := el.Attr("onclick")
			require.NoError(dt, err)
			require.True(dt, ok)
			cards = append(cards, expr)
		}
	})
	requireOK(t, results)
	require.Len(t, cards, 5)

	for _, card := range cards {
		t.Run(card, func(t *testing.T) {
			s := base
			s.EntryCard = card
			results := runActions(t, markup, s, func(dt *T) {
				DoStartupChecks(dt)
				DoNavigationChecks(dt)
				DoTeardownChecks(dt)
			})
			requireOK(t, results)
		})
	}
}

func TestEveryTabHasExactlyOneActiveTabAndPane(t *testing.T) {
	reports := "navigateToView('reports', 'demographics')"
	org := "navigateToView('org', 'org-chart')"
	tabs := map[string]string{
		"demographics": reports,
		"resignation":  reports,
		"masterlist":   reports,
		"analytics":    reports,
		"org-chart":    org,
		"my-requests":  org,
		"approvals":    org,
	}
	var scenarios []Scenario
	for key, card := range tabs {
		scenarios = append(scenarios, Scenario{
			Name:      "tab " + key,
			EntryCard: card,
			Tab:       key,
		})
	}
	results := runSuite(t, referenceMarkup(t), testSuite(scenarios...))
	requireOK(t, results)
	passed, _, _ := results.Counts()
	assert.Equal(t, len(tabs), passed)
}

func TestTabSelectionIsIdempotent(t *testing.T) {
	s := DefaultScenarios()[0]
	results := runActions(t, referenceMarkup(t), s, func(dt *T) {
		DoStartupChecks(dt)
		DoNavigationChecks(dt)
		layout := dt.Layout()
		SelectTabAndVerify(dt, "masterlist")
		first, err := dt.Env().Eval("document.getElementById('masterlist-table').innerHTML")
		require.NoError(dt, err)
		SelectTabAndVerify(dt, "masterlist")
		second, err := dt.Env().Eval("document.getElementById('masterlist-table').innerHTML")
		require.NoError(dt, err)
		assert.Equal(dt, first, second)

		active, err := dt.RequireElement(layout.TabID("masterlist")).HasClass(layout.ActiveClass)
		require.NoError(dt, err)
		assert.True(dt, active)
	})
	requireOK(t, results)
}

func TestInvertedPermissionsFailWithDescription(t *testing.T) {
	markup := strings.Replace(referenceMarkup(t),
		"userCanApprove ? 'block' : 'none'", "userCanApprove ? 'none' : 'block'", 1)

	results := runSuite(t, markup, testSuite())
	assert.False(t, results.OK())
	assert.Nil(t, results.Aborted)

	passed, failed, skipped := results.Counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 4, failed)
	assert.Equal(t, 0, skipped)

	f := results.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, []string{"no privileges"}, f.ID.Path)
	assert.Equal(t, `"approvals" tab visibility: expected "none", got "block"`, f.Err.Error())

	log := assertionDescriptions(results.Failures[0])
	require.NotEmpty(t, log)
	assert.Equal(t, `FAIL: "approvals" tab visibility (expected "none", got "block")`, log[len(log)-1])
	for _, line := range log[:len(log)-1] {
		assert.True(t, strings.HasPrefix(line, "PASS: "), line)
	}
}

func TestTabThatStaysActiveFails(t *testing.T) {
	markup := strings.Replace(referenceMarkup(t),
		"tabs[i].classList.remove('active');", "", 1)

	results := runSuite(t, markup, testSuite(DefaultScenarios()[0]))
	require.False(t, results.OK())
	f := results.FirstFailure()
	require.NotNil(t, f)
	assert.Contains(t, f.Err.Error(), "previously active tab tab-demographics is no longer active")
}

func TestScriptErrorAbortsRun(t *testing.T) {
	markup := strings.Replace(referenceMarkup(t), "var employeeData", "throw new Error('broken'); var employeeData", 1)
	require.Contains(t, markup, "throw new Error('broken')")

	results := runSuite(t, markup, testSuite())
	assert.False(t, results.OK())
	require.NotNil(t, results.Aborted)
	assert.Contains(t, results.Aborted.Error(), "broken")

	passed, failed, skipped := results.Counts()
	assert.Equal(t, 0, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, skipped)
}

func TestMissingElementAbortsRun(t *testing.T) {
	markup := strings.Replace(referenceMarkup(t), `id="error-banner"`, `id="banner"`, 1)

	results := runSuite(t, markup, testSuite())
	require.NotNil(t, results.Aborted)
	assert.Contains(t, results.Aborted.Error(), "error-banner")

	_, failed, skipped := results.Counts()
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, skipped)
}

func TestFilterSkipsScenarios(t *testing.T) {
	harness := framework.NewTestHarnessFromMarkup("Index.html", []byte(referenceMarkup(t)), logging.NullLogger())
	var filters framework.RegexFilters
	require.NoError(t, filters.MustMatch.Set("approver"))

	results := RunTestSuite(harness, testSuite(), filters.AsFilter, nil)
	requireOK(t, results)
	passed, _, _ := results.Counts()
	assert.Equal(t, 2, passed)
}
