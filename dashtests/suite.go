package dashtests

import (
	"github.com/hrdashboard/dashboard-contract-tests/framework"
)

// RunTestSuite runs every scenario of the suite, one at a time, against the harness's markup.
func RunTestSuite(
	harness *framework.TestHarness,
	suite Suite,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, harness, &suite)
		for _, s := range suite.Scenarios {
			t.RunScenario(s, DoScenarioChecks)
		}
	})
}

// DoScenarioChecks is the checklist for one scenario. It stops at the first failed check.
func DoScenarioChecks(t *T) {
	t.Debug("startup")
	DoStartupChecks(t)
	t.Debug("permissions")
	DoPermissionChecks(t)
	t.Debug("navigation")
	DoNavigationChecks(t)
	t.Debug("tabs")
	DoTabChecks(t)
	DoTeardownChecks(t)
}
