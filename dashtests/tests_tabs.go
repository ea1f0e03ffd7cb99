package dashtests

import (
	"github.com/hrdashboard/dashboard-contract-tests/docenv"
	"github.com/hrdashboard/dashboard-contract-tests/framework"
)

// DoTabChecks selects the scenario's tab and verifies that it and its pane are the only active
// ones in their group. Selecting the same tab again must not change anything.
func DoTabChecks(t *T) {
	key := t.Scenario().Tab
	SelectTabAndVerify(t, key)
	t.Debug("selecting %s again", tabDescription(key))
	SelectTabAndVerify(t, key)
}

// SelectTabAndVerify clicks a tab and verifies the active markers in its group.
func SelectTabAndVerify(t *T, key string) {
	layout := t.Layout()
	tab := t.RequireElement(layout.TabID(key))
	pane := t.RequireElement(layout.PaneID(key))
	_, tabs, panes := t.tabGroup(tab)

	var previous []*docenv.Element
	for _, other := range tabs {
		if other.ID() == tab.ID() {
			continue
		}
		if active, err := other.HasClass(layout.ActiveClass); err == nil && active {
			previous = append(previous, other)
		}
	}

	t.ClickElement(tab)

	checks := []framework.Check{
		ClassIs(tabDescription(key)+" is active", tab, layout.ActiveClass, true),
		ClassIs(tabDescription(key)+" content is active", pane, layout.ActiveClass, true),
	}
	for _, p := range previous {
		checks = append(checks, ClassIs("previously active tab "+p.ID()+" is no longer active", p, layout.ActiveClass, false))
	}
	checks = append(checks,
		CountWithClass("exactly one tab in the group is active", tabs, layout.ActiveClass, 1),
		CountWithClass("exactly one content pane in the group is active", panes, layout.ActiveClass, 1),
		NoUncaughtErrors("no uncaught errors after selecting "+tabDescription(key), t.Env()),
	)
	t.Verify(checks...)
}

// DoTeardownChecks runs last in each scenario.
func DoTeardownChecks(t *T) {
	env := t.Env()
	t.Verify(
		NoUncaughtErrors("no uncaught errors during the scenario", env),
		NoAlerts("no alerts during the scenario", env),
	)
}
