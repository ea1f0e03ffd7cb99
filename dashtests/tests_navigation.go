package dashtests

// DoNavigationChecks clicks the scenario's homepage card and verifies that the homepage is
// replaced by the tab area.
func DoNavigationChecks(t *T) {
	layout := t.Layout()
	homepage := t.RequireElement(layout.HomepageView)
	tabArea := t.RequireElement(layout.TabArea)

	t.Verify(
		DisplayIs("homepage is shown before navigating", homepage, displayShown),
		DisplayIs("tab area is hidden before navigating", tabArea, displayHidden),
	)

	t.ClickHandler(t.Scenario().EntryCard)

	t.Verify(
		DisplayIs("homepage is hidden after card click", homepage, displayHidden),
		DisplayIs("tab area is shown after card click", tabArea, displayShown),
	)
}
