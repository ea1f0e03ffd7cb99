// Package dashtests contains the behavioral tests for the HR dashboard.
//
// Each scenario sets the role flags that the mock backend reports, builds a fresh document
// environment from the dashboard's markup, and runs a fail-fast checklist: startup, the
// visibility of the permission-gated tabs, navigation from a homepage card, and tab
// selection. The tests use the T type defined in this package, which wraps the lower-level
// framework.Context.
package dashtests
