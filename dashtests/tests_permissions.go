package dashtests

// DoPermissionChecks verifies the visibility of the permission-gated tabs against the
// scenario's role flags.
func DoPermissionChecks(t *T) {
	layout := t.Layout()
	expected := t.Scenario().Expected()

	t.Verify(
		DisplayIs(`"my requests" tab visibility`, t.RequireElement(layout.MyRequestsTab), displayValue(expected.MyRequests)),
		DisplayIs(`"approvals" tab visibility`, t.RequireElement(layout.ApprovalsTab), displayValue(expected.Approvals)),
	)
}
