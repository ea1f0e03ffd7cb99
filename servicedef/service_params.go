package servicedef

// Backend methods that the dashboard calls through google.script.run.
const (
	MethodCheckUserAccess    = "checkUserAccess"
	MethodGetEmployeeData    = "getEmployeeData"
	MethodGetUpcomingDues    = "getUpcomingDues"
	MethodGetMasterlistData  = "getMasterlistData"
	MethodGetAnalyticsData   = "getAnalyticsData"
	MethodGetResignationData = "getResignationData"
	MethodGetChangeRequests  = "getChangeRequests"
	MethodTestConnection     = "testConnection"
	MethodLogActivity        = "logActivity"
)

// AllMethods lists every backend method the dashboard is known to call.
var AllMethods = []string{
	MethodCheckUserAccess,
	MethodGetEmployeeData,
	MethodGetUpcomingDues,
	MethodGetMasterlistData,
	MethodGetAnalyticsData,
	MethodGetResignationData,
	MethodGetChangeRequests,
	MethodTestConnection,
	MethodLogActivity,
}

// RoleFlags are the capability flags that getEmployeeData reports for the current user.
type RoleFlags struct {
	CanEdit    bool `json:"canEdit" yaml:"canEdit"`
	CanApprove bool `json:"canApprove" yaml:"canApprove"`
}

// ScenarioParams are the inputs that parameterized fixtures are generated from.
type ScenarioParams struct {
	Flags     RoleFlags
	UserEmail string

	// SnapshotTimestamp is reported as the employee data snapshot time. If empty, the
	// fixture uses the current time.
	SnapshotTimestamp string
}
