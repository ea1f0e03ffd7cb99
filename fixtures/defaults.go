package fixtures

import (
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	DefaultUserEmail         = "test@example.com"
	ConnectionConfirmation   = "Connection successful!"
	defaultPreviousDate      = "2023-01-01"
	defaultApprovedPositions = 100
)

func stringArray(values ...string) ldvalue.Value {
	b := ldvalue.ArrayBuild()
	for _, v := range values {
		b = b.Add(ldvalue.String(v))
	}
	return b.Build()
}

func emptyObject() ldvalue.Value {
	return ldvalue.ObjectBuild().Build()
}

func emptyArray() ldvalue.Value {
	return ldvalue.ArrayOf()
}

func userEmail(params servicedef.ScenarioParams) string {
	if params.UserEmail == "" {
		return DefaultUserEmail
	}
	return params.UserEmail
}

// DefaultTable returns a table with a response for every method in servicedef.AllMethods.
func DefaultTable() *Table {
	t := NewTable()

	t.Set(servicedef.MethodCheckUserAccess, func(p servicedef.ScenarioParams) ldvalue.Value {
		return ldvalue.ObjectBuild().
			Set("isAuthorized", ldvalue.Bool(true)).
			Set("userEmail", ldvalue.String(userEmail(p))).
			Build()
	})

	t.Set(servicedef.MethodGetEmployeeData, EmployeeData)

	t.SetValue(servicedef.MethodGetUpcomingDues, ldvalue.ObjectBuild().
		Set("upcoming", emptyArray()).
		Set("overdue", emptyArray()).
		Build())

	t.SetValue(servicedef.MethodGetMasterlistData, ldvalue.ObjectBuild().
		Set("headers", stringArray("ID", "Name", "Role", "Department")).
		Set("rows", ldvalue.ArrayOf(
			stringArray("1", "John Doe", "Dev", "Eng"),
			stringArray("2", "Jane Smith", "PM", "Product"),
		)).
		Build())

	t.SetValue(servicedef.MethodGetAnalyticsData, ldvalue.ObjectBuild().
		Set("overallHeadcount", ldvalue.Int(0)).
		Set("totalHeadcount", ldvalue.Int(0)).
		Set("filteredPositionsCount", ldvalue.Int(0)).
		Set("statusCounts", emptyObject()).
		Set("contractCounts", emptyObject()).
		Set("genderCounts", emptyObject()).
		Set("jobGroupCounts", emptyObject()).
		Set("losCounts", emptyObject()).
		Set("newHiresByMonth", emptyObject()).
		Set("ageGenerationCounts", emptyObject()).
		Build())

	t.SetValue(servicedef.MethodGetResignationData, ldvalue.ObjectBuild().
		Set("filteredResignationsCount", ldvalue.Int(0)).
		Set("yearlyHiresLeavers", ldvalue.ObjectBuild().
			Set("hires", ldvalue.Int(0)).
			Set("leavers", ldvalue.Int(0)).
			Build()).
		Set("reasonCounts", emptyObject()).
		Set("resignationGenderCounts", emptyObject()).
		Set("resignationContractCounts", emptyObject()).
		Set("resignationDivisionCounts", emptyObject()).
		Set("resignationJobGroupCounts", emptyObject()).
		Set("monthlyTurnover", emptyArray()).
		Set("ytdTurnover", ldvalue.Int(0)).
		Set("attritionRate", ldvalue.Int(0)).
		Set("retentionRate", ldvalue.Int(0)).
		Build())

	t.SetValue(servicedef.MethodGetChangeRequests, ldvalue.ObjectBuild().
		Set("myRequests", emptyArray()).
		Set("approvals", emptyArray()).
		Build())

	t.SetValue(servicedef.MethodTestConnection, ldvalue.String(ConnectionConfirmation))

	t.SetValue(servicedef.MethodLogActivity, ldvalue.Null())

	return t
}

// EmployeeData is the getEmployeeData fixture. The capability flags and user identity
// come from the scenario; everything else is fixed.
func EmployeeData(p servicedef.ScenarioParams) ldvalue.Value {
	timestamp := p.SnapshotTimestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	email := userEmail(p)
	return ldvalue.ObjectBuild().
		Set("current", emptyArray()).
		Set("previous", emptyObject()).
		Set("snapshotTimestamp", ldvalue.String(timestamp)).
		Set("currentUserEmail", ldvalue.String(email)).
		Set("canEdit", ldvalue.Bool(p.Flags.CanEdit)).
		Set("canApprove", ldvalue.Bool(p.Flags.CanApprove)).
		Set("totalApprovedPlantilla", ldvalue.Int(defaultApprovedPositions)).
		Set("previousDateString", ldvalue.String(defaultPreviousDate)).
		Set("dropdownListData", ldvalue.ObjectBuild().
			Set("joblevel", stringArray("JL1", "JL2")).
			Set("divisions", stringArray("Division A")).
			Set("departments", stringArray("Dept X")).
			Build()).
		Build()
}
