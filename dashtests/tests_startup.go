package dashtests

import (
	"github.com/hrdashboard/dashboard-contract-tests/framework"
	"github.com/hrdashboard/dashboard-contract-tests/servicedef"
)

// DoStartupChecks verifies that the dashboard finished its startup sequence: the document is
// ready, the charts loader has fired, the initial data was fetched, and nothing went wrong on the
// way.
func DoStartupChecks(t *T) {
	env, b, layout := t.Env(), t.Bridge(), t.Layout()
	loginView := t.RequireElement(layout.LoginView)
	errorBanner := t.RequireElement(layout.ErrorBanner)
	appView := t.RequireElement(layout.AppView)

	t.Verify(
		framework.Expect("document is ready", true, func() interface{} {
			select {
			case <-env.Ready():
				return true
			default:
				return false
			}
		}),
		framework.Expect("charts loaded callback has fired", true, func() interface{} { return env.ChartsLoaded() }),
		framework.Expect("user access was checked", true, func() interface{} {
			return b.Called(servicedef.MethodCheckUserAccess)
		}),
		framework.Expect("employee data was requested", true, func() interface{} {
			return b.Called(servicedef.MethodGetEmployeeData)
		}),
		DisplayIs("login view is hidden", loginView, displayHidden),
		DisplayIs("app view is shown", appView, displayShown),
		DisplayIs("error banner is hidden", errorBanner, displayHidden),
		NoUncaughtErrors("no uncaught errors during startup", env),
	)
}
