package dashtests

import (
	"github.com/hrdashboard/dashboard-contract-tests/bridge"
	"github.com/hrdashboard/dashboard-contract-tests/docenv"
	"github.com/hrdashboard/dashboard-contract-tests/framework"
	"github.com/hrdashboard/dashboard-contract-tests/logging"
	"github.com/hrdashboard/dashboard-contract-tests/servicedef"
)

// T represents a test or subtest in our dashboard test suite.
//
// It implements the same basic functionality as Go's testing.T, but in an environment that is outside
// of the Go test runner, and with some extra features such as debug logging that are convenient for
// our use case. Those features are provided by our lower-level framework package.
//
// It also provides functionality that is specific to dashboard testing. A T created for a scenario
// owns a mock bridge and a document environment built from the harness's markup, and has methods
// for clicking on the document and verifying its state.
//
// To make test assertions, you can use the assert and require packages, passing the *T as if it were
// a *testing.T, or Verify for the ordered checklists that make up a scenario. Interaction methods
// such as Click have assertions built in, causing the test to immediately fail if something
// unexpected happens.
type T struct {
	context  *framework.Context
	harness  *framework.TestHarness
	suite    *Suite
	scenario *Scenario
	bridge   *bridge.Bridge
	env      *docenv.Environment
}

func newTestScope(context *framework.Context, harness *framework.TestHarness, suite *Suite) *T {
	return &T{
		context: context,
		harness: harness,
		suite:   suite,
	}
}

func (t *T) close() {
	if t.env != nil {
		t.env.Close()
		t.env = nil
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
//
// The subtest shares this test's scenario and document environment.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		t1 := newTestScope(c, t.harness, t.suite)
		t1.scenario, t1.bridge, t1.env = t.scenario, t.bridge, t.env
		action(t1)
	})
}

// RunScenario runs action as a subtest with a fresh bridge and document environment for the
// scenario. The environment is closed when the subtest ends, before the next one can start.
func (t *T) RunScenario(scenario Scenario, action func(*T)) {
	var t1 *T
	t.context.Run(scenario.Name, func(c *framework.Context) {
		t1 = newTestScope(c, t.harness, t.suite)
		t1.scenario = &scenario
		t1.startEnvironment()
		action(t1)
	})
	if t1 != nil {
		t1.close()
	}
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) Scenario() Scenario {
	if t.scenario == nil {
		return Scenario{}
	}
	return *t.scenario
}

func (t *T) Layout() Layout {
	return t.suite.Layout
}

// Env returns the scenario's document environment.
func (t *T) Env() *docenv.Environment {
	if t.env == nil {
		t.Errorf("test has no document environment; it must be run with RunScenario")
		t.FailNow()
	}
	return t.env
}

// Bridge returns the mock bridge bound to the scenario's document as google.script.run.
func (t *T) Bridge() *bridge.Bridge {
	return t.bridge
}

func (t *T) startEnvironment() {
	params := servicedef.ScenarioParams{
		Flags:     t.scenario.Flags,
		UserEmail: t.suite.UserEmail,
	}
	debugLogger := t.context.DebugLogger()
	t.bridge = bridge.New(t.suite.Fixtures, params,
		bridge.WithDelay(t.suite.BridgeDelay),
		bridge.WithLogger(logging.LoggerWithPrefix(debugLogger, "[bridge] ")),
	)
	t.Debug("scenario %q: canEdit=%t canApprove=%t", t.scenario.Name, params.Flags.CanEdit, params.Flags.CanApprove)

	env, err := docenv.New(docenv.Config{
		Markup:        t.harness.Markup(),
		Name:          t.context.ID().String(),
		Bridge:        t.bridge,
		ConfirmResult: true,
		Logger:        logging.LoggerWithPrefix(debugLogger, "[docenv] "),
	})
	if err != nil {
		t.context.AbortRun(err)
	}
	t.env = env

	if err := env.AwaitReady(t.suite.ReadyTimeout); err != nil {
		t.context.AbortRun(&docenv.ConstructionError{Name: env.Name(), Err: err})
	}
	if err := env.FireChartsLoaded(); err != nil {
		t.Errorf("charts load callback failed: %s", err)
		t.FailNow()
	}
	t.settle()
}

func (t *T) settle() {
	if err := t.Env().Settle(t.suite.SettleTimeout); err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
}

// RequireElement finds an element by id. If there is no such element, the markup does not match
// the layout the suite expects, and the whole run is aborted.
func (t *T) RequireElement(id string) *docenv.Element {
	el, err := t.Env().ElementByID(id)
	if err != nil {
		t.context.AbortRun(&docenv.ConstructionError{Name: t.env.Name(), Err: err})
	}
	return el
}

// RequireHandler finds the first element whose inline onclick expression is exactly expr. Like
// RequireElement, it aborts the run if there is none.
func (t *T) RequireHandler(expr string) *docenv.Element {
	el, err := t.Env().ElementByHandler(expr)
	if err != nil {
		t.context.AbortRun(&docenv.ConstructionError{Name: t.env.Name(), Err: err})
	}
	return el
}

// RequireAll returns the elements matching a selector within root, failing the test if there are
// none.
func (t *T) RequireAll(root *docenv.Element, selector string) []*docenv.Element {
	els, err := root.QueryAll(selector)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	if len(els) == 0 {
		t.Errorf("no elements match %s within %s", selector, root)
		t.FailNow()
	}
	return els
}

// ClickElement clicks an element and waits for everything the click started, including bridge
// round-trips, to finish. An exception thrown by a handler fails the test.
func (t *T) ClickElement(el *docenv.Element) {
	t.Debug("click %s", el)
	if err := t.Env().Click(el); err != nil {
		t.Errorf("click on %s failed: %s", el, err)
		t.FailNow()
	}
	t.settle()
}

// Click clicks the element with the given id. See ClickElement.
func (t *T) Click(id string) {
	t.ClickElement(t.RequireElement(id))
}

// ClickHandler clicks the element whose inline onclick expression is exactly expr. See
// ClickElement.
func (t *T) ClickHandler(expr string) {
	t.ClickElement(t.RequireHandler(expr))
}

// Verify runs an ordered checklist. Every outcome goes into the assertion log; at the first
// failure, the test fails with its description and its expected and actual values, and exits.
func (t *T) Verify(checks ...framework.Check) {
	result := framework.RunChecks(checks...)
	for _, o := range result.Outcomes {
		t.context.Record(o)
	}
	if f := result.Failure(); f != nil {
		t.Errorf("%s", f.AsError())
		t.FailNow()
	}
}
