package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/fixtures"
	"github.com/hrdashboard/dashboard-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// manualScheduler holds scheduled functions until the test fires them.
type manualScheduler struct {
	delays  []time.Duration
	pending []func()
	lock    sync.Mutex
}

func (s *manualScheduler) AfterFunc(delay time.Duration, fn func()) {
	s.lock.Lock()
	s.delays = append(s.delays, delay)
	s.pending = append(s.pending, fn)
	s.lock.Unlock()
}

func (s *manualScheduler) fireNext(t *testing.T) {
	s.lock.Lock()
	require.NotEmpty(t, s.pending, "nothing was scheduled")
	fn := s.pending[0]
	s.pending = s.pending[1:]
	s.lock.Unlock()
	fn()
}

func (s *manualScheduler) count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.pending)
}

var testParams = servicedef.ScenarioParams{
	Flags:             servicedef.RoleFlags{CanApprove: true},
	SnapshotTimestamp: "2024-01-02T03:04:05.000Z",
}

func newTestBridge() (*Bridge, *manualScheduler) {
	s := &manualScheduler{}
	return New(fixtures.DefaultTable(), testParams, WithScheduler(s)), s
}

func TestEveryFixtureIsDeliveredExactlyOnce(t *testing.T) {
	table := fixtures.DefaultTable()
	for _, method := range table.Methods() {
		t.Run(method, func(t *testing.T) {
			b, s := newTestBridge()
			var received []ldvalue.Value
			b.Run().WithSuccessHandler(func(v ldvalue.Value) { received = append(received, v) }).Invoke(method)

			assert.Len(t, received, 0, "delivery must not be synchronous")
			s.fireNext(t)

			expected, _ := table.Lookup(method, testParams)
			require.Len(t, received, 1)
			assert.True(t, expected.Equal(received[0]), "expected %s, got %s",
				expected.JSONString(), received[0].JSONString())
			assert.Equal(t, 0, s.count())
		})
	}
}

func TestDeliveryUsesFixedNonZeroDelay(t *testing.T) {
	b, s := newTestBridge()
	b.Run().Invoke(servicedef.MethodTestConnection)
	require.Len(t, s.delays, 1)
	assert.Equal(t, DefaultDelay, s.delays[0])

	b2 := New(fixtures.DefaultTable(), testParams, WithScheduler(s), WithDelay(0))
	b2.Run().Invoke(servicedef.MethodTestConnection)
	assert.Equal(t, DefaultDelay, s.delays[1])
}

func TestInvokeReturnsSameRunner(t *testing.T) {
	b, _ := newTestBridge()
	r := b.Run()
	assert.Same(t, r, r.WithSuccessHandler(nil))
	assert.Same(t, r, r.WithFailureHandler(nil))
	assert.Same(t, r, r.Invoke("anything", 1, "two"))
	assert.Same(t, r, b.Run())
	assert.Same(t, b, r.Bridge())
}

func TestHandlersAreSingleUse(t *testing.T) {
	b, s := newTestBridge()
	calls := 0
	b.Run().WithSuccessHandler(func(ldvalue.Value) { calls++ }).Invoke(servicedef.MethodGetUpcomingDues)
	s.fireNext(t)
	require.Equal(t, 1, calls)

	b.Run().Invoke(servicedef.MethodGetUpcomingDues)
	s.fireNext(t)
	assert.Equal(t, 1, calls, "stale handler was reused")
}

func TestLaterRegistrationReplacesEarlierOne(t *testing.T) {
	b, s := newTestBridge()
	var first, second int
	b.Run().WithSuccessHandler(func(ldvalue.Value) { first++ })
	b.Run().WithSuccessHandler(func(ldvalue.Value) { second++ }).Invoke(servicedef.MethodTestConnection)
	s.fireNext(t)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestHandlerRegistrationOrderDoesNotMatter(t *testing.T) {
	b, s := newTestBridge()
	calls := 0
	b.Run().WithFailureHandler(func(error) {}).
		WithSuccessHandler(func(ldvalue.Value) { calls++ }).
		Invoke(servicedef.MethodTestConnection)
	s.fireNext(t)
	assert.Equal(t, 1, calls)
}

func TestMissingFixtureIsSilentNoOp(t *testing.T) {
	b, s := newTestBridge()
	var successCalls, failureCalls int
	r := b.Run().
		WithSuccessHandler(func(ldvalue.Value) { successCalls++ }).
		WithFailureHandler(func(error) { failureCalls++ }).
		Invoke("notABackendMethod")
	assert.NotNil(t, r)
	s.fireNext(t)

	assert.Equal(t, 0, successCalls)
	assert.Equal(t, 0, failureCalls)
	assert.Equal(t, "notABackendMethod", b.LastMethodCalled())
	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Delivered)

	// the handlers were cleared even though nothing was delivered
	b.SetFixture("notABackendMethod", fixtures.Constant(ldvalue.Bool(true)))
	b.Run().Invoke("notABackendMethod")
	s.fireNext(t)
	assert.Equal(t, 0, successCalls)
}

func TestFailureHandlerIsNeverInvoked(t *testing.T) {
	b, s := newTestBridge()
	var failures []error
	for _, method := range append([]string{"unknown"}, servicedef.AllMethods...) {
		b.Run().
			WithSuccessHandler(func(ldvalue.Value) {}).
			WithFailureHandler(func(err error) { failures = append(failures, err) }).
			Invoke(method)
		s.fireNext(t)
	}
	assert.Empty(t, failures)
}

func TestArgumentsDoNotAffectResponse(t *testing.T) {
	b, s := newTestBridge()
	var got []ldvalue.Value
	handler := func(v ldvalue.Value) { got = append(got, v) }
	b.Run().WithSuccessHandler(handler).Invoke(servicedef.MethodGetMasterlistData)
	s.fireNext(t)
	b.Run().WithSuccessHandler(handler).Invoke(servicedef.MethodGetMasterlistData, "filter", 42, true)
	s.fireNext(t)

	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(got[1]))
	assert.Equal(t, []interface{}{"filter", 42, true}, b.Calls()[1].Args)
}

func TestDeliveryResolvesLastMethodAtDeliveryTime(t *testing.T) {
	b, s := newTestBridge()
	var got []ldvalue.Value
	b.Run().WithSuccessHandler(func(v ldvalue.Value) { got = append(got, v) }).Invoke(servicedef.MethodGetUpcomingDues)
	b.Run().Invoke(servicedef.MethodTestConnection)

	s.fireNext(t)
	s.fireNext(t)

	require.Len(t, got, 1, "overlapping calls share one handler slot")
	assert.Equal(t, fixtures.ConnectionConfirmation, got[0].StringValue())
}

func TestHandlerCanMakeTheNextCall(t *testing.T) {
	b, s := newTestBridge()
	var order []string
	b.Run().WithSuccessHandler(func(ldvalue.Value) {
		order = append(order, servicedef.MethodCheckUserAccess)
		b.Run().WithSuccessHandler(func(v ldvalue.Value) {
			order = append(order, servicedef.MethodGetEmployeeData)
			assert.True(t, v.GetByKey("canApprove").BoolValue())
		}).Invoke(servicedef.MethodGetEmployeeData)
	}).Invoke(servicedef.MethodCheckUserAccess)

	s.fireNext(t)
	s.fireNext(t)
	assert.Equal(t, []string{servicedef.MethodCheckUserAccess, servicedef.MethodGetEmployeeData}, order)
}

func TestSetFixtureIsPerBridge(t *testing.T) {
	table := fixtures.DefaultTable()
	s := &manualScheduler{}
	b1 := New(table, testParams, WithScheduler(s))
	b2 := New(table, testParams, WithScheduler(s))
	b1.SetFixture(servicedef.MethodTestConnection, fixtures.Constant(ldvalue.String("overridden")))

	var v1, v2 ldvalue.Value
	b1.Run().WithSuccessHandler(func(v ldvalue.Value) { v1 = v }).Invoke(servicedef.MethodTestConnection)
	s.fireNext(t)
	b2.Run().WithSuccessHandler(func(v ldvalue.Value) { v2 = v }).Invoke(servicedef.MethodTestConnection)
	s.fireNext(t)

	assert.Equal(t, "overridden", v1.StringValue())
	assert.Equal(t, fixtures.ConnectionConfirmation, v2.StringValue())
}

func TestSettledFollowsPendingDeliveries(t *testing.T) {
	b, s := newTestBridge()
	select {
	case <-b.Settled():
	default:
		require.Fail(t, "new bridge should be settled")
	}

	b.Run().WithSuccessHandler(func(ldvalue.Value) {
		b.Run().Invoke(servicedef.MethodGetUpcomingDues)
	}).Invoke(servicedef.MethodCheckUserAccess)
	settled := b.Settled()

	s.fireNext(t)
	select {
	case <-settled:
		require.Fail(t, "bridge settled while a chained call was pending")
	default:
	}

	s.fireNext(t)
	select {
	case <-settled:
	default:
		require.Fail(t, "bridge did not settle after last delivery")
	}
	assert.NoError(t, b.AwaitSettled(time.Millisecond))
}

func TestAwaitSettledTimesOut(t *testing.T) {
	b, _ := newTestBridge()
	b.Run().Invoke(servicedef.MethodGetAnalyticsData)
	err := b.AwaitSettled(time.Millisecond * 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), servicedef.MethodGetAnalyticsData)
}

func TestDefaultSchedulerDeliversAsynchronously(t *testing.T) {
	b := New(fixtures.DefaultTable(), testParams, WithDelay(time.Millisecond*5))
	received := make(chan ldvalue.Value, 1)
	b.Run().WithSuccessHandler(func(v ldvalue.Value) { received <- v }).Invoke(servicedef.MethodTestConnection)

	select {
	case v := <-received:
		assert.Equal(t, fixtures.ConnectionConfirmation, v.StringValue())
	case <-time.After(time.Second):
		require.Fail(t, "timed out waiting for delivery")
	}
	require.NoError(t, b.AwaitSettled(time.Second))
	assert.True(t, b.Called(servicedef.MethodTestConnection))
	assert.False(t, b.Called(servicedef.MethodLogActivity))
}

func TestNilTableMeansEveryCallMisses(t *testing.T) {
	s := &manualScheduler{}
	b := New(nil, testParams, WithScheduler(s))
	called := false
	b.Run().WithSuccessHandler(func(ldvalue.Value) { called = true }).Invoke(servicedef.MethodTestConnection)
	s.fireNext(t)
	assert.False(t, called)
	assert.NoError(t, b.AwaitSettled(time.Millisecond))
}
