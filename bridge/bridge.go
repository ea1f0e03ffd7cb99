package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/fixtures"
	"github.com/hrdashboard/dashboard-contract-tests/logging"
	"github.com/hrdashboard/dashboard-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DefaultDelay is how long the bridge waits before delivering a response. It is never
// zero, so that a caller always finishes registering handlers before delivery.
const DefaultDelay = time.Millisecond * 50

// SuccessHandler receives the payload of a completed call.
type SuccessHandler func(payload ldvalue.Value)

// FailureHandler would receive the error of a failed call. The mock bridge accepts one
// to keep the call shape of the real bridge, but never invokes it.
type FailureHandler func(err error)

// Scheduler runs fn once after delay. Implementations decide which goroutine fn runs on;
// the document environment runs it on its event loop.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// Call is one entry in the bridge's call history.
type Call struct {
	Method    string
	Args      []interface{}
	Delivered bool
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d args)", c.Method, len(c.Args))
}

// Bridge is a stand-in for the backend RPC channel. Responses come from a fixture table
// and are delivered asynchronously to the most recently registered success handler.
//
// Only one call is tracked at a time: the handler slots and the last method name are
// shared, so registering handlers for a second call before the first one is delivered
// silently replaces the first registration.
type Bridge struct {
	fixtures   *fixtures.Table
	params     servicedef.ScenarioParams
	scheduler  Scheduler
	delay      time.Duration
	logger     logging.Logger
	runner     *Runner
	success    SuccessHandler
	failure    FailureHandler
	lastMethod string
	calls      []Call
	pending    int
	settledCh  chan struct{}
	lock       sync.Mutex
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithScheduler(s Scheduler) Option {
	return func(b *Bridge) { b.scheduler = s }
}

func WithDelay(d time.Duration) Option {
	return func(b *Bridge) { b.delay = d }
}

func WithLogger(l logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a Bridge that answers from the given table. The table is copied, so
// SetFixture on this bridge does not affect other bridges.
func New(table *fixtures.Table, params servicedef.ScenarioParams, opts ...Option) *Bridge {
	if table == nil {
		table = fixtures.NewTable()
	}
	b := &Bridge{
		fixtures:  table.Clone(),
		params:    params,
		scheduler: timerScheduler{},
		delay:     DefaultDelay,
		logger:    logging.NullLogger(),
		settledCh: make(chan struct{}),
	}
	close(b.settledCh)
	for _, o := range opts {
		o(b)
	}
	if b.delay <= 0 {
		b.delay = DefaultDelay
	}
	b.runner = &Runner{owner: b}
	return b
}

// UseScheduler replaces the scheduler. The document environment calls this to move
// deliveries onto its event loop.
func (b *Bridge) UseScheduler(s Scheduler) {
	b.lock.Lock()
	b.scheduler = s
	b.lock.Unlock()
}

// Params returns the scenario parameters that fixtures are generated from.
func (b *Bridge) Params() servicedef.ScenarioParams {
	return b.params
}

// Run returns the call builder. It is the same instance on every call.
func (b *Bridge) Run() *Runner {
	return b.runner
}

// SetFixture adds or overrides the response for a method on this bridge only.
func (b *Bridge) SetFixture(method string, fixture fixtures.Fixture) {
	b.lock.Lock()
	b.fixtures.Set(method, fixture)
	b.lock.Unlock()
}

// LastMethodCalled returns the name of the most recently invoked method.
func (b *Bridge) LastMethodCalled() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastMethod
}

// Calls returns the history of invocations, oldest first.
func (b *Bridge) Calls() []Call {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Call(nil), b.calls...)
}

// Called reports whether the method has been invoked at least once.
func (b *Bridge) Called(method string) bool {
	for _, c := range b.Calls() {
		if c.Method == method {
			return true
		}
	}
	return false
}

// Settled returns a channel that is closed when no delivery is pending. A new channel is
// created whenever a call is made while the bridge was idle, so callers should fetch it
// again after each interaction.
func (b *Bridge) Settled() <-chan struct{} {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.settledCh
}

// AwaitSettled waits until no delivery is pending.
func (b *Bridge) AwaitSettled(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-b.Settled():
		return nil
	case <-deadline.C:
		return fmt.Errorf("timed out after %s waiting for the bridge to deliver a response to %q",
			timeout, b.LastMethodCalled())
	}
}

func (b *Bridge) invoke(method string, args []interface{}) {
	b.lock.Lock()
	b.lastMethod = method
	b.calls = append(b.calls, Call{Method: method, Args: args})
	if b.pending == 0 {
		b.settledCh = make(chan struct{})
	}
	b.pending++
	scheduler, delay := b.scheduler, b.delay
	b.lock.Unlock()

	b.logger.Printf("invoke %s", method)
	scheduler.AfterFunc(delay, b.deliver)
}

// deliver runs at the end of the deferred delay. It reads the call state as it is now,
// not as it was when the call was made.
//
// Both handler slots are cleared before the success handler runs, so a handler that the
// success handler registers for its own follow-up call survives the delivery.
func (b *Bridge) deliver() {
	b.lock.Lock()
	method := b.lastMethod
	handler := b.success
	payload, found := b.fixtures.Lookup(method, b.params)
	b.lock.Unlock()

	switch {
	case !found:
		b.logger.Printf("no fixture for %s; no handler called", method)
	case handler == nil:
		b.logger.Printf("deliver %s: no success handler registered", method)
	default:
		b.logger.Printf("deliver %s: %s", method, payload.JSONString())
		b.markDelivered(method)
		b.clearHandlers()
		defer b.finish()
		handler(payload)
		return
	}
	b.clearHandlers()
	b.finish()
}

func (b *Bridge) markDelivered(method string) {
	b.lock.Lock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Method == method && !b.calls[i].Delivered {
			b.calls[i].Delivered = true
			break
		}
	}
	b.lock.Unlock()
}

func (b *Bridge) clearHandlers() {
	b.lock.Lock()
	b.success = nil
	b.failure = nil
	b.lock.Unlock()
}

func (b *Bridge) finish() {
	b.lock.Lock()
	b.pending--
	if b.pending == 0 {
		close(b.settledCh)
	}
	b.lock.Unlock()
}
