package docenv

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/bridge"
	"github.com/hrdashboard/dashboard-contract-tests/logging"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// Config describes one isolated document environment: the markup to load and the
// stand-ins that the markup's scripts will see as globals.
type Config struct {
	// Markup is the full HTML document.
	Markup []byte

	// Name identifies the environment in log output and script error locations.
	Name string

	// Bridge is exposed to scripts as google.script.run. Its deliveries are moved onto
	// the environment's event loop. If nil, google.script.run is not defined.
	Bridge *bridge.Bridge

	// ConfirmResult is what the confirm() stand-in returns.
	ConfirmResult bool

	Logger logging.Logger
}

// ConstructionError is returned when an environment cannot be built from its markup,
// for instance because the markup cannot be parsed or one of its scripts throws.
type ConstructionError struct {
	Name string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("could not construct document environment %q: %s", e.Name, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// ElementNotFoundError is returned when a lookup by ID or handler expression finds nothing.
type ElementNotFoundError struct {
	Query string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matches %s", e.Query)
}

// IsElementNotFound returns true if err is or wraps an ElementNotFoundError.
func IsElementNotFound(err error) bool {
	var target *ElementNotFoundError
	return errors.As(err, &target)
}

// Environment is a parsed document with a JS runtime that has run the document's inline
// scripts. Each Environment has its own event loop; nothing is shared between two
// environments, so each scenario can construct a fresh one and Close it afterward.
type Environment struct {
	name          string
	loop          *eventLoop
	vm            *goja.Runtime
	doc           *html.Node
	bridge        *bridge.Bridge
	logger        logging.Logger
	confirmResult bool
	readyState    string
	ready         chan struct{}

	// the fields below are only touched on the loop
	wrappers        map[*html.Node]*goja.Object
	nodesByObject   map[*goja.Object]*html.Node
	styleObjects    map[*html.Node]*goja.Object
	documentObject  *goja.Object
	listeners       map[*html.Node]map[string][]goja.Value
	windowListeners map[string][]goja.Value
	propHandlers    map[*html.Node]map[string]goja.Value
	inlineHandlers  map[inlineHandlerKey]goja.Callable
	chartCallbacks  []goja.Callable
	chartsLoaded    bool

	// the fields below can be read from any goroutine
	alerts     []string
	confirms   []string
	chartDraws map[string]int
	uncaught   []error
	closed     bool
	lock       sync.Mutex
}

// New parses the markup, injects the stand-ins, and runs the document's inline scripts in
// order. It returns once the scripts have run; the document-ready events are dispatched
// afterward in a separate task, so callers should use AwaitReady before interacting.
func New(cfg Config) (*Environment, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NullLogger()
	}
	if cfg.Name == "" {
		cfg.Name = "document"
	}
	doc, err := html.Parse(bytes.NewReader(cfg.Markup))
	if err != nil {
		return nil, &ConstructionError{Name: cfg.Name, Err: fmt.Errorf("markup could not be parsed: %w", err)}
	}

	e := &Environment{
		name:            cfg.Name,
		doc:             doc,
		bridge:          cfg.Bridge,
		logger:          cfg.Logger,
		confirmResult:   cfg.ConfirmResult,
		readyState:      "loading",
		ready:           make(chan struct{}),
		wrappers:        make(map[*html.Node]*goja.Object),
		nodesByObject:   make(map[*goja.Object]*html.Node),
		styleObjects:    make(map[*html.Node]*goja.Object),
		listeners:       make(map[*html.Node]map[string][]goja.Value),
		windowListeners: make(map[string][]goja.Value),
		propHandlers:    make(map[*html.Node]map[string]goja.Value),
		inlineHandlers:  make(map[inlineHandlerKey]goja.Callable),
		chartDraws:      make(map[string]int),
	}
	e.loop, err = newEventLoop(e.recordUncaught)
	if err != nil {
		return nil, &ConstructionError{Name: cfg.Name, Err: err}
	}
	if e.bridge != nil {
		e.bridge.UseScheduler(e.loop)
	}

	err = e.loop.do(func() error {
		e.vm = goja.New()
		if err := e.installGlobals(); err != nil {
			return err
		}
		return e.runScripts()
	})
	if err != nil {
		e.loop.close()
		return nil, &ConstructionError{Name: cfg.Name, Err: err}
	}

	if err := e.loop.post(e.fireReadyEvents); err != nil {
		e.loop.close()
		return nil, &ConstructionError{Name: cfg.Name, Err: err}
	}
	return e, nil
}

func (e *Environment) runScripts() error {
	var scripts []*html.Node
	walk(e.doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "script" {
			scripts = append(scripts, n)
		}
		return true
	})
	for i, s := range scripts {
		if src, ok := getAttr(s, "src"); ok {
			e.logger.Printf("skipping external script %s", src)
			continue
		}
		if t, ok := getAttr(s, "type"); ok && !isJavaScriptType(t) {
			continue
		}
		name := fmt.Sprintf("%s#script%d", e.name, i+1)
		if _, err := e.vm.RunScript(name, textContent(s)); err != nil {
			return fmt.Errorf("inline script %d threw: %w", i+1, err)
		}
	}
	return nil
}

func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

func (e *Environment) fireReadyEvents() {
	defer close(e.ready)
	e.readyState = "interactive"
	e.logger.Printf("dispatching DOMContentLoaded")
	_ = e.dispatch(e.doc, "DOMContentLoaded", false)
	e.readyState = "complete"
	_ = e.dispatchWindow("load")
}

// Name returns the name the environment was created with.
func (e *Environment) Name() string { return e.name }

// Bridge returns the bridge bound to google.script.run, or nil.
func (e *Environment) Bridge() *bridge.Bridge { return e.bridge }

// Ready returns a channel that is closed once DOMContentLoaded and load have been
// dispatched.
func (e *Environment) Ready() <-chan struct{} { return e.ready }

// AwaitReady waits for the document-ready events to have been dispatched.
func (e *Environment) AwaitReady(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-e.ready:
		return nil
	case <-e.loop.done:
		return errLoopClosed
	case <-deadline.C:
		return fmt.Errorf("timed out after %s waiting for %s to be ready", timeout, e.name)
	}
}

// FireChartsLoaded runs the callbacks that the document registered with
// google.charts.setOnLoadCallback. It only has an effect the first time; callbacks
// registered later are scheduled as soon as they are registered.
func (e *Environment) FireChartsLoaded() error {
	return e.loop.do(func() error {
		if e.chartsLoaded {
			return nil
		}
		e.chartsLoaded = true
		callbacks := e.chartCallbacks
		e.chartCallbacks = nil
		e.logger.Printf("charts loaded; running %d callback(s)", len(callbacks))
		var firstErr error
		for _, cb := range callbacks {
			if _, err := cb(goja.Undefined()); err != nil {
				err = fmt.Errorf("charts load callback threw: %w", err)
				e.recordUncaught(err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	})
}

// ChartsLoaded reports whether FireChartsLoaded has been called.
func (e *Environment) ChartsLoaded() bool {
	var loaded bool
	_ = e.loop.do(func() error {
		loaded = e.chartsLoaded
		return nil
	})
	return loaded
}

// Settle waits until no timer or bridge delivery is pending. Callbacks may start new
// timers; Settle keeps waiting until the whole chain has finished.
func (e *Environment) Settle(timeout time.Duration) error {
	if err := e.loop.awaitIdle(timeout); err != nil {
		return fmt.Errorf("%s did not settle: %w", e.name, err)
	}
	return nil
}

// ElementByID finds an element by its id attribute.
func (e *Environment) ElementByID(id string) (*Element, error) {
	var found *html.Node
	err := e.loop.do(func() error {
		found = findByID(e.doc, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &ElementNotFoundError{Query: "#" + id}
	}
	return &Element{env: e, node: found}, nil
}

// ElementByHandler finds the first element whose inline onclick attribute is exactly the
// given expression, such as navigateToView('reports', 'demographics').
func (e *Environment) ElementByHandler(expr string) (*Element, error) {
	var found *html.Node
	err := e.loop.do(func() error {
		if nodes := findByHandler(e.doc, "onclick", expr); len(nodes) > 0 {
			found = nodes[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &ElementNotFoundError{Query: fmt.Sprintf(`[onclick="%s"]`, expr)}
	}
	return &Element{env: e, node: found}, nil
}

// QueryAll returns every element matching a CSS selector, in document order.
func (e *Environment) QueryAll(selector string) ([]*Element, error) {
	var ret []*Element
	err := e.loop.do(func() error {
		for _, n := range querySelectorAll(e.doc, selector) {
			ret = append(ret, &Element{env: e, node: n})
		}
		return nil
	})
	return ret, err
}

// Click dispatches a synthetic click on the element, exactly as a pointer click would:
// listeners and inline handlers run on the target and then on each ancestor. If a
// handler throws, the first exception is returned; it is also kept in UncaughtErrors.
func (e *Environment) Click(el *Element) error {
	if el == nil || el.env != e {
		return errors.New("element does not belong to this environment")
	}
	e.logger.Printf("click %s", el)
	return e.loop.do(func() error {
		return e.dispatch(el.node, "click", true)
	})
}

// Eval runs a JS expression in the document's global scope and returns its exported value.
func (e *Environment) Eval(source string) (interface{}, error) {
	var ret interface{}
	err := e.loop.do(func() error {
		v, err := e.vm.RunString(source)
		if err != nil {
			return err
		}
		ret = v.Export()
		return nil
	})
	return ret, err
}

// Alerts returns the messages passed to alert(), oldest first.
func (e *Environment) Alerts() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string(nil), e.alerts...)
}

// Confirms returns the messages passed to confirm(), oldest first.
func (e *Environment) Confirms() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string(nil), e.confirms...)
}

// ChartDraws returns how many times draw() was called, per chart kind.
func (e *Environment) ChartDraws() map[string]int {
	e.lock.Lock()
	defer e.lock.Unlock()
	ret := make(map[string]int, len(e.chartDraws))
	for k, v := range e.chartDraws {
		ret[k] = v
	}
	return ret
}

// TotalChartDraws returns the sum of ChartDraws.
func (e *Environment) TotalChartDraws() int {
	total := 0
	for _, n := range e.ChartDraws() {
		total += n
	}
	return total
}

// UncaughtErrors returns exceptions thrown by event handlers, timers, and bridge
// callbacks, which in a browser would have been reported to the console.
func (e *Environment) UncaughtErrors() []error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]error(nil), e.uncaught...)
}

func (e *Environment) recordUncaught(err error) {
	e.logger.Printf("uncaught error: %s", err)
	e.lock.Lock()
	e.uncaught = append(e.uncaught, err)
	e.lock.Unlock()
}

// Close discards the environment. Pending timers are stopped and the event loop is shut
// down; any later call that needs the loop returns an error.
func (e *Environment) Close() {
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		return
	}
	e.closed = true
	e.lock.Unlock()
	e.loop.close()
	e.logger.Printf("closed %s", e.name)
}

// Summary describes the state of the environment for debug output.
func (e *Environment) Summary() string {
	draws := e.ChartDraws()
	kinds := make([]string, 0, len(draws))
	for k := range draws {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, draws[k]))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("alerts=%d uncaught=%d draws=[%s]",
		len(e.Alerts()), len(e.UncaughtErrors()), strings.Join(kinds, " "))
}
