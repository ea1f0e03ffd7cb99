package docenv

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrdashboard/dashboard-contract-tests/bridge"

	"github.com/dop251/goja"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ChartKinds are the google.visualization constructors that the stand-in provides. Each
// one accepts a container and counts calls to draw().
var ChartKinds = []string{
	"PieChart",
	"ColumnChart",
	"ComboChart",
	"BarChart",
	"LineChart",
	"AreaChart",
	"OrgChart",
	"Table",
	"GeoChart",
}

func (e *Environment) installGlobals() error {
	global := e.vm.GlobalObject()
	e.documentObject = e.newDocumentObject()

	for name, value := range map[string]interface{}{
		"window":   global,
		"self":     global,
		"document": e.documentObject,
		"location": e.newLocation(),
		"console":  e.newConsole(),
		"google":   e.newGoogle(),
	} {
		if err := global.Set(name, value); err != nil {
			return fmt.Errorf("could not define global %s: %w", name, err)
		}
	}

	globals := map[string]func(goja.FunctionCall) goja.Value{
		"alert":               e.alert,
		"confirm":             e.confirm,
		"setTimeout":          e.timerFunc(false),
		"setInterval":         e.timerFunc(true),
		"clearTimeout":        e.clearTimer,
		"clearInterval":       e.clearTimer,
		"addEventListener":    e.addWindowListener,
		"removeEventListener": e.removeWindowListener,
	}
	for name, fn := range globals {
		if err := global.Set(name, fn); err != nil {
			return fmt.Errorf("could not define global %s: %w", name, err)
		}
	}
	return nil
}

func (e *Environment) newLocation() *goja.Object {
	o := e.vm.NewObject()
	_ = o.Set("href", "https://script.google.com/macros/s/dashboard/exec")
	_ = o.Set("hash", "")
	_ = o.Set("search", "")
	_ = o.Set("reload", func(goja.FunctionCall) goja.Value {
		e.logger.Printf("location.reload() ignored")
		return goja.Undefined()
	})
	return o
}

func (e *Environment) newConsole() *goja.Object {
	o := e.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		prefix := "console." + level + ": "
		_ = o.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				parts = append(parts, valueString(a))
			}
			e.logger.Printf("%s%s", prefix, strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	return o
}

func (e *Environment) alert(call goja.FunctionCall) goja.Value {
	msg := valueString(call.Argument(0))
	e.logger.Printf("alert: %s", msg)
	e.lock.Lock()
	e.alerts = append(e.alerts, msg)
	e.lock.Unlock()
	return goja.Undefined()
}

func (e *Environment) confirm(call goja.FunctionCall) goja.Value {
	msg := valueString(call.Argument(0))
	e.logger.Printf("confirm: %s (answering %t)", msg, e.confirmResult)
	e.lock.Lock()
	e.confirms = append(e.confirms, msg)
	e.lock.Unlock()
	return e.vm.ToValue(e.confirmResult)
}

func (e *Environment) timerFunc(repeat bool) func(goja.FunctionCall) goja.Value {
	name := "setTimeout"
	if repeat {
		name = "setInterval"
	}
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			e.throwTypeError("%s requires a function", name)
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}
		id := e.loop.schedule(delay, repeat, func() {
			if _, err := fn(goja.Undefined(), args...); err != nil {
				e.recordUncaught(fmt.Errorf("%s callback threw: %w", name, err))
			}
		})
		return e.vm.ToValue(id)
	}
}

func (e *Environment) clearTimer(call goja.FunctionCall) goja.Value {
	if id := call.Argument(0); !goja.IsUndefined(id) && !goja.IsNull(id) {
		e.loop.clear(int(id.ToInteger()))
	}
	return goja.Undefined()
}

func (e *Environment) addWindowListener(call goja.FunctionCall) goja.Value {
	eventType, fn := call.Argument(0).String(), call.Argument(1)
	if _, ok := goja.AssertFunction(fn); !ok {
		return goja.Undefined()
	}
	for _, existing := range e.windowListeners[eventType] {
		if existing.SameAs(fn) {
			return goja.Undefined()
		}
	}
	e.windowListeners[eventType] = append(e.windowListeners[eventType], fn)
	return goja.Undefined()
}

func (e *Environment) removeWindowListener(call goja.FunctionCall) goja.Value {
	eventType, fn := call.Argument(0).String(), call.Argument(1)
	list := e.windowListeners[eventType]
	for i, existing := range list {
		if existing.SameAs(fn) {
			e.windowListeners[eventType] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

func (e *Environment) newGoogle() *goja.Object {
	google := e.vm.NewObject()
	_ = google.Set("charts", e.newCharts())
	_ = google.Set("visualization", e.newVisualization())
	if e.bridge != nil {
		script := e.vm.NewObject()
		run := &scriptRunObject{env: e, runner: e.bridge.Run()}
		run.object = e.vm.NewDynamicObject(run)
		_ = script.Set("run", run.object)
		_ = google.Set("script", script)
	}
	return google
}

func (e *Environment) newCharts() *goja.Object {
	o := e.vm.NewObject()
	_ = o.Set("load", func(call goja.FunctionCall) goja.Value {
		e.logger.Printf("google.charts.load(%s)", valueString(call.Argument(0)))
		return goja.Undefined()
	})
	_ = o.Set("setOnLoadCallback", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			e.throwTypeError("setOnLoadCallback requires a function")
		}
		if !e.chartsLoaded {
			e.chartCallbacks = append(e.chartCallbacks, fn)
			return goja.Undefined()
		}
		e.loop.schedule(0, false, func() {
			if _, err := fn(goja.Undefined()); err != nil {
				e.recordUncaught(fmt.Errorf("charts load callback threw: %w", err))
			}
		})
		return goja.Undefined()
	})
	return o
}

func (e *Environment) newVisualization() *goja.Object {
	o := e.vm.NewObject()
	for _, kind := range ChartKinds {
		_ = o.Set(kind, e.chartConstructor(kind))
	}
	_ = o.Set("DataTable", func(call goja.ConstructorCall) *goja.Object {
		e.initDataTable(call.This, nil)
		return nil
	})
	_ = o.Set("arrayToDataTable", func(call goja.FunctionCall) goja.Value {
		table := e.vm.NewObject()
		var rows []interface{}
		if exported, ok := call.Argument(0).Export().([]interface{}); ok {
			rows = exported
		}
		e.initDataTable(table, rows)
		return table
	})
	events := e.vm.NewObject()
	_ = events.Set("addListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = o.Set("events", events)
	return o
}

func (e *Environment) chartConstructor(kind string) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		this := call.This
		_ = this.Set("container", call.Argument(0))
		_ = this.Set("draw", func(goja.FunctionCall) goja.Value {
			e.lock.Lock()
			e.chartDraws[kind]++
			e.lock.Unlock()
			return goja.Undefined()
		})
		_ = this.Set("clearChart", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
		return nil
	}
}

// initDataTable gives o enough of the DataTable interface for a dashboard to build its
// chart data. With rows from arrayToDataTable, the first row is the header.
func (e *Environment) initDataTable(o *goja.Object, rows []interface{}) {
	columns, data := 0, 0
	if len(rows) > 0 {
		if header, ok := rows[0].([]interface{}); ok {
			columns = len(header)
		}
		data = len(rows) - 1
	}
	_ = o.Set("addColumn", func(goja.FunctionCall) goja.Value {
		columns++
		return e.vm.ToValue(columns - 1)
	})
	_ = o.Set("addRow", func(goja.FunctionCall) goja.Value {
		data++
		return e.vm.ToValue(data - 1)
	})
	_ = o.Set("addRows", func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if added, ok := arg.Export().([]interface{}); ok {
			data += len(added)
		} else {
			data += int(arg.ToInteger())
		}
		return e.vm.ToValue(data - 1)
	})
	_ = o.Set("setCell", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = o.Set("setValue", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = o.Set("getNumberOfRows", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(data) })
	_ = o.Set("getNumberOfColumns", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(columns) })
}

// scriptRunObject is google.script.run. Any property other than the handler registrars is
// a backend method; calling it invokes the bridge. Every call returns the same object. A
// registrar given something that is not a function clears that handler slot.
type scriptRunObject struct {
	env    *Environment
	runner *bridge.Runner
	object *goja.Object
}

var notBackendMethods = map[string]bool{
	"toString": true, "valueOf": true, "toJSON": true, "then": true, "constructor": true,
}

func (s *scriptRunObject) Get(key string) goja.Value {
	e := s.env
	switch key {
	case "withSuccessHandler":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			var handler bridge.SuccessHandler
			if fn, ok := goja.AssertFunction(call.Argument(0)); ok {
				handler = e.successHandler(fn)
			}
			s.runner.WithSuccessHandler(handler)
			return s.object
		})
	case "withFailureHandler":
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			var handler bridge.FailureHandler
			if fn, ok := goja.AssertFunction(call.Argument(0)); ok {
				handler = e.failureHandler(fn)
			}
			s.runner.WithFailureHandler(handler)
			return s.object
		})
	case "withUserObject":
		return e.vm.ToValue(func(goja.FunctionCall) goja.Value { return s.object })
	}
	if notBackendMethods[key] {
		return goja.Undefined()
	}
	method := key
	return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			args = append(args, a.Export())
		}
		s.runner.Invoke(method, args...)
		return s.object
	})
}

func (s *scriptRunObject) Set(string, goja.Value) bool { return false }
func (s *scriptRunObject) Has(key string) bool         { return !notBackendMethods[key] }
func (s *scriptRunObject) Delete(string) bool          { return false }
func (s *scriptRunObject) Keys() []string              { return nil }

// successHandler adapts a JS callback into a bridge handler. It runs on the loop, because
// the bridge schedules its deliveries there.
func (e *Environment) successHandler(fn goja.Callable) bridge.SuccessHandler {
	return func(payload ldvalue.Value) {
		arg, err := e.jsonValue(payload)
		if err != nil {
			e.recordUncaught(err)
			return
		}
		if _, err := fn(goja.Undefined(), arg); err != nil {
			e.recordUncaught(fmt.Errorf("success handler threw: %w", err))
		}
	}
}

func (e *Environment) failureHandler(fn goja.Callable) bridge.FailureHandler {
	return func(failure error) {
		errObj := e.vm.NewGoError(failure)
		if _, err := fn(goja.Undefined(), errObj); err != nil {
			e.recordUncaught(fmt.Errorf("failure handler threw: %w", err))
		}
	}
}

// jsonValue converts a fixture payload into a fresh JS value, so that a handler which
// mutates its argument cannot affect later deliveries.
func (e *Environment) jsonValue(payload ldvalue.Value) (goja.Value, error) {
	parse, ok := goja.AssertFunction(e.vm.Get("JSON").ToObject(e.vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse is not available")
	}
	v, err := parse(goja.Undefined(), e.vm.ToValue(payload.JSONString()))
	if err != nil {
		return nil, fmt.Errorf("could not convert payload to a JS value: %w", err)
	}
	return v, nil
}
