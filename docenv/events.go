package docenv

import (
	"fmt"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

type inlineHandlerKey struct {
	node *html.Node
	attr string
	code string
}

type eventState struct {
	object           *goja.Object
	stopped          bool
	defaultPrevented bool
}

func (e *Environment) newEvent(eventType string, target goja.Value, bubbles bool) *eventState {
	st := &eventState{object: e.vm.NewObject()}
	o := st.object
	_ = o.Set("type", eventType)
	_ = o.Set("target", target)
	_ = o.Set("srcElement", target)
	_ = o.Set("bubbles", bubbles)
	_ = o.Set("isTrusted", false)
	_ = o.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		st.defaultPrevented = true
		_ = o.Set("defaultPrevented", true)
		return goja.Undefined()
	})
	_ = o.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		st.stopped = true
		return goja.Undefined()
	})
	_ = o.Set("stopImmediatePropagation", func(goja.FunctionCall) goja.Value {
		st.stopped = true
		return goja.Undefined()
	})
	_ = o.Set("defaultPrevented", false)
	return st
}

func (e *Environment) addListener(n *html.Node, eventType string, fn goja.Value) {
	if _, ok := goja.AssertFunction(fn); !ok {
		return
	}
	byType := e.listeners[n]
	if byType == nil {
		byType = make(map[string][]goja.Value)
		e.listeners[n] = byType
	}
	for _, existing := range byType[eventType] {
		if existing.SameAs(fn) {
			return
		}
	}
	byType[eventType] = append(byType[eventType], fn)
}

func (e *Environment) removeListener(n *html.Node, eventType string, fn goja.Value) {
	list := e.listeners[n][eventType]
	for i, existing := range list {
		if existing.SameAs(fn) {
			e.listeners[n][eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// dispatch delivers an event to target and, if it bubbles, to each ancestor and then
// the window. Exceptions thrown by handlers do not stop the dispatch; they are recorded
// as uncaught errors and the first one is returned.
func (e *Environment) dispatch(target *html.Node, eventType string, bubbles bool) error {
	ev := e.newEvent(eventType, e.wrap(target), bubbles)
	var firstErr error
	note := func(err error) {
		if err == nil {
			return
		}
		e.recordUncaught(err)
		if firstErr == nil {
			firstErr = err
		}
	}

	for n := target; n != nil; n = n.Parent {
		current := e.wrap(n)
		_ = ev.object.Set("currentTarget", current)
		note(e.invokeListeners(e.listeners[n][eventType], current, ev))
		if n.Type == html.ElementNode {
			note(e.invokeHandlerProperty(n, eventType, current, ev))
		}
		if ev.stopped || !bubbles {
			return firstErr
		}
	}
	_ = ev.object.Set("currentTarget", e.vm.GlobalObject())
	note(e.invokeListeners(e.windowListeners[eventType], e.vm.GlobalObject(), ev))
	return firstErr
}

func (e *Environment) dispatchWindow(eventType string) error {
	ev := e.newEvent(eventType, e.vm.GlobalObject(), false)
	_ = ev.object.Set("currentTarget", e.vm.GlobalObject())
	err := e.invokeListeners(e.windowListeners[eventType], e.vm.GlobalObject(), ev)
	if err != nil {
		e.recordUncaught(err)
	}
	if fn, ok := goja.AssertFunction(e.vm.Get("on" + eventType)); ok {
		if _, err2 := fn(e.vm.GlobalObject(), ev.object); err2 != nil {
			e.recordUncaught(err2)
			if err == nil {
				err = err2
			}
		}
	}
	return err
}

func (e *Environment) invokeListeners(list []goja.Value, this goja.Value, ev *eventState) error {
	var firstErr error
	// copy, since a listener may add or remove listeners
	for _, l := range append([]goja.Value(nil), list...) {
		fn, ok := goja.AssertFunction(l)
		if !ok {
			continue
		}
		if _, err := fn(this, ev.object); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s listener threw: %w", ev.object.Get("type"), err)
		}
	}
	return firstErr
}

// invokeHandlerProperty runs the element's on<type> handler: a function assigned to the
// property if there is one, otherwise the inline attribute.
func (e *Environment) invokeHandlerProperty(n *html.Node, eventType string, this goja.Value, ev *eventState) error {
	attr := "on" + eventType
	var fn goja.Callable
	if v, ok := e.propHandlers[n][attr]; ok {
		fn, _ = goja.AssertFunction(v)
	} else if code, ok := getAttr(n, attr); ok {
		compiled, err := e.compileInlineHandler(n, attr, code)
		if err != nil {
			return err
		}
		fn = compiled
	}
	if fn == nil {
		return nil
	}
	result, err := fn(this, ev.object)
	if err != nil {
		return fmt.Errorf("%s handler on %s threw: %w", attr, describeNode(n), err)
	}
	if result != nil && result.StrictEquals(e.vm.ToValue(false)) {
		ev.defaultPrevented = true
		_ = ev.object.Set("defaultPrevented", true)
	}
	return nil
}

func (e *Environment) compileInlineHandler(n *html.Node, attr, code string) (goja.Callable, error) {
	key := inlineHandlerKey{node: n, attr: attr, code: code}
	if fn, ok := e.inlineHandlers[key]; ok {
		return fn, nil
	}
	v, err := e.vm.RunScript(fmt.Sprintf("%s[%s]", describeNode(n), attr),
		"(function(event) {\n"+code+"\n})")
	if err != nil {
		return nil, fmt.Errorf("%s attribute on %s could not be compiled: %w", attr, describeNode(n), err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%s attribute on %s is not a function", attr, describeNode(n))
	}
	e.inlineHandlers[key] = fn
	return fn, nil
}
