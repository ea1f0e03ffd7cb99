package docenv

import (
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wrap returns the JS object for a node, creating it the first time so that the same
// node always maps to the same object.
func (e *Environment) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n.Type == html.DocumentNode {
		return e.documentObject
	}
	if o, ok := e.wrappers[n]; ok {
		return o
	}
	var o *goja.Object
	if n.Type == html.ElementNode {
		o = e.newElementObject(n)
	} else {
		o = e.newTextObject(n)
	}
	e.wrappers[n] = o
	e.nodesByObject[o] = n
	return o
}

func (e *Environment) wrapAll(nodes []*html.Node) goja.Value {
	items := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, e.wrap(n))
	}
	return e.vm.NewArray(items...)
}

func (e *Environment) nodeOf(v goja.Value) *html.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	o, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if o == e.documentObject {
		return e.doc
	}
	return e.nodesByObject[o]
}

func (e *Environment) throwTypeError(format string, args ...interface{}) {
	panic(e.vm.NewTypeError(append([]interface{}{format}, args...)...))
}

// accessor defines a property backed by Go functions. A nil set makes assignments
// silently ignored, as for read-only DOM properties in sloppy mode.
func (e *Environment) accessor(o *goja.Object, name string, get func() interface{}, set func(goja.Value)) {
	getter := e.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return e.vm.ToValue(get())
	})
	setter := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if set != nil {
			set(call.Argument(0))
		}
		return goja.Undefined()
	})
	_ = o.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (e *Environment) method(o *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
	_ = o.Set(name, fn)
}

func (e *Environment) newTextObject(n *html.Node) *goja.Object {
	o := e.vm.NewObject()
	_ = o.Set("nodeType", 3)
	e.accessor(o, "textContent", func() interface{} { return n.Data }, func(v goja.Value) { n.Data = v.String() })
	e.accessor(o, "parentElement", func() interface{} { return e.parentElement(n) }, nil)
	return o
}

func (e *Environment) parentElement(n *html.Node) goja.Value {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return goja.Null()
	}
	return e.wrap(n.Parent)
}

// installQueryMethods adds the selector methods shared by document and elements.
func (e *Environment) installQueryMethods(o *goja.Object, root func() *html.Node) {
	e.method(o, "querySelector", func(call goja.FunctionCall) goja.Value {
		return e.wrap(querySelector(root(), call.Argument(0).String()))
	})
	e.method(o, "querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return e.wrapAll(querySelectorAll(root(), call.Argument(0).String()))
	})
	e.method(o, "getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		var selector string
		for _, c := range strings.Fields(call.Argument(0).String()) {
			selector += "." + c
		}
		if selector == "" {
			return e.vm.NewArray()
		}
		return e.wrapAll(querySelectorAll(root(), selector))
	})
	e.method(o, "getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return e.wrapAll(querySelectorAll(root(), call.Argument(0).String()))
	})
}

// installListenerMethods adds addEventListener and removeEventListener for a node.
func (e *Environment) installListenerMethods(o *goja.Object, n *html.Node) {
	e.method(o, "addEventListener", func(call goja.FunctionCall) goja.Value {
		e.addListener(n, call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	})
	e.method(o, "removeEventListener", func(call goja.FunctionCall) goja.Value {
		e.removeListener(n, call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	})
}

func (e *Environment) newDocumentObject() *goja.Object {
	o := e.vm.NewObject()
	_ = o.Set("nodeType", 9)
	e.installQueryMethods(o, func() *html.Node { return e.doc })
	e.installListenerMethods(o, e.doc)
	e.method(o, "getElementById", func(call goja.FunctionCall) goja.Value {
		return e.wrap(findByID(e.doc, call.Argument(0).String()))
	})
	e.method(o, "createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return e.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	})
	e.method(o, "createTextNode", func(call goja.FunctionCall) goja.Value {
		return e.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	e.accessor(o, "readyState", func() interface{} { return e.readyState }, nil)
	e.accessor(o, "body", func() interface{} { return e.wrap(findFirstElement(e.doc, "body")) }, nil)
	e.accessor(o, "head", func() interface{} { return e.wrap(findFirstElement(e.doc, "head")) }, nil)
	e.accessor(o, "documentElement", func() interface{} { return e.wrap(findFirstElement(e.doc, "html")) }, nil)
	e.accessor(o, "title", func() interface{} {
		if t := findFirstElement(e.doc, "title"); t != nil {
			return textContent(t)
		}
		return ""
	}, nil)
	return o
}

var handlerProperties = []string{"onclick", "onchange", "oninput", "onsubmit", "onkeyup", "onfocus", "onblur"}

func (e *Environment) newElementObject(n *html.Node) *goja.Object {
	o := e.vm.NewObject()
	_ = o.Set("nodeType", 1)

	e.accessor(o, "tagName", func() interface{} { return strings.ToUpper(n.Data) }, nil)
	e.accessor(o, "nodeName", func() interface{} { return strings.ToUpper(n.Data) }, nil)
	for _, name := range []string{"id", "name", "type", "href", "title"} {
		attr := name
		e.accessor(o, attr, func() interface{} {
			v, _ := getAttr(n, attr)
			return v
		}, func(v goja.Value) { setAttr(n, attr, v.String()) })
	}
	e.accessor(o, "className",
		func() interface{} { v, _ := getAttr(n, "class"); return v },
		func(v goja.Value) { setAttr(n, "class", v.String()) })
	e.accessor(o, "value",
		func() interface{} { v, _ := getAttr(n, "value"); return v },
		func(v goja.Value) { setAttr(n, "value", v.String()) })
	for _, name := range []string{"hidden", "disabled", "checked"} {
		attr := name
		e.accessor(o, attr, func() interface{} {
			_, ok := getAttr(n, attr)
			return ok
		}, func(v goja.Value) {
			if v.ToBoolean() {
				setAttr(n, attr, "")
			} else {
				removeAttr(n, attr)
			}
		})
	}
	e.accessor(o, "textContent", func() interface{} { return textContent(n) },
		func(v goja.Value) { setTextContent(n, valueString(v)) })
	e.accessor(o, "innerText", func() interface{} { return textContent(n) },
		func(v goja.Value) { setTextContent(n, valueString(v)) })
	e.accessor(o, "innerHTML", func() interface{} { return renderChildren(n) },
		func(v goja.Value) {
			if err := setInnerHTML(n, valueString(v)); err != nil {
				e.throwTypeError("could not parse innerHTML: %s", err)
			}
		})
	e.accessor(o, "parentElement", func() interface{} { return e.parentElement(n) }, nil)
	e.accessor(o, "parentNode", func() interface{} { return e.wrap(n.Parent) }, nil)
	e.accessor(o, "children", func() interface{} { return e.wrapAll(elementChildren(n)) }, nil)
	e.accessor(o, "firstElementChild", func() interface{} {
		if c := elementChildren(n); len(c) > 0 {
			return e.wrap(c[0])
		}
		return goja.Null()
	}, nil)
	e.accessor(o, "style", func() interface{} { return e.styleObject(n) },
		func(v goja.Value) { setAttr(n, "style", v.String()) })
	classList := e.newClassList(n)
	e.accessor(o, "classList", func() interface{} { return classList }, nil)
	dataset := e.vm.NewDynamicObject(&datasetObject{env: e, node: n})
	e.accessor(o, "dataset", func() interface{} { return dataset }, nil)

	for _, name := range handlerProperties {
		prop := name
		e.accessor(o, prop, func() interface{} {
			if v, ok := e.propHandlers[n][prop]; ok {
				return v
			}
			return goja.Null()
		}, func(v goja.Value) {
			if e.propHandlers[n] == nil {
				e.propHandlers[n] = make(map[string]goja.Value)
			}
			e.propHandlers[n][prop] = v
		})
	}

	e.method(o, "getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := getAttr(n, strings.ToLower(call.Argument(0).String())); ok {
			return e.vm.ToValue(v)
		}
		return goja.Null()
	})
	e.method(o, "setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	e.method(o, "removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	e.method(o, "hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := getAttr(n, strings.ToLower(call.Argument(0).String()))
		return e.vm.ToValue(ok)
	})
	e.installQueryMethods(o, func() *html.Node { return n })
	e.installListenerMethods(o, n)
	e.method(o, "closest", func(call goja.FunctionCall) goja.Value {
		return e.wrap(closest(n, call.Argument(0).String()))
	})
	e.method(o, "matches", func(call goja.FunctionCall) goja.Value {
		return e.vm.ToValue(matches(n, call.Argument(0).String()))
	})
	e.method(o, "appendChild", func(call goja.FunctionCall) goja.Value {
		child := e.nodeOf(call.Argument(0))
		if child == nil {
			e.throwTypeError("appendChild argument is not a node")
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		n.AppendChild(child)
		return call.Argument(0)
	})
	e.method(o, "removeChild", func(call goja.FunctionCall) goja.Value {
		child := e.nodeOf(call.Argument(0))
		if child == nil || child.Parent != n {
			e.throwTypeError("removeChild argument is not a child of this node")
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	e.method(o, "remove", func(goja.FunctionCall) goja.Value {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return goja.Undefined()
	})
	e.method(o, "click", func(goja.FunctionCall) goja.Value {
		_ = e.dispatch(n, "click", true)
		return goja.Undefined()
	})
	for _, name := range []string{"focus", "blur", "scrollIntoView"} {
		e.method(o, name, func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	}
	return o
}

func valueString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func (e *Environment) newClassList(n *html.Node) *goja.Object {
	o := e.vm.NewObject()
	e.method(o, "add", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			addClass(n, a.String())
		}
		return goja.Undefined()
	})
	e.method(o, "remove", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			removeClass(n, a.String())
		}
		return goja.Undefined()
	})
	e.method(o, "contains", func(call goja.FunctionCall) goja.Value {
		return e.vm.ToValue(hasClass(n, call.Argument(0).String()))
	})
	e.method(o, "toggle", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		want := !hasClass(n, name)
		if force := call.Argument(1); !goja.IsUndefined(force) {
			want = force.ToBoolean()
		}
		if want {
			addClass(n, name)
		} else {
			removeClass(n, name)
		}
		return e.vm.ToValue(want)
	})
	e.accessor(o, "length", func() interface{} { return len(classNames(n)) }, nil)
	e.accessor(o, "value", func() interface{} { return strings.Join(classNames(n), " ") }, nil)
	return o
}

func (e *Environment) styleObject(n *html.Node) *goja.Object {
	if o, ok := e.styleObjects[n]; ok {
		return o
	}
	o := e.vm.NewDynamicObject(&styleObject{env: e, node: n})
	e.styleObjects[n] = o
	return o
}

// styleObject exposes an element's inline style attribute as a CSSStyleDeclaration.
type styleObject struct {
	env  *Environment
	node *html.Node
}

func (s *styleObject) Get(key string) goja.Value {
	vm := s.env.vm
	switch key {
	case "cssText":
		v, _ := getAttr(s.node, "style")
		return vm.ToValue(v)
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(getStyleProperty(s.node, strings.ToLower(call.Argument(0).String())))
		})
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			setStyleProperty(s.node, strings.ToLower(call.Argument(0).String()), valueString(call.Argument(1)))
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			name := strings.ToLower(call.Argument(0).String())
			old := getStyleProperty(s.node, name)
			setStyleProperty(s.node, name, "")
			return vm.ToValue(old)
		})
	}
	return vm.ToValue(getStyleProperty(s.node, cssPropertyName(key)))
}

func (s *styleObject) Set(key string, val goja.Value) bool {
	if key == "cssText" {
		setAttr(s.node, "style", formatStyle(parseStyle(valueString(val))))
		return true
	}
	setStyleProperty(s.node, cssPropertyName(key), valueString(val))
	return true
}

func (s *styleObject) Has(key string) bool {
	return getStyleProperty(s.node, cssPropertyName(key)) != ""
}

func (s *styleObject) Delete(key string) bool {
	setStyleProperty(s.node, cssPropertyName(key), "")
	return true
}

func (s *styleObject) Keys() []string {
	v, _ := getAttr(s.node, "style")
	var keys []string
	for _, d := range parseStyle(v) {
		keys = append(keys, jsPropertyName(d.name))
	}
	return keys
}

// datasetObject exposes data-* attributes with camelCase keys.
type datasetObject struct {
	env  *Environment
	node *html.Node
}

func (d *datasetObject) Get(key string) goja.Value {
	if v, ok := getAttr(d.node, "data-"+cssPropertyName(key)); ok {
		return d.env.vm.ToValue(v)
	}
	return goja.Undefined()
}

func (d *datasetObject) Set(key string, val goja.Value) bool {
	setAttr(d.node, "data-"+cssPropertyName(key), valueString(val))
	return true
}

func (d *datasetObject) Has(key string) bool {
	_, ok := getAttr(d.node, "data-"+cssPropertyName(key))
	return ok
}

func (d *datasetObject) Delete(key string) bool {
	removeAttr(d.node, "data-"+cssPropertyName(key))
	return true
}

func (d *datasetObject) Keys() []string {
	var keys []string
	for _, a := range d.node.Attr {
		if a.Namespace == "" && strings.HasPrefix(a.Key, "data-") {
			keys = append(keys, jsPropertyName(strings.TrimPrefix(a.Key, "data-")))
		}
	}
	return keys
}
