// Package docenv loads a single-page document into an isolated JS environment.
//
// An Environment parses the markup with golang.org/x/net/html, runs its inline scripts in
// a goja runtime, and exposes enough of the browser surface for a dashboard to run: the
// document and element APIs, events, timers, alert and confirm, and stand-ins for the
// google.charts loader and the google.script.run bridge. Every call into the runtime runs
// on the environment's own event loop.
package docenv
