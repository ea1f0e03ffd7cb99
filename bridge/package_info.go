// Package bridge contains a mock of the platform's asynchronous RPC bridge.
//
// The dashboard reaches its backend only through calls shaped like
//
//	google.script.run.withSuccessHandler(onData).withFailureHandler(onError).getEmployeeData()
//
// Bridge reproduces that shape with a fixture table standing in for the backend. Each call
// is answered after a short deferred delay by invoking the most recently registered success
// handler with the fixture for the method name. The bridge has no notion of overlapping
// calls, and the failure handler is accepted but never called.
package bridge
