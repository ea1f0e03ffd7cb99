package bridge

// Runner is the chainable call builder returned by Bridge.Run. Handler registration and
// invocation both return the same Runner, matching the shape of
//
//	google.script.run.withSuccessHandler(fn).withFailureHandler(fn).someMethod(args...)
type Runner struct {
	owner *Bridge
}

// WithSuccessHandler registers the handler for the next delivery, replacing any handler
// registered earlier.
func (r *Runner) WithSuccessHandler(h SuccessHandler) *Runner {
	r.owner.lock.Lock()
	r.owner.success = h
	r.owner.lock.Unlock()
	return r
}

// WithFailureHandler registers a failure handler. The mock never calls it.
func (r *Runner) WithFailureHandler(h FailureHandler) *Runner {
	r.owner.lock.Lock()
	r.owner.failure = h
	r.owner.lock.Unlock()
	return r
}

// Invoke calls a backend method. The arguments are recorded but do not affect which
// response is chosen. Invoking a method with no fixture is not an error; nothing is
// delivered.
func (r *Runner) Invoke(method string, args ...interface{}) *Runner {
	r.owner.invoke(method, args)
	return r
}

// Bridge returns the bridge that owns this runner.
func (r *Runner) Bridge() *Bridge {
	return r.owner
}
