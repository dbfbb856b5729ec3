package async

// Runtime is the capability an action receives when it executes. It is the
// narrow view of the host needed to make calls into the managed runtime;
// the concrete implementation lives with the host (see internal/luahost).
type Runtime interface {
	// Invoke calls a runtime callable with the given arguments on the
	// current goroutine. It returns the call's error, if any; it must not
	// panic for ordinary call failures.
	Invoke(callable any, args ...any) error
}

// Action is a deferred unit of work executed on the logical thread. An
// action may enqueue further actions; those are not guaranteed to run in
// the same drain pass.
type Action interface {
	Execute(rt Runtime)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(rt Runtime)

// Execute implements Action.
func (f ActionFunc) Execute(rt Runtime) { f(rt) }

// CallAction is an action that calls a runtime callable with arguments.
// A failed call is reported as a diagnostic trace and never propagated;
// the runtime cannot raise an error into whatever code happened to be
// executing when the dispatcher drained.
type CallAction struct {
	// Callable is the value to call, in whatever form the Runtime accepts.
	Callable any

	// Args are passed to the call unchanged.
	Args []any
}

// Execute implements Action.
func (a *CallAction) Execute(rt Runtime) {
	if a.Callable == nil {
		return
	}
	if err := rt.Invoke(a.Callable, a.Args...); err != nil {
		logger().Error().Err(err).Msg("async call failed")
	}
}
