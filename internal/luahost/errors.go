package luahost

import "errors"

// Sentinel errors for the Lua host.
var (
	// ErrHostClosed is returned when submitting work to a closed host.
	ErrHostClosed = errors.New("lua host is closed")

	// ErrNotCallable is returned when Invoke is given a value it cannot
	// call.
	ErrNotCallable = errors.New("value is not callable")

	// ErrUnknownCallable is returned when Invoke is given the name of a
	// global that does not exist.
	ErrUnknownCallable = errors.New("no such global callable")
)
