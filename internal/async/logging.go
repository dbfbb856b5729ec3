package async

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Package-level logger for actions that have no handler to hand them one
// (CallAction failure traces). Handlers carry their own injected logger;
// this exists so a bare CallAction still surfaces failures somewhere.
var pkgLogger atomic.Pointer[zerolog.Logger]

var nopLogger = zerolog.Nop()

// SetLogger sets the package-level logger used for diagnostics emitted
// outside any Handler, such as CallAction failure traces. The default
// discards everything.
func SetLogger(l zerolog.Logger) {
	pkgLogger.Store(&l)
}

func logger() *zerolog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return &nopLogger
}
