package async

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Handler.
type Option func(*Handler)

// WithDelay sets the interval between producer poll steps. Values <= 0 are
// ignored.
func WithDelay(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.delay = d
		}
	}
}

// WithDisabled suppresses producer registration entirely, for embedding
// contexts that forbid background goroutines. Enqueue and Check still
// work; Register becomes a no-op.
func WithDisabled(disabled bool) Option {
	return func(h *Handler) {
		h.disabled = disabled
	}
}

// WithLogger sets the logger used for producer failures, action panics,
// and shutdown diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithScope sets the execution-context bookkeeping established around each
// drain. The default does nothing.
func WithScope(s Scope) Option {
	return func(h *Handler) {
		if s != nil {
			h.scope = s
		}
	}
}

// WithPanicHandler sets the handler invoked when an action panics during a
// drain. The default logs the panic and stack.
func WithPanicHandler(ph PanicHandler) Option {
	return func(h *Handler) {
		if ph != nil {
			h.panicHandler = ph
		}
	}
}
