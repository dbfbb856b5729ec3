package finalize

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/luadispatch/internal/async"
)

// Finalizer turns collected referents into release actions. It owns the
// notification queue the collector delivers reclaimed References to, and
// the liveness set that keeps the wrappers reachable until delivery.
//
// Insertion into the liveness set may happen from any goroutine; removal
// happens only on the Finalizer's producer goroutine.
type Finalizer struct {
	handler *async.Handler
	logger  zerolog.Logger

	// Notification queue. The collector's cleanup goroutine must never
	// block, so deliveries append under a mutex and nudge the signal
	// channel; the producer step waits on the signal.
	mu        sync.Mutex
	reclaimed []*Reference
	signal    chan struct{}

	live sync.Map // *Reference -> *Reference

	registerOnce sync.Once
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithLogger sets the logger used for release failure reports.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Finalizer) { f.logger = l }
}

// New creates a Finalizer dispatching through the given handler. No
// background work starts until the first Track call.
func New(handler *async.Handler, opts ...Option) *Finalizer {
	f := &Finalizer{
		handler: handler,
		logger:  zerolog.Nop(),
		signal:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Track registers a native resource against the lifetime of referent. When
// the collector determines referent is unreachable, the returned Reference
// is delivered to the Finalizer, removed from the liveness set, and — if
// not already marked released — its release hook runs exactly once via the
// dispatch queue. Track never blocks.
//
// The producer is registered on the first Track so that runtimes with no
// native resources never start the goroutine.
func Track[T any](f *Finalizer, referent *T, kind string, handle any, release ReleaseFunc) *Reference {
	ref := &Reference{kind: kind, handle: handle, release: release}
	f.live.Store(ref, ref)
	runtime.AddCleanup(referent, f.deliver, ref)
	f.registerOnce.Do(func() {
		if err := f.handler.Register(f.step); err != nil {
			f.logger.Error().Err(err).Msg("finalizer producer registration failed")
		}
	})
	return ref
}

// Tracked reports whether ref is still anchored by the liveness set.
func (f *Finalizer) Tracked(ref *Reference) bool {
	_, ok := f.live.Load(ref)
	return ok
}

// deliver is the collector-side half of the notification queue. It runs on
// the runtime's cleanup goroutine and must not block.
func (f *Finalizer) deliver(ref *Reference) {
	f.mu.Lock()
	f.reclaimed = append(f.reclaimed, ref)
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// take removes one delivered Reference, or returns nil.
func (f *Finalizer) take() *Reference {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reclaimed) == 0 {
		return nil
	}
	ref := f.reclaimed[0]
	f.reclaimed = f.reclaimed[1:]
	return ref
}

// step is the producer registered with the async handler. It waits for one
// reclaimed Reference (or shutdown) and converts it into an action. Any
// panic while reclaiming becomes a diagnostic action instead of
// propagating, so one faulty release never stalls later references.
func (f *Finalizer) step(ctx context.Context) async.Action {
	ref := f.take()
	if ref == nil {
		select {
		case <-ctx.Done():
			return nil
		case <-f.signal:
		}
		if ref = f.take(); ref == nil {
			return nil
		}
	}
	return f.reclaim(ref)
}

// reclaim removes ref from the liveness set and produces its release
// action, or nothing when the resource was already released.
func (f *Finalizer) reclaim(ref *Reference) (act async.Action) {
	defer func() {
		if r := recover(); r != nil {
			act = &errorReport{
				kind:   ref.kind,
				cause:  fmt.Errorf("%v", r),
				logger: f.logger,
			}
		}
	}()
	f.live.Delete(ref)
	if !ref.released.CompareAndSwap(false, true) {
		return nil
	}
	return ref.release(ref.handle)
}

// errorReport surfaces a release failure on the logical thread, like any
// other action, instead of swallowing it on the producer goroutine.
type errorReport struct {
	kind   string
	cause  error
	logger zerolog.Logger
}

// Execute implements async.Action.
func (e *errorReport) Execute(async.Runtime) {
	e.logger.Error().
		Err(e.cause).
		Str("resource", e.kind).
		Msg("error during finalization")
}
