package async

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// defaultDelay is the interval between producer poll steps.
const defaultDelay = 15 * time.Millisecond

// Producer is one poll step of a periodic background task. It returns the
// action to enqueue, or nil when there is nothing to do. The context is
// cancelled at Shutdown so producers that block (e.g. on a notification
// queue) can wait interruptibly.
type Producer func(ctx context.Context) Action

// PanicHandler is called when an action panics during a drain. The stack
// is captured at recovery time.
type PanicHandler func(action Action, recovered any, stack []byte)

// Scope is the execution-context bookkeeping the host needs around a
// drain: whatever must be established before making calls outside the
// current call frame, and torn down after. Enter returns the matching
// exit function.
type Scope interface {
	Enter() (exit func())
}

// nopScope is the default Scope for hosts with no bookkeeping needs.
type nopScope struct{}

func (nopScope) Enter() func() { return func() {} }

// Stats is a snapshot of handler counters.
type Stats struct {
	Enqueued      uint64 // actions accepted by Enqueue
	Executed      uint64 // actions that ran to completion
	Panicked      uint64 // actions that panicked
	Drains        uint64 // drain passes that acquired the lock
	SkippedDrains uint64 // drain attempts that lost the try-lock
	Producers     uint64 // producer tasks ever registered
}

// Handler dispatches asynchronous actions to the logical thread. Any
// goroutine may Enqueue; only the logical thread calls Check. Producers
// registered with Register run on their own goroutines and feed the queue.
type Handler struct {
	// Queue state shared between producers and the consumer. The pending
	// flag is set under mu by Enqueue and cleared under mu by a drain, but
	// Check reads it without the lock; that read being stale is tolerated
	// (see package doc).
	mu      sync.Mutex
	actions []Action
	pending atomic.Bool

	// Configuration.
	scope        Scope
	logger       zerolog.Logger
	panicHandler PanicHandler
	delay        time.Duration
	disabled     bool

	// Producer lifecycle.
	lifeMu   sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	down     atomic.Bool
	shutOnce sync.Once

	// Stats.
	enqueued      atomic.Uint64
	executed      atomic.Uint64
	panicked      atomic.Uint64
	drains        atomic.Uint64
	skippedDrains atomic.Uint64
	producers     atomic.Uint64
}

// New creates a Handler with the given options.
func New(opts ...Option) *Handler {
	h := &Handler{
		scope:  nopScope{},
		logger: nopLogger,
		delay:  defaultDelay,
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(h)
	}
	if h.panicHandler == nil {
		h.panicHandler = h.defaultPanicHandler
	}
	return h
}

func (h *Handler) defaultPanicHandler(_ Action, recovered any, stack []byte) {
	h.logger.Error().
		Interface("panic", recovered).
		Str("stack", string(stack)).
		Msg("async action panicked")
}

// Enqueue appends an action to the queue and sets the pending flag. Safe
// from any goroutine; blocks only for the lock hold time of a concurrent
// enqueue or snapshot swap. Nil actions and enqueues after Shutdown are
// dropped.
func (h *Handler) Enqueue(a Action) {
	if a == nil || h.down.Load() {
		return
	}
	h.mu.Lock()
	h.actions = append(h.actions, a)
	h.pending.Store(true)
	h.mu.Unlock()
	h.enqueued.Add(1)
}

// Check is the trigger point. The host must call it from the logical
// thread at a bounded interval (ideally at call boundaries). It performs a
// single atomic read of the pending flag and returns immediately when it
// is false. When the flag is set, it enters the host scope, drains, and
// exits the scope. Nothing panics or errors across this boundary; a missed
// flag observation only delays processing until the next call.
func (h *Handler) Check(rt Runtime) {
	if !h.pending.Load() {
		return
	}
	exit := h.scope.Enter()
	defer exit()
	h.drain(rt)
}

// drain attempts the slow path. The try-lock means a producer mid-enqueue
// never stalls the logical thread: on contention we simply return and rely
// on the next Check. On success the pending flag is cleared and the queue
// snapshotted before the lock is released, so producers are held only for
// the swap, and actions enqueued while the snapshot executes (including by
// a running action) are deferred to the next drain.
func (h *Handler) drain(rt Runtime) {
	if !h.mu.TryLock() {
		h.skippedDrains.Add(1)
		return
	}
	h.pending.Store(false)
	batch := h.actions
	h.actions = nil
	h.mu.Unlock()

	h.drains.Add(1)
	for _, a := range batch {
		h.execute(rt, a)
	}
}

// execute runs one action with panic containment. A failing action is
// terminal for that action only, never for the rest of the pass.
func (h *Handler) execute(rt Runtime, a Action) {
	defer func() {
		if r := recover(); r != nil {
			h.panicked.Add(1)
			h.panicHandler(a, r, debug.Stack())
		}
	}()
	a.Execute(rt)
	h.executed.Add(1)
}

// Register starts a periodic background task that invokes the producer at
// a fixed delay and enqueues whatever action it yields. Registering the
// same producer twice yields two independent tasks. When the handler was
// created with WithDisabled(true) the call is a no-op; the switch is read
// once, here, not per tick.
func (h *Handler) Register(p Producer) error {
	if p == nil {
		return ErrNilProducer
	}
	if h.disabled {
		return nil
	}
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.down.Load() {
		return ErrShutdown
	}
	h.wg.Add(1)
	h.producers.Add(1)
	go h.poll(p)
	return nil
}

// poll is one producer's fixed-delay loop. A panic in the producer ends
// this loop only; other producers and the queue are unaffected.
func (h *Handler) poll(p Producer) {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("async producer panicked; producer stopped")
		}
	}()

	timer := time.NewTimer(h.delay)
	defer timer.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-timer.C:
		}
		if a := p(h.ctx); a != nil {
			h.Enqueue(a)
		}
		// Fixed delay between the end of one step and the start of the
		// next, not a fixed rate.
		timer.Reset(h.delay)
	}
}

// Shutdown stops all producer goroutines and discards queued actions
// without executing them. Idempotent. Pending native-resource releases are
// deliberately not flushed; process teardown reclaims those by other
// means.
func (h *Handler) Shutdown() {
	h.shutOnce.Do(func() {
		h.lifeMu.Lock()
		h.down.Store(true)
		h.cancel()
		h.lifeMu.Unlock()
		h.wg.Wait()

		h.mu.Lock()
		h.actions = nil
		h.pending.Store(false)
		h.mu.Unlock()
	})
}

// Stats returns a snapshot of the handler's counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Enqueued:      h.enqueued.Load(),
		Executed:      h.executed.Load(),
		Panicked:      h.panicked.Load(),
		Drains:        h.drains.Load(),
		SkippedDrains: h.skippedDrains.Load(),
		Producers:     h.producers.Load(),
	}
}
