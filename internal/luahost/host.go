package luahost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadispatch/internal/async"
)

// defaultTick bounds how long a queued action waits when no Lua work is
// flowing; with work flowing, Check runs at every call boundary anyway.
const defaultTick = 10 * time.Millisecond

// task is one unit of Lua work submitted through Do.
type task struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Host owns a Lua state and the async handler dispatching to it. The
// goroutine running Run is the logical thread: it alone touches the state,
// executing submitted work and draining asynchronous actions between work
// items.
type Host struct {
	L       *lua.LState
	handler *async.Handler
	rt      *Runtime

	work      chan *task
	done      chan struct{}
	loopDone  chan struct{}
	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once

	tick   time.Duration
	logger zerolog.Logger
}

// Option configures a Host.
type Option func(*hostConfig)

type hostConfig struct {
	tick      time.Duration
	queueSize int
	logger    zerolog.Logger
	asyncOpts []async.Option
}

// WithTick sets the fallback interval at which the owner loop evaluates
// the trigger point when idle.
func WithTick(d time.Duration) Option {
	return func(c *hostConfig) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithQueueSize sets how many submitted work items can be buffered.
func WithQueueSize(n int) Option {
	return func(c *hostConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithLogger sets the host's logger; it is also handed to the async
// handler unless overridden via WithAsyncOptions.
func WithLogger(l zerolog.Logger) Option {
	return func(c *hostConfig) { c.logger = l }
}

// WithAsyncOptions appends options for the embedded async.Handler, e.g.
// async.WithDelay or async.WithDisabled.
func WithAsyncOptions(opts ...async.Option) Option {
	return func(c *hostConfig) { c.asyncOpts = append(c.asyncOpts, opts...) }
}

// New creates a Host with a fresh Lua state. Close releases the state.
func New(opts ...Option) *Host {
	cfg := hostConfig{
		tick:      defaultTick,
		queueSize: 100,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	L := lua.NewState()
	handlerOpts := append([]async.Option{
		async.WithLogger(cfg.logger),
		async.WithScope(StackScope{L: L}),
	}, cfg.asyncOpts...)

	return &Host{
		L:        L,
		handler:  async.New(handlerOpts...),
		rt:       &Runtime{L: L},
		work:     make(chan *task, cfg.queueSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		tick:     cfg.tick,
		logger:   cfg.logger,
	}
}

// Handler returns the async handler for registering producers and
// enqueuing actions.
func (h *Host) Handler() *async.Handler { return h.handler }

// Runtime returns the async.Runtime view of this host, for callers that
// drive Check themselves instead of using Run.
func (h *Host) Runtime() *Runtime { return h.rt }

// Run is the owner loop. It MUST be called from the goroutine that is to
// own the Lua state, and blocks until ctx is cancelled or Close is called.
// Between work items, and at the fallback tick, it evaluates the trigger
// point so queued asynchronous actions execute here, serialized with all
// other Lua activity.
func (h *Host) Run(ctx context.Context) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	h.running.Store(true)
	defer close(h.loopDone)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		h.handler.Check(h.rt)
		select {
		case <-ctx.Done():
			h.drainWork(ctx.Err())
			return ctx.Err()
		case <-h.done:
			h.drainWork(ErrHostClosed)
			return nil
		case t := <-h.work:
			err := h.runTask(t)
			select {
			case t.result <- err:
			default:
			}
			close(t.result)
		case <-ticker.C:
		}
	}
}

// runTask executes one work item with panic recovery, in the style of a
// protected Lua call.
func (h *Host) runTask(t *task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch v := rec.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua task panic")
			}
		}
	}()
	return t.fn(h.L)
}

// drainWork fails all queued work with the given error.
func (h *Host) drainWork(cause error) {
	for {
		select {
		case t := <-h.work:
			select {
			case t.result <- cause:
			default:
			}
			close(t.result)
		default:
			return
		}
	}
}

// Do submits a Lua operation and blocks until the owner loop has executed
// it or ctx is cancelled. Safe from any goroutine.
func (h *Host) Do(ctx context.Context, fn func(L *lua.LState) error) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	t := &task{fn: fn, result: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHostClosed
	case h.work <- t:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-t.result:
		if !ok {
			return ErrHostClosed
		}
		return err
	}
}

// Close stops the owner loop, shuts down the async handler's producers,
// and closes the Lua state. It waits for a started Run to return before
// touching the state. Idempotent.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.done)
		if h.running.Load() {
			<-h.loopDone
		}
		h.handler.Shutdown()
		h.L.Close()
	})
}
