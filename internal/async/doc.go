// Package async provides the asynchronous action dispatch engine for the
// Lua runtime host.
//
// Background goroutines (timers, signal pollers, GC notification queues)
// must never touch the Lua state directly: gopher-lua's LState is
// single-threaded, and all interpreter-visible side effects have to happen
// on the one goroutine that owns it. This package lets any number of
// producer goroutines request that work run on that goroutine, the
// "logical thread", without executing anything themselves.
//
// # Architecture
//
//	producers (N goroutines)          logical thread (1 goroutine)
//	──────────────────────            ────────────────────────────
//	Register(producer)                for each call boundary:
//	  └─ poll loop ── Enqueue ──┐       Check(rt)
//	                            ▼         │ pending flag false → return
//	                   ┌─────────────┐    │ pending flag true:
//	                   │ action queue│◄───┘   try-lock, snapshot,
//	                   │ + pending   │        execute FIFO
//	                   │   flag      │
//	                   └─────────────┘
//
// Enqueue appends an action under a mutex and sets an atomic pending flag.
// Check performs a single atomic read of that flag; when it observes true
// it enters the slow path: a non-blocking TryLock, clearing the flag,
// snapshotting the queue, and executing the snapshot in FIFO order on the
// calling goroutine. A failed TryLock is a deliberate skip, not an error;
// the next Check retries.
//
// There is a tolerated race: a producer may set the flag just after a
// drain cleared it, or Check may observe a stale false while the queue is
// briefly non-empty. Both are self-healing — the producer's enqueue
// happens-before its flag set, so the next Check observes the work. Do not
// add stronger synchronization here; the cheap unsynchronized read is the
// entire point of the hot-path check.
//
// # Ordering
//
// Actions enqueued by one producer execute in enqueue order. No ordering
// holds across producers. A drain executes the snapshot taken at lock
// acquisition; actions enqueued during a drain (including by a running
// action) wait for the next drain.
//
// # Failure containment
//
// Nothing propagates across Check. A panicking action is recovered,
// reported through the panic handler, and the rest of the pass continues.
// A panicking producer terminates only that producer's poll loop.
package async
