// Package finalize reclaims native resources tied to the garbage
// collection of their owning Go objects, using the async dispatch engine
// so that release code always runs on the runtime's logical thread.
//
// A Reference pairs an observed referent (tracked via runtime.AddCleanup,
// which never keeps the referent alive) with an opaque native handle and a
// release hook. References live in a liveness set that anchors the wrapper
// itself — not its referent — until the referent is collected and the
// wrapper has been drained from the notification queue.
//
// Lifecycle of a Reference:
//
//	Live ──(referent collected)──► Queued ──► Released
//	  └──(MarkReleased by application code)──► PreReleased: delivery still
//	     drains the wrapper from the queue and liveness set, but the
//	     release hook is never invoked.
//
// The subsystem is just another producer on the async.Handler: its poll
// step blocks on the notification queue, removes a reclaimed wrapper from
// the liveness set, and yields either the release action or nothing. The
// producer is registered lazily on the first Track call, so embedding a
// runtime that never touches native resources costs no background
// goroutine.
//
// A faulty release hook never stalls collection of later references: the
// failure is converted into a diagnostic action that surfaces on the
// logical thread like any other.
package finalize
