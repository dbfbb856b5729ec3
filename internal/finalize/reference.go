package finalize

import (
	"sync/atomic"

	"github.com/dshills/luadispatch/internal/async"
)

// ReleaseFunc frees the native resource behind a handle. It returns the
// action that performs the release on the logical thread. Each resource
// kind supplies its own; the subsystem guarantees it is called at most
// once per Reference, never concurrently for the same Reference, and never
// after MarkReleased.
type ReleaseFunc func(handle any) async.Action

// Reference is a tracked pairing of a collectible Go object and a native
// resource the collector knows nothing about, such as an allocation made
// through a foreign interface. Resources the collector can free on its own
// should not be tracked.
//
// The Reference never holds its referent; it only carries the handle and
// the release hook. The Finalizer's liveness set is the sole strong anchor
// for the Reference itself until delivery.
type Reference struct {
	kind     string
	handle   any
	release  ReleaseFunc
	released atomic.Bool
}

// Kind returns the resource kind label, used in diagnostics.
func (r *Reference) Kind() string { return r.kind }

// Handle returns the underlying handle, usually a native pointer or
// descriptor. The subsystem treats it opaquely.
func (r *Reference) Handle() any { return r.handle }

// Released reports whether the resource has been released, or marked as
// released elsewhere.
func (r *Reference) Released() bool { return r.released.Load() }

// MarkReleased records that the resource was already freed elsewhere, so
// delivery through the notification queue must not free it again. Calling
// it more than once is a no-op.
func (r *Reference) MarkReleased() { r.released.Store(true) }
