package main

import (
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadispatch/internal/async"
	"github.com/dshills/luadispatch/internal/finalize"
)

// arena is a toy stand-in for a foreign allocator: the Go collector knows
// nothing about its blocks, so they must be reclaimed through the
// finalizer subsystem.
type arena struct {
	mu     sync.Mutex
	next   int
	blocks map[int][]byte
}

func newArena() *arena {
	return &arena{blocks: make(map[int][]byte)}
}

// allocate reserves a block and returns its handle.
func (a *arena) allocate(size int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.blocks[a.next] = make([]byte, size)
	return a.next
}

// free releases a block; freeing an unknown handle is a no-op.
func (a *arena) free(handle int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.blocks, handle)
}

// inUse returns the number of live blocks.
func (a *arena) inUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

// block is the managed owner of one arena allocation. Lua holds it through
// userdata; when the script drops it and the collector reclaims it, the
// finalizer frees the arena slot.
type block struct {
	handle int
	ref    *finalize.Reference
}

// installArena registers the demo's allocate/release/blocks_in_use
// globals. Must run on the owner goroutine.
func installArena(L *lua.LState, fin *finalize.Finalizer, logger zerolog.Logger) {
	ar := newArena()

	release := func(handle any) async.Action {
		return async.ActionFunc(func(async.Runtime) {
			ar.free(handle.(int))
			logger.Debug().Int("handle", handle.(int)).Msg("arena block reclaimed")
		})
	}

	L.SetGlobal("allocate", L.NewFunction(func(L *lua.LState) int {
		size := L.CheckInt(1)
		b := &block{handle: ar.allocate(size)}
		b.ref = finalize.Track(fin, b, "arena block", b.handle, release)
		ud := L.NewUserData()
		ud.Value = b
		L.Push(ud)
		return 1
	}))

	L.SetGlobal("release", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		b, ok := ud.Value.(*block)
		if !ok {
			L.ArgError(1, "expected an arena block")
			return 0
		}
		ar.free(b.handle)
		// The block was freed here; delivery through the notification
		// queue must not free it again.
		b.ref.MarkReleased()
		return 0
	}))

	L.SetGlobal("blocks_in_use", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(ar.inUse()))
		return 1
	}))
}
