// Package luahost binds the async dispatch engine to a gopher-lua state.
//
// gopher-lua's LState is NOT goroutine-safe: every Lua operation must
// happen on the single goroutine that owns the state. That owner goroutine
// is the dispatch engine's "logical thread". The Host runs the owner loop:
// it processes work submitted via Do and evaluates the trigger point
// (async.Handler.Check) at every call boundary and on a fallback tick, so
// queued asynchronous actions run promptly, serialized with all other Lua
// activity.
//
// Runtime implements async.Runtime over the LState, supplying the
// "invoke callable with arguments" capability actions need. StackScope
// implements async.Scope by saving and restoring the Lua stack top around
// a drain, so a drain can never leak values onto whatever frame happened
// to be executing.
package luahost
