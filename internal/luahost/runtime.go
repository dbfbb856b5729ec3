package luahost

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Runtime implements async.Runtime over a Lua state. It must only be used
// from the goroutine that owns the state.
type Runtime struct {
	L *lua.LState
}

// Invoke calls a Lua callable with the given arguments. The callable may
// be a lua.LValue (function, or any value with a __call metamethod) or a
// string naming a global. Arguments are converted with toLua. Call
// failures come back as errors; panics inside gopher-lua are recovered and
// converted, never propagated.
func (r *Runtime) Invoke(callable any, args ...any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch v := rec.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()

	fn, err := r.resolve(callable)
	if err != nil {
		return err
	}
	lvs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvs[i] = toLua(r.L, a)
	}
	return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lvs...)
}

// resolve turns the callable value into something CallByParam accepts.
func (r *Runtime) resolve(callable any) (lua.LValue, error) {
	switch v := callable.(type) {
	case lua.LValue:
		return v, nil
	case string:
		lv := r.L.GetGlobal(v)
		if lv == lua.LNil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCallable, v)
		}
		return lv, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, callable)
	}
}

// toLua converts a Go value to a Lua value. Values that are already
// lua.LValue pass through; anything unrecognized is wrapped in userdata.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []byte:
		return lua.LString(x)
	default:
		ud := L.NewUserData()
		ud.Value = x
		return ud
	}
}

// StackScope implements async.Scope by saving the Lua stack top on entry
// and restoring it on exit, so a drain leaves the interrupted frame's
// stack exactly as it found it.
type StackScope struct {
	L *lua.LState
}

// Enter implements async.Scope.
func (s StackScope) Enter() func() {
	top := s.L.GetTop()
	return func() { s.L.SetTop(top) }
}
