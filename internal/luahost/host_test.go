package luahost

import (
	"context"
	"errors"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadispatch/internal/async"
)

func startHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	h := New(opts...)
	t.Cleanup(h.Close)
	go func() { _ = h.Run(context.Background()) }()
	return h
}

func TestHost_DoRunsOnOwnerLoop(t *testing.T) {
	h := startHost(t)
	ctx := context.Background()

	err := h.Do(ctx, func(L *lua.LState) error {
		return L.DoString(`answer = 42`)
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	var got lua.LValue
	if err := h.Do(ctx, func(L *lua.LState) error {
		got = L.GetGlobal("answer")
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != lua.LNumber(42) {
		t.Errorf("answer = %v, want 42", got)
	}
}

func TestHost_AsyncActionsRunOnOwnerLoop(t *testing.T) {
	h := startHost(t, WithTick(time.Millisecond))
	ctx := context.Background()

	if err := h.Do(ctx, func(L *lua.LState) error {
		return L.DoString(`
			ticks = 0
			function on_tick(n) ticks = ticks + n end
		`)
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	// Enqueue from a foreign goroutine; the owner loop must execute it.
	done := make(chan struct{})
	go func() {
		h.Handler().Enqueue(&async.CallAction{Callable: "on_tick", Args: []any{2}})
		h.Handler().Enqueue(&async.CallAction{Callable: "on_tick", Args: []any{3}})
		close(done)
	}()
	<-done

	deadline := time.Now().Add(5 * time.Second)
	for {
		var ticks lua.LValue
		if err := h.Do(ctx, func(L *lua.LState) error {
			ticks = L.GetGlobal("ticks")
			return nil
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if ticks == lua.LNumber(5) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ticks = %v, want 5", ticks)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHost_DoErrorPropagates(t *testing.T) {
	h := startHost(t)

	wantErr := errors.New("task failed")
	err := h.Do(context.Background(), func(*lua.LState) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("Do error = %v, want %v", err, wantErr)
	}
}

func TestHost_DoPanicRecovered(t *testing.T) {
	h := startHost(t)

	err := h.Do(context.Background(), func(*lua.LState) error { panic("lua blew up") })
	if err == nil || err.Error() != "lua blew up" {
		t.Errorf("Do error = %v, want recovered panic", err)
	}
}

func TestHost_DoAfterClose(t *testing.T) {
	h := New()
	h.Close()

	err := h.Do(context.Background(), func(*lua.LState) error { return nil })
	if !errors.Is(err, ErrHostClosed) {
		t.Errorf("Do after Close error = %v, want ErrHostClosed", err)
	}
}

func TestHost_RunReturnsOnContextCancel(t *testing.T) {
	h := New()
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestHost_RunAfterClose(t *testing.T) {
	h := New()
	h.Close()

	if err := h.Run(context.Background()); !errors.Is(err, ErrHostClosed) {
		t.Errorf("Run after Close error = %v, want ErrHostClosed", err)
	}
}
