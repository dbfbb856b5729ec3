// Package main is a demonstration driver for the luadispatch engine: it
// runs a Lua script on a host whose owner loop dispatches asynchronous
// actions, with an OS signal producer and finalizer-tracked arena
// allocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadispatch/internal/async"
	"github.com/dshills/luadispatch/internal/config"
	"github.com/dshills/luadispatch/internal/finalize"
	"github.com/dshills/luadispatch/internal/luahost"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

// defaultScript exercises the demo surface when no -script is given.
const defaultScript = `
function on_signal(name)
	print("signal received: " .. name)
end

for i = 1, 5 do
	local b = allocate(1024)
	print("allocated block " .. tostring(i))
end
collectgarbage()
print("done; blocks in use: " .. tostring(blocks_in_use()))
`

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("luadispatch %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	async.SetLogger(logger)

	delay, err := cfg.Async.DelayDuration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	host := luahost.New(
		luahost.WithLogger(logger),
		luahost.WithAsyncOptions(
			async.WithDelay(delay),
			async.WithDisabled(cfg.Async.Disabled),
		),
	)
	defer host.Close()

	fin := finalize.New(host.Handler(), finalize.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The signal producer enqueues an action; the handler call and the
	// shutdown both happen on the logical thread.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	err = host.Handler().Register(func(context.Context) async.Action {
		select {
		case sig := <-sigCh:
			return async.ActionFunc(func(rt async.Runtime) {
				if err := rt.Invoke("on_signal", sig.String()); err != nil {
					logger.Error().Err(err).Msg("signal handler failed")
				}
				cancel()
			})
		default:
			return nil
		}
	})
	if err != nil {
		logger.Error().Err(err).Msg("registering signal producer")
		return 1
	}

	// Run the script off the owner goroutine; the owner loop below
	// executes it and interleaves asynchronous actions.
	go func() {
		defer cancel()
		err := host.Do(ctx, func(L *lua.LState) error {
			installArena(L, fin, logger)
			if opts.scriptPath != "" {
				return L.DoFile(opts.scriptPath)
			}
			return L.DoString(defaultScript)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("script failed")
		}
	}()

	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("unknown log level %q", level)
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

type options struct {
	configPath  string
	scriptPath  string
	showVersion bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.scriptPath, "script", "", "Lua script to run (default: built-in demo)")
	flag.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	flag.Parse()
	return opts
}
