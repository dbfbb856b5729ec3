package config

import (
	"io/fs"
	"testing"
	"time"
)

// memFS is an in-memory FileSystem for tests.
type memFS map[string][]byte

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithFS(memFS{}, "")
	if err != nil {
		t.Fatalf("LoadWithFS: %v", err)
	}

	d, err := cfg.Async.DelayDuration()
	if err != nil {
		t.Fatalf("DelayDuration: %v", err)
	}
	if d != DefaultDelay {
		t.Errorf("delay = %v, want %v", d, DefaultDelay)
	}
	if cfg.Async.Disabled {
		t.Error("Disabled = true by default, want false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadWithFS(memFS{}, "nope.toml")
	if err != nil {
		t.Fatalf("LoadWithFS with missing file: %v", err)
	}
	if cfg != Default() {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestLoad_FromTOML(t *testing.T) {
	fsys := memFS{
		"luadispatch.toml": []byte(`
[async]
delay = "2ms"
disabled = true

[log]
level = "debug"
`),
	}

	cfg, err := LoadWithFS(fsys, "luadispatch.toml")
	if err != nil {
		t.Fatalf("LoadWithFS: %v", err)
	}

	d, err := cfg.Async.DelayDuration()
	if err != nil {
		t.Fatalf("DelayDuration: %v", err)
	}
	if d != 2*time.Millisecond {
		t.Errorf("delay = %v, want 2ms", d)
	}
	if !cfg.Async.Disabled {
		t.Error("Disabled = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	fsys := memFS{"bad.toml": []byte(`[async`)}

	if _, err := LoadWithFS(fsys, "bad.toml"); err == nil {
		t.Error("LoadWithFS with malformed TOML returned nil error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	fsys := memFS{
		"luadispatch.toml": []byte(`
[async]
delay = "2ms"
`),
	}
	t.Setenv("LUADISPATCH_ASYNC_DELAY", "30ms")
	t.Setenv("LUADISPATCH_ASYNC_DISABLED", "true")
	t.Setenv("LUADISPATCH_LOG_LEVEL", "warn")

	cfg, err := LoadWithFS(fsys, "luadispatch.toml")
	if err != nil {
		t.Fatalf("LoadWithFS: %v", err)
	}

	d, err := cfg.Async.DelayDuration()
	if err != nil {
		t.Fatalf("DelayDuration: %v", err)
	}
	if d != 30*time.Millisecond {
		t.Errorf("delay = %v, want 30ms (env override)", d)
	}
	if !cfg.Async.Disabled {
		t.Error("Disabled = false, want true (env override)")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn (env override)", cfg.Log.Level)
	}
}

func TestLoad_InvalidDelayFailsEagerly(t *testing.T) {
	t.Setenv("LUADISPATCH_ASYNC_DELAY", "soon")

	if _, err := LoadWithFS(memFS{}, ""); err == nil {
		t.Error("LoadWithFS with unparseable delay returned nil error")
	}
}

func TestAsync_DelayDuration(t *testing.T) {
	tests := []struct {
		name    string
		delay   string
		want    time.Duration
		wantErr bool
	}{
		{"empty uses default", "", DefaultDelay, false},
		{"valid", "250us", 250 * time.Microsecond, false},
		{"zero rejected", "0s", 0, true},
		{"negative rejected", "-5ms", 0, true},
		{"garbage rejected", "fast", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Async{Delay: tt.delay}.DelayDuration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("DelayDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("DelayDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
