package config

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newInitialized(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m := New(opts...)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestDefaultsWithoutFile(t *testing.T) {
	m := newInitialized(t)
	if got := m.Int("event_bus.thread_pool_size", 0); got != 4 {
		t.Fatalf("thread_pool_size = %d", got)
	}
	if got := m.Duration("event_bus.publish_timeout", 0); got != 5*time.Second {
		t.Fatalf("publish_timeout = %v", got)
	}
	if got := m.Bool("plugins.autoload", false); !got {
		t.Fatalf("autoload = %v", got)
	}
	if _, ok := m.Get("no.such.key"); ok {
		t.Fatalf("expected miss for unknown key")
	}
	if got := m.GetOr("no.such.key", "fallback"); got != "fallback" {
		t.Fatalf("GetOr = %v", got)
	}
}

func TestFileLayering(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "nucleus.yaml", "logging:\n  level: warn\nthread_pool:\n  worker_threads: 2\n")
	m := newInitialized(t, WithFile(p))
	if got := m.String("logging.level", ""); got != "warn" {
		t.Fatalf("logging.level = %q", got)
	}
	if got := m.Int("thread_pool.worker_threads", 0); got != 2 {
		t.Fatalf("worker_threads = %d", got)
	}
	// defaults shine through for keys the file does not name
	if got := m.Int("thread_pool.max_queue_size", 0); got != 256 {
		t.Fatalf("max_queue_size = %d", got)
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	m := newInitialized(t, WithFile("/nonexistent/nucleus.yaml"))
	if got := m.Int("event_bus.max_queue_size", 0); got != 1000 {
		t.Fatalf("max_queue_size = %d", got)
	}
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("NUCTEST_EVENT_BUS__MAX_QUEUE_SIZE", "77")
	t.Setenv("NUCTEST_LOGGING__LEVEL", "debug")
	t.Setenv("NUCTEST_PLUGINS__AUTOLOAD", "false")
	m := newInitialized(t, WithEnvPrefix("NUCTEST_"))
	if got := m.Int("event_bus.max_queue_size", 0); got != 77 {
		t.Fatalf("max_queue_size = %d", got)
	}
	if got := m.String("logging.level", ""); got != "debug" {
		t.Fatalf("logging.level = %q", got)
	}
	if got := m.Bool("plugins.autoload", true); got {
		t.Fatalf("autoload should be false")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "nucleus.yaml", "event_bus:\n  thread_pool_size: 8\n")
	t.Setenv("NUCTEST_EVENT_BUS__THREAD_POOL_SIZE", "16")
	m := newInitialized(t, WithFile(p), WithEnvPrefix("NUCTEST_"))
	if got := m.Int("event_bus.thread_pool_size", 0); got != 16 {
		t.Fatalf("thread_pool_size = %d", got)
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("NUCTEST_EVENT_BUS__THREAD_POOL_SIZE", "0")
	m := New(WithEnvPrefix("NUCTEST_"))
	if err := m.Initialize(context.Background()); err == nil {
		t.Fatalf("expected validation error for zero pool size")
	}
}

func TestSetCreatesPathAndNotifies(t *testing.T) {
	m := newInitialized(t)
	var mu sync.Mutex
	var gotKey string
	var gotOld, gotNew any
	m.RegisterListener("plugins.", func(key string, old, new any) {
		mu.Lock()
		defer mu.Unlock()
		gotKey, gotOld, gotNew = key, old, new
	})
	// listener with non-matching prefix must stay silent
	m.RegisterListener("logging.", func(key string, old, new any) {
		t.Errorf("unexpected listener call for %s", key)
	})
	if err := m.Set("plugins.enabled", []string{"pulse"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotKey != "plugins.enabled" {
		t.Fatalf("listener key = %q", gotKey)
	}
	if gotNew == nil {
		t.Fatalf("listener new value missing (old=%v)", gotOld)
	}
	if got := m.Strings("plugins.enabled"); len(got) != 1 || got[0] != "pulse" {
		t.Fatalf("Strings = %v", got)
	}
	if err := m.Set("", 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestListenerPanicContained(t *testing.T) {
	m := newInitialized(t)
	m.RegisterListener("", func(key string, old, new any) { panic("boom") })
	called := false
	m.RegisterListener("", func(key string, old, new any) { called = true })
	if err := m.Set("logging.level", "debug"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !called {
		t.Fatalf("second listener not reached after panic in first")
	}
}

func TestLoggerRoutesWarnings(t *testing.T) {
	var boot bytes.Buffer
	m := newInitialized(t,
		WithFile("/nonexistent/nucleus.yaml"),
		WithLogger(zerolog.New(&boot)))
	if !strings.Contains(boot.String(), "config file not found") {
		t.Fatalf("missing-file warning not logged: %q", boot.String())
	}

	var swapped bytes.Buffer
	m.SetLogger(zerolog.New(&swapped))
	m.RegisterListener("", func(key string, old, new any) { panic("boom") })
	if err := m.Set("logging.level", "debug"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !strings.Contains(swapped.String(), "config listener panicked") {
		t.Fatalf("panic report missed swapped logger: %q", swapped.String())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "nucleus.yaml", "logging:\n  level: info\n")
	m := newInitialized(t, WithFile(p))
	if err := m.Set("plugins.disabled", []string{"audit"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	reread, err := decodeFile(p)
	if err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if got := coerceStrings(mustLookup(t, reread, "plugins.disabled")); len(got) != 1 || got[0] != "audit" {
		t.Fatalf("persisted disabled = %v", got)
	}
}

func TestSaveWithoutFile(t *testing.T) {
	m := newInitialized(t)
	err := m.Save()
	if err == nil || !IsNoFile(err) {
		t.Fatalf("expected no-file error, got %v", err)
	}
}

func TestWatchReload(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "nucleus.yaml", "logging:\n  level: info\n")
	m := newInitialized(t, WithFile(p), WithWatch())

	levelCh := make(chan any, 1)
	m.RegisterListener("logging.level", func(key string, old, new any) {
		select {
		case levelCh <- new:
		default:
		}
	})
	if err := os.WriteFile(p, []byte("logging:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case v := <-levelCh:
		if v != "error" {
			t.Fatalf("reloaded level = %v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload notification")
	}
	if got := m.String("logging.level", ""); got != "error" {
		t.Fatalf("level after reload = %q", got)
	}
}

func TestReloadKeepsTreeOnInvalidFile(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "nucleus.yaml", "event_bus:\n  thread_pool_size: 6\n")
	m := newInitialized(t, WithFile(p))
	// corrupt the file, then drive the reload path directly
	if err := os.WriteFile(p, []byte("event_bus:\n  thread_pool_size: 0\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	m.reloadFile()
	if got := m.Int("event_bus.thread_pool_size", 0); got != 6 {
		t.Fatalf("tree changed despite invalid reload: %d", got)
	}
}

func TestStatus(t *testing.T) {
	m := newInitialized(t)
	m.RegisterListener("x", func(string, any, any) {})
	st := m.Status()
	if st.Name != ManagerName || !st.Initialized || !st.Healthy {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Details["listeners"] != 1 {
		t.Fatalf("listeners detail = %v", st.Details["listeners"])
	}
	keys, ok := st.Details["keys"].(int)
	if !ok || keys == 0 {
		t.Fatalf("keys detail = %v", st.Details["keys"])
	}
}
