package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nucleusd/internal/config"
	"nucleusd/internal/eventbus"
	"nucleusd/internal/logging"
	"nucleusd/internal/monitor"
	"nucleusd/internal/plugin"
	"nucleusd/internal/tasks"
	"nucleusd/pkg/types"
)

// writeConfig drops a minimal YAML config pointing the plugin
// directory into the test's temp space.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf("plugins:\n  directory: %s\n  autoload: false\n%s",
		filepath.Join(dir, "plugins"), extra)
	path := filepath.Join(dir, "nucleus.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func newRunningApp(t *testing.T, extra string) *App {
	t.Helper()
	a := New(Options{
		ConfigFile: writeConfig(t, extra),
		LogOutput:  &bytes.Buffer{},
	})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestInitializeWiresAllManagers(t *testing.T) {
	a := newRunningApp(t, "monitoring:\n  enabled: false\n")
	if !a.Ready() {
		t.Fatal("app not ready after initialize")
	}
	for _, name := range []string{
		config.ManagerName,
		logging.ManagerName,
		eventbus.ManagerName,
		tasks.ManagerName,
		plugin.ManagerName,
		monitor.ManagerName,
	} {
		if _, ok := a.Manager(name); !ok {
			t.Fatalf("manager %q not registered", name)
		}
	}
	if _, ok := a.Manager("nope"); ok {
		t.Fatal("unknown manager reported as present")
	}
}

func TestInitializeIdempotent(t *testing.T) {
	a := newRunningApp(t, "")
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestStatusReport(t *testing.T) {
	a := newRunningApp(t, "")
	r := a.Status()
	if !r.Running {
		t.Fatal("report not running")
	}
	if r.Version == "" {
		t.Fatal("report missing version")
	}
	if len(r.Managers) != len(a.order) {
		t.Fatalf("got %d manager snapshots, want %d", len(r.Managers), len(a.order))
	}
	for _, m := range r.Managers {
		if !m.Healthy {
			t.Fatalf("manager %q unhealthy: %s", m.Name, m.Error)
		}
	}
	if r.Managers[0].Name != config.ManagerName {
		t.Fatalf("first snapshot is %q, want %q", r.Managers[0].Name, config.ManagerName)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	a := newRunningApp(t, "")
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if a.Ready() {
		t.Fatal("still ready after shutdown")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if got := a.Status(); got.Running {
		t.Fatal("report running after shutdown")
	}
}

func TestInitializeFailureRollsBack(t *testing.T) {
	// plugins.directory pointing at a regular file makes the plugin
	// manager's initialization fail after four managers have started.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg := filepath.Join(dir, "nucleus.yaml")
	body := fmt.Sprintf("plugins:\n  directory: %s\n", blocker)
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a := New(Options{ConfigFile: cfg, LogOutput: &bytes.Buffer{}})
	err := a.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected initialization failure")
	}
	if !IsInitFailed(err) {
		t.Fatalf("error is not an init failure: %v", err)
	}
	if got := FailedManager(err); got != plugin.ManagerName {
		t.Fatalf("failed manager = %q, want %q", got, plugin.ManagerName)
	}
	if a.Ready() {
		t.Fatal("app ready after failed initialize")
	}
	if len(a.order) != 0 {
		t.Fatalf("%d managers still registered after rollback", len(a.order))
	}
	if a.bus.Snapshot().Running {
		t.Fatal("event bus still running after rollback")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a := newRunningApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	if a.Ready() {
		t.Fatal("still ready after run returned")
	}
}

type panickyManager struct{ name string }

func (p *panickyManager) Name() string                     { return p.name }
func (p *panickyManager) Initialize(context.Context) error { return nil }
func (p *panickyManager) Shutdown(context.Context) error   { panic("shutdown boom") }
func (p *panickyManager) Status() types.ManagerStatus      { panic("status boom") }

func TestStatusPanicIsCaptured(t *testing.T) {
	st := safeStatus(&panickyManager{name: "flaky"})
	if st.Healthy {
		t.Fatal("panicking status reported healthy")
	}
	if st.Name != "flaky" || st.Error == "" {
		t.Fatalf("panic not captured: %+v", st)
	}
}

func TestTeardownSurvivesPanickingShutdown(t *testing.T) {
	a := New(Options{LogOutput: &bytes.Buffer{}})
	m := &panickyManager{name: "flaky"}
	a.order = append(a.order, m)
	a.byName[m.Name()] = m
	a.teardown(context.Background())
	if len(a.order) != 0 {
		t.Fatal("teardown left managers registered")
	}
}
