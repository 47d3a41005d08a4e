package ctl

import (
	"bytes"
	"strings"
	"testing"

	"nucleusd/pkg/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := BuildRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version.String() {
		t.Fatalf("version output = %q", out)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := fakeOps(t, true)
	out, err := execute(t, "status", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "host running") || !strings.Contains(out, "event_bus") {
		t.Fatalf("status output = %q", out)
	}
}

func TestPluginsCommand(t *testing.T) {
	srv := fakeOps(t, true)
	out, err := execute(t, "plugins", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	if !strings.Contains(out, "pulse") || !strings.Contains(out, "active") {
		t.Fatalf("plugins output = %q", out)
	}

	out, err = execute(t, "plugins", "pulse", "--addr", srv.URL, "--json")
	if err != nil {
		t.Fatalf("plugins pulse: %v", err)
	}
	if !strings.Contains(out, `"name": "pulse"`) {
		t.Fatalf("plugin json output = %q", out)
	}
}

func TestHealthCommandFailsWhenNotReady(t *testing.T) {
	srv := fakeOps(t, false)
	if _, err := execute(t, "health", "--addr", srv.URL); err == nil {
		t.Fatal("expected error for not-ready host")
	}
	srv2 := fakeOps(t, true)
	out, err := execute(t, "health", "--addr", srv2.URL)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "ready") {
		t.Fatalf("health output = %q", out)
	}
}

func TestTasksCommand(t *testing.T) {
	srv := fakeOps(t, true)
	out, err := execute(t, "tasks", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if !strings.Contains(out, "t1") || !strings.Contains(out, "completed") {
		t.Fatalf("tasks output = %q", out)
	}
}
