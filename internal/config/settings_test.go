package config

import (
	"testing"
	"time"
)

func TestSettingsFromDefaults(t *testing.T) {
	s := settingsFromTree(defaultTree())
	if s.Logging.Level != "info" || s.Logging.Format != "auto" {
		t.Fatalf("unexpected logging settings: %+v", s.Logging)
	}
	if s.EventBus.ThreadPoolSize != 4 || s.EventBus.MaxQueueSize != 1000 {
		t.Fatalf("unexpected event bus settings: %+v", s.EventBus)
	}
	if s.EventBus.PublishTimeout != 5*time.Second {
		t.Fatalf("publish timeout = %v", s.EventBus.PublishTimeout)
	}
	if s.ThreadPool.JoinTimeout != 5*time.Second {
		t.Fatalf("join timeout = %v", s.ThreadPool.JoinTimeout)
	}
	if !s.Monitoring.Enabled || s.Monitoring.Interval != 30*time.Second {
		t.Fatalf("unexpected monitoring settings: %+v", s.Monitoring)
	}
	if s.HTTP.Addr != "127.0.0.1:8420" {
		t.Fatalf("http addr = %q", s.HTTP.Addr)
	}
}

func TestValidateTreeRejects(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"bad level", "logging.level", "loud"},
		{"bad format", "logging.format", "xml"},
		{"zero bus workers", "event_bus.thread_pool_size", 0},
		{"zero task queue", "thread_pool.max_queue_size", 0},
		{"bad addr", "http.addr", "not a hostport"},
	}
	for _, tc := range cases {
		tree := defaultTree()
		setTree(tree, tc.key, tc.value)
		if err := validateTree(tree); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
	if err := validateTree(defaultTree()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestDurationCoercion(t *testing.T) {
	tree := defaultTree()
	setTree(tree, "event_bus.publish_timeout", 2)
	if got := settingsFromTree(tree).EventBus.PublishTimeout; got != 2*time.Second {
		t.Fatalf("numeric seconds: %v", got)
	}
	setTree(tree, "event_bus.publish_timeout", "250ms")
	if got := settingsFromTree(tree).EventBus.PublishTimeout; got != 250*time.Millisecond {
		t.Fatalf("duration string: %v", got)
	}
	setTree(tree, "event_bus.publish_timeout", 1.5)
	if got := settingsFromTree(tree).EventBus.PublishTimeout; got != 1500*time.Millisecond {
		t.Fatalf("float seconds: %v", got)
	}
}
