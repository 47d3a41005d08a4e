package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nucleusd/internal/config"
	"nucleusd/pkg/types"
)

// ManagerName is the key the orchestrator registers this manager under.
const ManagerName = "event_bus"

// Defaults applied when corresponding Config fields are unset.
const (
	defaultWorkers        = 4
	defaultQueueSize      = 1000
	defaultPublishTimeout = 5 * time.Second
	defaultJoinTimeout    = 5 * time.Second
)

// Config encapsulates all tunables for Bus construction.
type Config struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
	JoinTimeout    time.Duration
	Logger         zerolog.Logger
}

// Bus is the event bus manager. The subscription table is the only
// shared state and is guarded by one coarse mutex.
type Bus struct {
	log zerolog.Logger

	workers     int
	queueSize   int
	joinTimeout time.Duration
	// nanoseconds; atomic so config changes hot-apply mid-flight
	publishTimeout atomic.Int64

	mu   sync.RWMutex
	subs map[string]map[string]*subscription // event type -> subscriber id

	queue chan envelope
	stop  chan struct{}
	wg    sync.WaitGroup

	running atomic.Bool

	published atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
	rejected  atomic.Uint64
}

type envelope struct {
	event Event
	subs  []*subscription
}

// New constructs a Bus from Config, applying package defaults for unset
// fields. Initialize starts the workers.
func New(cfg Config) *Bus {
	b := &Bus{
		log:  cfg.Logger,
		subs: make(map[string]map[string]*subscription),
	}
	if cfg.Workers <= 0 {
		b.workers = defaultWorkers
	} else {
		b.workers = cfg.Workers
	}
	if cfg.QueueSize <= 0 {
		b.queueSize = defaultQueueSize
	} else {
		b.queueSize = cfg.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		b.publishTimeout.Store(int64(defaultPublishTimeout))
	} else {
		b.publishTimeout.Store(int64(cfg.PublishTimeout))
	}
	if cfg.JoinTimeout <= 0 {
		b.joinTimeout = defaultJoinTimeout
	} else {
		b.joinTimeout = cfg.JoinTimeout
	}
	return b
}

// FromManager builds the bus from the configuration manager and wires
// event_bus.* change handling: publish_timeout hot-applies, sizing keys
// log that a restart is required.
func FromManager(cfg *config.Manager, log zerolog.Logger) *Bus {
	s := cfg.Settings()
	b := New(Config{
		Workers:        s.EventBus.ThreadPoolSize,
		QueueSize:      s.EventBus.MaxQueueSize,
		PublishTimeout: s.EventBus.PublishTimeout,
		Logger:         log,
	})
	cfg.RegisterListener("event_bus.", func(key string, _, _ any) {
		if key == "event_bus.publish_timeout" {
			d := cfg.Duration(key, b.PublishTimeout())
			b.SetPublishTimeout(d)
			log.Info().Dur("publish_timeout", d).Msg("publish timeout updated")
			return
		}
		log.Warn().Str("key", key).Msg("event bus change requires restart")
	})
	return b
}

// Name implements the manager contract.
func (b *Bus) Name() string { return ManagerName }

// Initialize allocates the queue and starts the worker pool.
func (b *Bus) Initialize(ctx context.Context) error {
	if b.running.Load() {
		return nil
	}
	b.queue = make(chan envelope, b.queueSize)
	b.stop = make(chan struct{})
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	b.running.Store(true)
	b.log.Debug().Int("workers", b.workers).Int("queue_size", b.queueSize).Msg("event bus started")
	return nil
}

// Shutdown stops intake, lets workers drain what is already queued, and
// joins them bounded by the join timeout and ctx. A failed join is
// logged, never fatal. All subscriptions are dropped.
func (b *Bus) Shutdown(ctx context.Context) error {
	if !b.running.Swap(false) {
		return nil
	}
	close(b.stop)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(b.joinTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		b.log.Warn().Int("queued", len(b.queue)).Msg("event bus shutdown cancelled before workers drained")
	case <-timer.C:
		b.log.Warn().Int("queued", len(b.queue)).Msg("event bus workers did not drain in time")
	}
	b.mu.Lock()
	b.subs = make(map[string]map[string]*subscription)
	b.mu.Unlock()
	b.log.Debug().Msg("event bus stopped")
	return nil
}

// PublishTimeout returns the current backpressure wait.
func (b *Bus) PublishTimeout() time.Duration {
	return time.Duration(b.publishTimeout.Load())
}

// SetPublishTimeout hot-applies a new backpressure wait; non-positive
// values are ignored.
func (b *Bus) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		b.publishTimeout.Store(int64(d))
	}
}

// Snapshot is a point-in-time projection of bus internals.
type Snapshot struct {
	Running          bool
	Workers          int
	QueueLen         int
	QueueCap         int
	EventTypes       int
	Subscriptions    int
	Published        uint64
	Delivered        uint64
	CallbackFailures uint64
	Rejected         uint64
}

// Snapshot reports current queue depth, subscription counts, and
// delivery counters.
func (b *Bus) Snapshot() Snapshot {
	b.mu.RLock()
	eventTypes := len(b.subs)
	total := 0
	for _, byID := range b.subs {
		total += len(byID)
	}
	b.mu.RUnlock()
	s := Snapshot{
		Running:          b.running.Load(),
		Workers:          b.workers,
		QueueCap:         b.queueSize,
		EventTypes:       eventTypes,
		Subscriptions:    total,
		Published:        b.published.Load(),
		Delivered:        b.delivered.Load(),
		CallbackFailures: b.failures.Load(),
		Rejected:         b.rejected.Load(),
	}
	if b.queue != nil {
		s.QueueLen = len(b.queue)
	}
	return s
}

// Status implements the manager contract.
func (b *Bus) Status() types.ManagerStatus {
	s := b.Snapshot()
	return types.ManagerStatus{
		Name:        ManagerName,
		Initialized: s.Running,
		Healthy:     s.Running,
		Details: map[string]any{
			"workers":           s.Workers,
			"queue_depth":       s.QueueLen,
			"queue_size":        s.QueueCap,
			"event_types":       s.EventTypes,
			"subscriptions":     s.Subscriptions,
			"published":         s.Published,
			"delivered":         s.Delivered,
			"callback_failures": s.CallbackFailures,
			"rejected":          s.Rejected,
			"publish_timeout":   b.PublishTimeout().String(),
		},
	}
}
