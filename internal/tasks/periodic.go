package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// periodicEntry is one recurring registration. lastRun and runs are
// only mutated by the scheduler loop, under pmu.
type periodicEntry struct {
	id       string
	name     string
	interval time.Duration
	fn       Func
	lastRun  time.Time
	runs     uint64
}

// PeriodicOption customizes a periodic registration.
type PeriodicOption func(*periodicEntry)

// WithPeriodicID pins the registration id instead of generating one.
func WithPeriodicID(id string) PeriodicOption {
	return func(e *periodicEntry) { e.id = id }
}

// WithPeriodicName names the tasks the registration submits.
func WithPeriodicName(name string) PeriodicOption {
	return func(e *periodicEntry) { e.name = name }
}

// SchedulePeriodic registers fn to be resubmitted every interval. The
// first submission happens one full interval after registration.
func (m *Manager) SchedulePeriodic(interval time.Duration, fn Func, opts ...PeriodicOption) (string, error) {
	if !m.running.Load() {
		return "", &notRunningError{op: "schedule_periodic"}
	}
	if fn == nil {
		return "", errors.New("schedule_periodic: nil function")
	}
	if interval <= 0 {
		return "", fmt.Errorf("schedule_periodic: interval must be positive, got %v", interval)
	}
	e := &periodicEntry{
		id:       uuid.NewString(),
		interval: interval,
		fn:       fn,
		lastRun:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.name == "" {
		short := e.id
		if len(short) > 8 {
			short = short[:8]
		}
		e.name = "periodic-" + short
	}
	m.pmu.Lock()
	if _, exists := m.periodic[e.id]; exists {
		m.pmu.Unlock()
		return "", fmt.Errorf("schedule_periodic: id %q already registered", e.id)
	}
	m.periodic[e.id] = e
	m.pmu.Unlock()
	m.log.Debug().Str("periodic_id", e.id).Str("name", e.name).Dur("interval", interval).Msg("periodic task registered")
	return e.id, nil
}

// CancelPeriodic drops the registration. Submissions already made keep
// running; it reports whether the id was registered.
func (m *Manager) CancelPeriodic(id string) bool {
	m.pmu.Lock()
	_, ok := m.periodic[id]
	delete(m.periodic, id)
	m.pmu.Unlock()
	if ok {
		m.log.Debug().Str("periodic_id", id).Msg("periodic task cancelled")
	}
	return ok
}

// schedule is the single loop that resubmits due registrations on a
// fine tick.
func (m *Manager) schedule() {
	defer close(m.schedDone)
	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()
	for {
		select {
		case <-m.schedStop:
			return
		case now := <-ticker.C:
			m.fireDue(now.UTC())
		}
	}
}

type firing struct {
	id   string
	name string
	fn   Func
}

func (m *Manager) fireDue(now time.Time) {
	var due []firing
	m.pmu.Lock()
	for _, e := range m.periodic {
		if now.Sub(e.lastRun) >= e.interval {
			e.lastRun = now
			e.runs++
			due = append(due, firing{
				id:   e.id,
				name: fmt.Sprintf("%s/run-%d", e.name, e.runs),
				fn:   e.fn,
			})
		}
	}
	m.pmu.Unlock()
	for _, f := range due {
		if _, err := m.Submit(f.fn, WithName(f.name), WithSubmitter("scheduler")); err != nil {
			m.log.Warn().Err(err).Str("periodic_id", f.id).Msg("periodic submission rejected")
		}
	}
}
