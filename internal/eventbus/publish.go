package eventbus

import (
	"context"
	"fmt"
	"time"
)

// PublishOption tunes one Publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	correlationID string
	sync          bool
}

// WithCorrelationID links this event to the request or event that
// caused it.
func WithCorrelationID(id string) PublishOption {
	return func(o *publishOptions) { o.correlationID = id }
}

// Sync delivers to every matching subscriber on the calling goroutine
// before Publish returns.
func Sync() PublishOption {
	return func(o *publishOptions) { o.sync = true }
}

// Publish constructs an Event and routes it to matching subscriptions.
// Asynchronous publishes block up to the configured publish timeout
// when the queue is full, then fail with a queue-full error; ctx
// cancellation also aborts the wait. Returns the event id.
func (b *Bus) Publish(ctx context.Context, eventType, source string, payload map[string]any, opts ...PublishOption) (string, error) {
	if !b.running.Load() {
		return "", &notRunningError{op: "publish"}
	}
	if eventType == "" {
		return "", fmt.Errorf("eventbus: empty event type")
	}
	var po publishOptions
	for _, opt := range opts {
		opt(&po)
	}
	ev := newEvent(eventType, source, payload, po.correlationID)
	subs := b.match(ev)
	b.published.Add(1)

	if po.sync {
		b.deliver(ev, subs)
		return ev.ID, nil
	}
	if len(subs) == 0 {
		b.log.Debug().Str("event_type", ev.Type).Str("event_id", ev.ID).Msg("no matching subscriptions")
		return ev.ID, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	wait := b.PublishTimeout()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case b.queue <- envelope{event: ev, subs: subs}:
		return ev.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.stop:
		return "", &notRunningError{op: "publish"}
	case <-timer.C:
		b.rejected.Add(1)
		return "", &queueFullError{size: b.queueSize, wait: wait}
	}
}

// match resolves the subscriptions for an event: exact type matches
// plus wildcard subscriptions, each re-checked against its filter.
func (b *Bus) match(ev Event) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*subscription
	for _, sub := range b.subs[ev.Type] {
		if sub.matches(ev) {
			out = append(out, sub)
		}
	}
	if ev.Type == Wildcard {
		return out
	}
	for _, sub := range b.subs[Wildcard] {
		if sub.matches(ev) {
			out = append(out, sub)
		}
	}
	return out
}
