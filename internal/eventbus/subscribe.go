package eventbus

import (
	"fmt"

	"github.com/google/uuid"
)

// SubscribeOption tunes one Subscribe call.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	subscriberID string
	filter       map[string]any
}

// WithSubscriberID names the subscriber. Subscriptions sharing an id
// are removed together by Unsubscribe; within one event type the id
// must be unique, so re-subscribing replaces the previous subscription.
func WithSubscriberID(id string) SubscribeOption {
	return func(o *subscribeOptions) { o.subscriberID = id }
}

// WithFilter delivers only events whose payload carries every filter
// key with an equal value.
func WithFilter(filter map[string]any) SubscribeOption {
	return func(o *subscribeOptions) { o.filter = filter }
}

// Subscribe registers handler for eventType (or Wildcard) and returns
// the subscriber id, auto-generated when not supplied.
func (b *Bus) Subscribe(eventType string, handler Handler, opts ...SubscribeOption) (string, error) {
	if !b.running.Load() {
		return "", &notRunningError{op: "subscribe"}
	}
	if eventType == "" {
		return "", fmt.Errorf("eventbus: empty event type")
	}
	if handler == nil {
		return "", fmt.Errorf("eventbus: nil handler")
	}
	var so subscribeOptions
	for _, opt := range opts {
		opt(&so)
	}
	id := so.subscriberID
	if id == "" {
		id = uuid.NewString()
	}
	var filter map[string]any
	if len(so.filter) > 0 {
		filter = make(map[string]any, len(so.filter))
		for k, v := range so.filter {
			filter[k] = v
		}
	}

	b.mu.Lock()
	byID, ok := b.subs[eventType]
	if !ok {
		byID = make(map[string]*subscription)
		b.subs[eventType] = byID
	}
	_, replaced := byID[id]
	byID[id] = &subscription{
		subscriberID: id,
		eventType:    eventType,
		handler:      handler,
		filter:       filter,
	}
	b.mu.Unlock()

	evt := b.log.Debug().Str("event_type", eventType).Str("subscriber_id", id)
	if replaced {
		evt.Msg("subscription replaced")
	} else {
		evt.Msg("subscribed")
	}
	return id, nil
}

// Unsubscribe removes the id's subscriptions for the given event types,
// or all of them when no type is named. Reports whether anything was
// removed.
func (b *Bus) Unsubscribe(subscriberID string, eventTypes ...string) bool {
	b.mu.Lock()
	removed := false
	if len(eventTypes) == 0 {
		for et, byID := range b.subs {
			if _, ok := byID[subscriberID]; ok {
				delete(byID, subscriberID)
				removed = true
				if len(byID) == 0 {
					delete(b.subs, et)
				}
			}
		}
	} else {
		for _, et := range eventTypes {
			byID, ok := b.subs[et]
			if !ok {
				continue
			}
			if _, ok := byID[subscriberID]; ok {
				delete(byID, subscriberID)
				removed = true
				if len(byID) == 0 {
					delete(b.subs, et)
				}
			}
		}
	}
	b.mu.Unlock()
	if removed {
		b.log.Debug().Str("subscriber_id", subscriberID).Msg("unsubscribed")
	}
	return removed
}
