package eventbus

import "reflect"

// Handler consumes one event. Handlers run on the publisher's goroutine
// for synchronous publishes and on a pool worker otherwise; they must
// not block for long.
type Handler func(Event)

type subscription struct {
	subscriberID string
	eventType    string
	handler      Handler
	filter       map[string]any
}

// matches re-checks the optional filter against the event payload. A
// filter key that is absent from the payload, or whose value differs,
// excludes the event. Equality is reflect.DeepEqual so slice and map
// payload values compare by content.
func (s *subscription) matches(ev Event) bool {
	for k, want := range s.filter {
		got, ok := ev.Payload[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
