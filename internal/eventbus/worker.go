package eventbus

// worker drains the shared queue, handling one envelope at a time: all
// of an event's callbacks run on the same worker before it takes the
// next event. On stop it finishes whatever is already queued.
func (b *Bus) worker(id int) {
	defer b.wg.Done()
	for {
		select {
		case env := <-b.queue:
			b.deliver(env.event, env.subs)
		case <-b.stop:
			for {
				select {
				case env := <-b.queue:
					b.deliver(env.event, env.subs)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes each subscription for one event, containing panics so
// one subscriber cannot break delivery to its siblings.
func (b *Bus) deliver(ev Event, subs []*subscription) {
	for _, sub := range subs {
		b.invoke(ev, sub)
	}
}

func (b *Bus) invoke(ev Event, sub *subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			b.log.Error().
				Str("event_id", ev.ID).
				Str("event_type", ev.Type).
				Str("subscriber_id", sub.subscriberID).
				Interface("panic", r).
				Msg("subscriber callback panicked")
		}
	}()
	sub.handler(ev)
	b.delivered.Add(1)
}
