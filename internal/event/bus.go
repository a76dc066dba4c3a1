package event

import "github.com/google/uuid"

// Handler receives events from a Bus.
type Handler func(Event)

type subscription struct {
	id      uuid.UUID
	kinds   map[Kind]struct{} // empty = all kinds
	fn      Handler
	removed bool
}

// Bus is a synchronous publish/subscribe list. Delivery happens on the
// publishing goroutine, in subscription order. A Bus is not safe for
// concurrent use; the owning scene is driven from a single goroutine.
type Bus struct {
	subs []*subscription
}

// Subscribe registers fn for the given kinds (all kinds when none are given)
// and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) uuid.UUID {
	s := &subscription{id: uuid.New(), fn: fn}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, s)
	return s.id
}

// Unsubscribe removes a subscription. It is safe to call from inside a
// handler; the removed handler is not called again, even for the event
// currently being published.
func (b *Bus) Unsubscribe(id uuid.UUID) bool {
	for i, s := range b.subs {
		if s.id == id {
			s.removed = true
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev Event) {
	if len(b.subs) == 0 {
		return
	}
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	for _, s := range snapshot {
		if s.removed {
			continue
		}
		if s.kinds != nil {
			if _, ok := s.kinds[ev.Kind]; !ok {
				continue
			}
		}
		s.fn(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int { return len(b.subs) }
