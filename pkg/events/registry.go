package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Subscription identifies one registered hook so it can be removed.
type Subscription string

type subscriber struct {
	hook Hook

	// keyed restricts delivery to events about one key. Whole-set events
	// (empty Event.Key) are always delivered so a keyed subscriber still
	// hears loads, saves, and full resets that affect its key.
	keyed bool
	key   string
}

// Registry tracks subscribers and fans events out to the interested
// ones. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[Subscription]subscriber
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Subscription]subscriber)}
}

// Subscribe registers hook for every event.
func (r *Registry) Subscribe(hook Hook) Subscription {
	return r.add(subscriber{hook: hook})
}

// SubscribeKey registers hook for events about key, plus whole-set
// events.
func (r *Registry) SubscribeKey(key string, hook Hook) Subscription {
	return r.add(subscriber{hook: hook, keyed: true, key: key})
}

func (r *Registry) add(sub subscriber) Subscription {
	id := Subscription(uuid.NewString())
	r.mu.Lock()
	r.subs[id] = sub
	r.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id Subscription) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Len reports the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Emit delivers event to every matching subscriber and returns the
// joined errors of the hooks that failed.
func (r *Registry) Emit(ctx context.Context, event Event) error {
	r.mu.RLock()
	matched := make(Hooks, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.keyed && event.Key != "" && sub.key != event.Key {
			continue
		}
		matched = append(matched, sub.hook)
	}
	r.mu.RUnlock()

	return matched.Notify(ctx, event)
}
