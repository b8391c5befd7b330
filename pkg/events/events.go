// Package events carries property lifecycle notifications from a manager
// to registered observers. The store itself stays free of notification
// concerns; the manager translates changed-signals into events here.
package events

import (
	"context"
	"errors"
	"time"
)

// Kind identifies what happened to the property set.
type Kind string

const (
	// KindLoaded fires after the backing file replaced the working set.
	KindLoaded Kind = "loaded"
	// KindSaved fires after the working set was written out.
	KindSaved Kind = "saved"
	// KindChanged fires after a single key took a new value.
	KindChanged Kind = "changed"
	// KindReset fires after a key, or the whole set, returned to defaults.
	KindReset Kind = "reset"
)

// Event is the single notification type. Key is empty for events that
// concern the whole property set.
type Event struct {
	Kind       Kind
	Key        string
	OccurredAt time.Time
}

// Hook receives property events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks, returning a joined error
// if any fail. Failures do not stop delivery to the remaining hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks. A zero OccurredAt is stamped
// with the current time.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
