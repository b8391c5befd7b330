package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHooksNotifyStampsTime(t *testing.T) {
	var got Event
	hooks := Hooks{HookFunc(func(_ context.Context, event Event) error {
		got = event
		return nil
	})}

	if err := hooks.Notify(context.Background(), Event{Kind: KindChanged, Key: "k"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected zero OccurredAt to be stamped")
	}

	explicit := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := hooks.Notify(context.Background(), Event{Kind: KindChanged, OccurredAt: explicit}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if !got.OccurredAt.Equal(explicit) {
		t.Fatalf("expected explicit OccurredAt to survive, got %v", got.OccurredAt)
	}
}

func TestHooksJoinErrors(t *testing.T) {
	first := errors.New("first failure")
	second := errors.New("second failure")
	delivered := 0

	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { delivered++; return first }),
		HookFunc(func(context.Context, Event) error { delivered++; return nil }),
		HookFunc(func(context.Context, Event) error { delivered++; return second }),
		nil,
	}

	err := hooks.Notify(context.Background(), Event{Kind: KindSaved})
	if delivered != 3 {
		t.Fatalf("expected failures not to stop delivery, delivered %d", delivered)
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both errors joined, got %v", err)
	}
}

func TestHooksEnabled(t *testing.T) {
	if (Hooks{}).Enabled() {
		t.Fatalf("expected empty hooks to be disabled")
	}
	if !(Hooks{HookFunc(nil)}).Enabled() {
		t.Fatalf("expected non-empty hooks to be enabled")
	}
}

func TestRegistrySubscribeAndEmit(t *testing.T) {
	r := NewRegistry()
	var seen []Kind
	sub := r.Subscribe(HookFunc(func(_ context.Context, event Event) error {
		seen = append(seen, event.Kind)
		return nil
	}))

	if r.Len() != 1 {
		t.Fatalf("unexpected registry size: %d", r.Len())
	}
	if err := r.Emit(context.Background(), Event{Kind: KindLoaded}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(seen) != 1 || seen[0] != KindLoaded {
		t.Fatalf("unexpected delivery: %v", seen)
	}

	r.Unsubscribe(sub)
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after unsubscribe")
	}
	if err := r.Emit(context.Background(), Event{Kind: KindSaved}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected no delivery after unsubscribe")
	}
}

func TestRegistryKeyedSubscription(t *testing.T) {
	r := NewRegistry()
	var seen []Event
	r.SubscribeKey("server.host", HookFunc(func(_ context.Context, event Event) error {
		seen = append(seen, event)
		return nil
	}))

	ctx := context.Background()
	r.Emit(ctx, Event{Kind: KindChanged, Key: "server.host"})
	r.Emit(ctx, Event{Kind: KindChanged, Key: "server.port"})
	r.Emit(ctx, Event{Kind: KindLoaded})

	if len(seen) != 2 {
		t.Fatalf("expected own change plus whole-set event, got %v", seen)
	}
	if seen[0].Key != "server.host" || seen[1].Kind != KindLoaded {
		t.Fatalf("unexpected delivery order: %v", seen)
	}
}

func TestRegistryUnknownUnsubscribeIgnored(t *testing.T) {
	r := NewRegistry()
	r.Unsubscribe(Subscription("not-registered"))
	if r.Len() != 0 {
		t.Fatalf("unexpected registry size")
	}
}
