package props

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/propkit/go-props/codec"
	"github.com/propkit/go-props/pkg/events"
)

type appKey string

const (
	appHost    appKey = "SERVER_HOST"
	appPort    appKey = "SERVER_PORT"
	appDebug   appKey = "DEBUG_ENABLED"
	appTimeout appKey = "REQUEST_TIMEOUT"
	appURL     appKey = "SERVER_URL"
)

var appDefaults = map[appKey]string{
	appHost:    "localhost",
	appPort:    "8080",
	appDebug:   "false",
	appTimeout: "30s",
	appURL:     "http://${server.host}:${server.port}/",
}

func appTranslator() Translator[appKey] {
	return DotCase(appHost, appPort, appDebug, appTimeout, appURL)
}

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager[appKey] {
	t.Helper()
	opts = append([]ManagerOption{WithStorage(codec.NewMemoryStorage())}, opts...)
	m := New("unused.properties", appDefaults, appTranslator(), opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerDefaults(t *testing.T) {
	m := newTestManager(t)

	value, ok, err := m.Get(appHost)
	if err != nil || !ok || value != "localhost" {
		t.Fatalf("unexpected default: %q ok=%v err=%v", value, ok, err)
	}
	if _, ok, _ := m.Get(appKey("NOT_TRACKED")); ok {
		t.Fatalf("expected unknown key to read as absent")
	}
	if m.IsModified() {
		t.Fatalf("expected fresh manager to be unmodified")
	}
}

func TestManagerTypedAccessors(t *testing.T) {
	m := newTestManager(t)

	if port, err := m.Int(appPort); err != nil || port != 8080 {
		t.Fatalf("unexpected int: %d err=%v", port, err)
	}
	if port, err := m.Int64(appPort); err != nil || port != 8080 {
		t.Fatalf("unexpected int64: %d err=%v", port, err)
	}
	if f, err := m.Float(appPort); err != nil || f != 8080 {
		t.Fatalf("unexpected float: %v err=%v", f, err)
	}
	if debug, err := m.Bool(appDebug); err != nil || debug {
		t.Fatalf("unexpected bool: %v err=%v", debug, err)
	}
	if d, err := m.Duration(appTimeout); err != nil || d != 30*time.Second {
		t.Fatalf("unexpected duration: %v err=%v", d, err)
	}
}

func TestManagerAccessorFallsBackToDefaultParse(t *testing.T) {
	var logged []string
	m := newTestManager(t, WithLogger(LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})))

	if err := m.Set(appPort, "not-a-number"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	port, err := m.Int(appPort)
	if err != nil {
		t.Fatalf("expected fallback to default parse, got %v", err)
	}
	if port != 8080 {
		t.Fatalf("unexpected fallback value: %d", port)
	}
	if len(logged) == 0 {
		t.Fatalf("expected the parse failure to be logged")
	}

	// When the key has no default, the original parse error surfaces.
	m2 := New("unused", map[appKey]string{}, DotCase[appKey](), WithStorage(codec.NewMemoryStorage()))
	defer m2.Close()
	if err := m2.Set(appKey("FREE_FORM"), "oops"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := m2.Int(appKey("FREE_FORM")); err == nil {
		t.Fatalf("expected parse error with no default to fall back to")
	}
}

func TestManagerReferenceEvaluation(t *testing.T) {
	m := newTestManager(t)

	url, ok, err := m.Get(appURL)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if url != "http://localhost:8080/" {
		t.Fatalf("unexpected evaluated url: %q", url)
	}

	raw, _, err := m.GetRaw(appURL)
	if err != nil {
		t.Fatalf("get raw failed: %v", err)
	}
	if !strings.Contains(raw, "${server.host}") {
		t.Fatalf("expected raw value to keep the reference, got %q", raw)
	}

	if err := m.Set(appHost, "example.org"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	url, _, err = m.Get(appURL)
	if err != nil || url != "http://example.org:8080/" {
		t.Fatalf("unexpected re-evaluated url: %q err=%v", url, err)
	}
}

func TestManagerIsReferencingAndReferenceAt(t *testing.T) {
	m := newTestManager(t)

	refs, err := m.IsReferencing(appURL, appHost)
	if err != nil || !refs {
		t.Fatalf("expected url to reference host: %v err=%v", refs, err)
	}
	refs, err = m.IsReferencing(appHost, appURL)
	if err != nil || refs {
		t.Fatalf("unexpected reverse reference: %v err=%v", refs, err)
	}

	ref, ok, err := m.ReferenceAt(appURL, 7)
	if err != nil || !ok || ref.Name != "server.host" {
		t.Fatalf("unexpected reference at 7: %+v ok=%v err=%v", ref, ok, err)
	}
	if _, ok, _ := m.ReferenceAt(appURL, 0); ok {
		t.Fatalf("expected no reference at position 0")
	}
}

func TestManagerSetAnyNilRejected(t *testing.T) {
	m := newTestManager(t)
	if err := m.SetAny(appHost, nil); !errors.Is(err, ErrNilValue) {
		t.Fatalf("expected ErrNilValue, got %v", err)
	}
	if err := m.SetAny(appPort, 9090); err != nil {
		t.Fatalf("set any failed: %v", err)
	}
	if port, err := m.Int(appPort); err != nil || port != 9090 {
		t.Fatalf("unexpected value after SetAny: %d err=%v", port, err)
	}
}

func TestManagerUndoRedo(t *testing.T) {
	m := newTestManager(t)
	if err := m.Set(appHost, "one"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := m.Set(appHost, "two"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if value, err := m.Undo(appHost); err != nil || value != "one" {
		t.Fatalf("unexpected undo: %q err=%v", value, err)
	}
	if value, err := m.Redo(appHost); err != nil || value != "two" {
		t.Fatalf("unexpected redo: %q err=%v", value, err)
	}
}

func TestManagerResetAndModification(t *testing.T) {
	m := newTestManager(t)

	if err := m.Set(appHost, "changed"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !m.IsKeyModified(appHost) || !m.IsModified() {
		t.Fatalf("expected modification after set")
	}
	if m.IsDefault(appHost) {
		t.Fatalf("expected changed key to report non-default")
	}

	if err := m.Reset(appHost); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !m.IsDefault(appHost) {
		t.Fatalf("expected reset key to report default")
	}

	free := appKey("FREE_FORM")
	if err := m.Set(free, "value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := m.Reset(free); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, ok, _ := m.Get(free); ok {
		t.Fatalf("expected defaultless key to be forgotten after reset")
	}
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.properties")
	defaults := appDefaults
	tr := appTranslator()
	ctx := context.Background()

	m := New(path, defaults, tr, WithComment("application settings"))
	if err := m.Set(appHost, "prod.example.org"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := m.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if m.IsModified() {
		t.Fatalf("expected save to clear modification")
	}
	m.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.Contains(string(data), "# application settings") {
		t.Fatalf("expected comment header in saved file:\n%s", data)
	}
	if strings.Contains(string(data), "server.port") {
		t.Fatalf("expected default-valued keys to be omitted:\n%s", data)
	}

	// A second manager over the same file picks the value up lazily.
	m2 := New(path, defaults, tr)
	defer m2.Close()
	value, ok, err := m2.Get(appHost)
	if err != nil || !ok || value != "prod.example.org" {
		t.Fatalf("unexpected reloaded value: %q ok=%v err=%v", value, ok, err)
	}
}

func TestManagerSavingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.properties")
	m := New(path, appDefaults, appTranslator(), WithSavingDefaults(true))
	defer m.Close()

	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.Contains(string(data), "server.port=8080") {
		t.Fatalf("expected defaults in saved file:\n%s", data)
	}
}

func TestManagerMissingFileFallsBackToDefaults(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "absent.properties"), appDefaults, appTranslator())
	defer m.Close()

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("expected missing file to load cleanly, got %v", err)
	}
	if value, _, _ := m.Get(appHost); value != "localhost" {
		t.Fatalf("unexpected value from defaults: %q", value)
	}
}

func TestManagerKeysSkipsUnknownNames(t *testing.T) {
	m := newTestManager(t)
	// A raw name outside the known key set is tracked by the store but
	// never surfaces as a typed key.
	if err := m.Set(appKey("UNKNOWN_EXTRA"), "x"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	keys, err := m.Keys()
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	want := []appKey{appDebug, appTimeout, appHost, appPort, appURL}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestManagerProperties(t *testing.T) {
	m := newTestManager(t)
	props, err := m.Properties()
	if err != nil {
		t.Fatalf("properties failed: %v", err)
	}
	if props["server.host"] != "localhost" {
		t.Fatalf("unexpected snapshot: %v", props)
	}

	// The snapshot is detached.
	props["server.host"] = "mutated"
	if value, _, _ := m.Get(appHost); value != "localhost" {
		t.Fatalf("expected snapshot mutation to have no effect, got %q", value)
	}
}

func TestManagerEvents(t *testing.T) {
	m := newTestManager(t)

	var mu sync.Mutex
	var all []events.Event
	var keyed []events.Event

	m.Subscribe(events.HookFunc(func(_ context.Context, event events.Event) error {
		mu.Lock()
		all = append(all, event)
		mu.Unlock()
		return nil
	}))
	sub := m.SubscribeKey(appHost, events.HookFunc(func(_ context.Context, event events.Event) error {
		mu.Lock()
		keyed = append(keyed, event)
		mu.Unlock()
		return nil
	}))

	if err := m.Set(appHost, "changed"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := m.Set(appPort, "9090"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mu.Lock()
	// Lazy load fires first, then two changes, then the save.
	kinds := make([]events.Kind, 0, len(all))
	for _, event := range all {
		kinds = append(kinds, event.Kind)
	}
	want := []events.Kind{events.KindLoaded, events.KindChanged, events.KindChanged, events.KindSaved}
	if !reflect.DeepEqual(kinds, want) {
		mu.Unlock()
		t.Fatalf("unexpected event kinds: %v", kinds)
	}

	// The keyed subscriber sees its own change plus whole-set events,
	// but not the other key's change.
	for _, event := range keyed {
		if event.Kind == events.KindChanged && event.Key != "server.host" {
			mu.Unlock()
			t.Fatalf("keyed subscriber received foreign change: %+v", event)
		}
	}
	if len(keyed) != 3 {
		mu.Unlock()
		t.Fatalf("expected loaded+own change+saved for keyed subscriber, got %v", keyed)
	}
	before := len(keyed)
	mu.Unlock()

	m.Unsubscribe(sub)
	if err := m.Set(appHost, "again"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keyed) != before {
		t.Fatalf("expected no delivery after unsubscribe")
	}
}

func TestManagerAsyncSerialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.properties")
	m := New(path, appDefaults, appTranslator())
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(appHost, "async.example.org"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	saveDone := m.SaveAsync(ctx)
	loadDone := m.LoadAsync(ctx)

	if err := <-saveDone; err != nil {
		t.Fatalf("async save failed: %v", err)
	}
	if err := <-loadDone; err != nil {
		t.Fatalf("async load failed: %v", err)
	}

	if value, _, _ := m.Get(appHost); value != "async.example.org" {
		t.Fatalf("unexpected value after async round trip: %q", value)
	}
}

func TestManagerClosedRejectsAsync(t *testing.T) {
	m := newTestManager(t)
	m.Close()
	if err := <-m.LoadAsync(context.Background()); err == nil {
		t.Fatalf("expected submission on a closed manager to fail")
	}
}

func TestManagerAutoTrim(t *testing.T) {
	storage := codec.NewMemoryStorage()
	if err := storage.Write([]byte("server.host=  spaced.example.org  \n")); err != nil {
		t.Fatalf("seeding storage: %v", err)
	}

	m := New("unused", appDefaults, appTranslator(), WithStorage(storage))
	defer m.Close()
	if value, _, err := m.Get(appHost); err != nil || value != "spaced.example.org" {
		t.Fatalf("expected trimmed value, got %q err=%v", value, err)
	}

	// The decoder strips whitespace ahead of the value; only trailing
	// whitespace survives to be trimmed or not.
	m2 := New("unused", appDefaults, appTranslator(), WithStorage(storage), WithAutoTrim(false))
	defer m2.Close()
	if value, _, err := m2.Get(appHost); err != nil || value != "spaced.example.org  " {
		t.Fatalf("expected untrimmed value, got %q err=%v", value, err)
	}
}

func TestManagerEvaluateRule(t *testing.T) {
	m := newTestManager(t, WithRuleEvaluator(NewExprRules()))

	result, err := m.EvaluateRule(`props["server.port"] > 1024`)
	if err != nil {
		t.Fatalf("rule evaluation failed: %v", err)
	}
	if result != true {
		t.Fatalf("unexpected rule result: %v", result)
	}

	result, err = m.EvaluateRule(`props["server.url"]`)
	if err != nil {
		t.Fatalf("rule evaluation failed: %v", err)
	}
	if result != "http://localhost:8080/" {
		t.Fatalf("expected evaluated reference in rule snapshot, got %v", result)
	}
}

func TestManagerEvaluateRuleRequiresEngine(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.EvaluateRule("1 + 1"); !errors.Is(err, ErrNoRuleEvaluator) {
		t.Fatalf("expected ErrNoRuleEvaluator, got %v", err)
	}
}

func TestManagerRuleLogging(t *testing.T) {
	var eventsSeen []RuleLogEvent
	m := newTestManager(t,
		WithRuleEvaluator(NewExprRules()),
		WithRuleLogger(RuleLoggerFunc(func(event RuleLogEvent) {
			eventsSeen = append(eventsSeen, event)
		})),
	)

	if _, err := m.EvaluateRule("1 + 1"); err != nil {
		t.Fatalf("rule evaluation failed: %v", err)
	}
	if len(eventsSeen) != 1 {
		t.Fatalf("expected one logged rule event, got %d", len(eventsSeen))
	}
	if eventsSeen[0].Engine != "expr" || eventsSeen[0].Err != nil {
		t.Fatalf("unexpected rule log event: %+v", eventsSeen[0])
	}
}

func TestManagerWatchReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.properties")
	m := New(path, appDefaults, appTranslator())
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := m.Watch(ctx); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("server.host=watched.example.org\n"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		value, _, err := m.Get(appHost)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if value == "watched.example.org" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for watch reload, value %q", value)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestManagerWatchRequiresFileStorage(t *testing.T) {
	m := newTestManager(t)
	if err := m.Watch(context.Background()); err == nil {
		t.Fatalf("expected watch on memory storage to fail")
	}
}
