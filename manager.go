package props

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/propkit/go-props/codec"
	"github.com/propkit/go-props/pkg/events"
)

// Manager coordinates a file-backed property set accessed through typed
// keys. It composes a Store for values and history, an Evaluator for
// reference expansion, a codec plus storage backend for persistence, and
// an event registry for listener fan-out.
//
// All methods are safe for concurrent use. The backing file is read
// lazily on first access; call Load to force a reload.
type Manager[K comparable] struct {
	translator Translator[K]
	store      *Store
	evaluator  *Evaluator
	storage    codec.Storage
	codec      codec.Codec
	registry   *events.Registry
	rules      RuleEvaluator
	ruleLogger RuleLogger
	logger     Logger

	autoTrim bool
	comment  string

	loadMu sync.Mutex
	loaded bool

	workerOnce sync.Once
	closeOnce  sync.Once
	jobs       chan asyncJob
	done       chan struct{}
}

type asyncJob struct {
	run    func() error
	result chan<- error
}

// New builds a Manager persisting to path. Defaults are keyed by typed
// key and translated to key-names at construction.
func New[K comparable](path string, defaults map[K]string, translator Translator[K], opts ...ManagerOption) *Manager[K] {
	cfg := applyManagerOptions(opts)

	if cfg.storage == nil {
		cfg.storage = codec.NewFileStorage(path)
	}
	if cfg.codec == nil {
		cfg.codec = codec.Properties{}
	}
	if cfg.evaluator == nil {
		cfg.evaluator = NewEvaluator()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.ruleLogger == nil {
		cfg.ruleLogger = noopRuleLogger{}
	}

	named := make(map[string]string, len(defaults))
	for key, value := range defaults {
		named[translator.Name(key)] = value
	}

	storeOpts := []StoreOption{StoreWithSavingDefaults(cfg.savingDefaults)}
	if cfg.historyLimit > 0 {
		storeOpts = append(storeOpts, StoreWithHistoryLimit(cfg.historyLimit))
	}

	return &Manager[K]{
		translator: translator,
		store:      NewStore(named, storeOpts...),
		evaluator:  cfg.evaluator,
		storage:    cfg.storage,
		codec:      cfg.codec,
		registry:   events.NewRegistry(),
		rules:      cfg.rules,
		ruleLogger: cfg.ruleLogger,
		logger:     cfg.logger,
		autoTrim:   cfg.autoTrim,
		comment:    cfg.comment,
		jobs:       make(chan asyncJob),
		done:       make(chan struct{}),
	}
}

// Translator returns the key translator in use.
func (m *Manager[K]) Translator() Translator[K] {
	return m.translator
}

// SetSavingDefaults flips whether default-valued keys are written on
// save.
func (m *Manager[K]) SetSavingDefaults(saving bool) {
	m.store.SetSavingDefaults(saving)
}

// SavingDefaults reports whether default-valued keys are written on
// save.
func (m *Manager[K]) SavingDefaults() bool {
	return m.store.SavingDefaults()
}

// Load replaces the working set with the backing file's contents. A
// missing file is not an error; the set falls back to defaults alone.
func (m *Manager[K]) Load(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.loadLocked(ctx)
}

func (m *Manager[K]) loadLocked(ctx context.Context) error {
	err := m.store.Load(func() (map[string]string, error) {
		data, ok, err := m.storage.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return map[string]string{}, nil
		}
		return m.codec.Decode(bytes.NewReader(data))
	})
	if err != nil {
		return err
	}
	m.loaded = true
	m.emit(ctx, events.Event{Kind: events.KindLoaded})
	return nil
}

func (m *Manager[K]) ensureLoaded(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if m.loaded {
		return nil
	}
	return m.loadLocked(ctx)
}

// Save writes the working set to the backing file and marks every key
// synced.
func (m *Manager[K]) Save(ctx context.Context) error {
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	err := m.store.Save(func(values map[string]string) error {
		var buf bytes.Buffer
		if err := m.codec.Encode(&buf, values, m.comment); err != nil {
			return err
		}
		return m.storage.Write(buf.Bytes())
	})
	if err != nil {
		return err
	}
	m.emit(ctx, events.Event{Kind: events.KindSaved})
	return nil
}

// LoadAsync schedules a Load on the manager's worker goroutine and
// returns a channel that yields its result. Async loads and saves are
// serialized in submission order.
func (m *Manager[K]) LoadAsync(ctx context.Context) <-chan error {
	return m.submit(func() error { return m.Load(ctx) })
}

// SaveAsync schedules a Save on the manager's worker goroutine.
func (m *Manager[K]) SaveAsync(ctx context.Context) <-chan error {
	return m.submit(func() error { return m.Save(ctx) })
}

func (m *Manager[K]) submit(run func() error) <-chan error {
	m.workerOnce.Do(func() {
		go m.worker()
	})

	result := make(chan error, 1)
	job := asyncJob{run: run, result: result}
	select {
	case m.jobs <- job:
	case <-m.done:
		result <- fmt.Errorf("props: manager closed")
	}
	return result
}

func (m *Manager[K]) worker() {
	for {
		select {
		case job := <-m.jobs:
			job.result <- job.run()
		case <-m.done:
			return
		}
	}
}

// Close stops the async worker. Pending submissions fail; blocking Load
// and Save remain usable.
func (m *Manager[K]) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

func (m *Manager[K]) trim(value string) string {
	if m.autoTrim {
		return strings.TrimSpace(value)
	}
	return value
}

func (m *Manager[K]) retrieve(name string) (string, bool) {
	value, ok := m.store.Get(name)
	if !ok {
		return "", false
	}
	return m.trim(value), true
}

// GetRaw returns the stored value of key without expanding references.
// The boolean is false when the key holds no value and has no default.
func (m *Manager[K]) GetRaw(key K) (string, bool, error) {
	if err := m.ensureLoaded(context.Background()); err != nil {
		return "", false, err
	}
	value, ok := m.retrieve(m.translator.Name(key))
	return value, ok, nil
}

// Get returns the fully evaluated value of key, expanding nested
// references. The boolean is false when the key holds no value and has
// no default.
func (m *Manager[K]) Get(key K) (string, bool, error) {
	raw, ok, err := m.GetRaw(key)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := m.evaluator.Evaluate(raw, m.retrieve)
	if err != nil {
		return "", true, err
	}
	return value, true, nil
}

// Default returns the evaluated default value of key.
func (m *Manager[K]) Default(key K) (string, bool, error) {
	raw, ok := m.store.Default(m.translator.Name(key))
	if !ok {
		return "", false, nil
	}
	value, err := m.evaluator.Evaluate(m.trim(raw), m.retrieve)
	if err != nil {
		return "", true, err
	}
	return value, true, nil
}

// IsDefault reports whether key currently holds its default value.
func (m *Manager[K]) IsDefault(key K) bool {
	name := m.translator.Name(key)
	value, ok := m.store.Get(name)
	if !ok {
		return false
	}
	defaultValue, ok := m.store.Default(name)
	if !ok {
		return false
	}
	return m.trim(value) == m.trim(defaultValue)
}

// Bool returns the value of key parsed as a boolean, falling back to
// the default's parse when the current value is malformed.
func (m *Manager[K]) Bool(key K) (bool, error) {
	value, _, err := m.Get(key)
	if err != nil {
		return false, err
	}
	parsed, parseErr := strconv.ParseBool(value)
	if parseErr == nil {
		return parsed, nil
	}
	fallback, err := m.defaultFallback(key, parseErr)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(fallback)
}

// Int returns the value of key parsed as an int, falling back to the
// default's parse when the current value is malformed.
func (m *Manager[K]) Int(key K) (int, error) {
	value, _, err := m.Get(key)
	if err != nil {
		return 0, err
	}
	parsed, parseErr := strconv.Atoi(value)
	if parseErr == nil {
		return parsed, nil
	}
	fallback, err := m.defaultFallback(key, parseErr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(fallback)
}

// Int64 returns the value of key parsed as an int64, falling back to
// the default's parse when the current value is malformed.
func (m *Manager[K]) Int64(key K) (int64, error) {
	value, _, err := m.Get(key)
	if err != nil {
		return 0, err
	}
	parsed, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr == nil {
		return parsed, nil
	}
	fallback, err := m.defaultFallback(key, parseErr)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(fallback, 10, 64)
}

// Float returns the value of key parsed as a float64, falling back to
// the default's parse when the current value is malformed.
func (m *Manager[K]) Float(key K) (float64, error) {
	value, _, err := m.Get(key)
	if err != nil {
		return 0, err
	}
	parsed, parseErr := strconv.ParseFloat(value, 64)
	if parseErr == nil {
		return parsed, nil
	}
	fallback, err := m.defaultFallback(key, parseErr)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(fallback, 64)
}

// Duration returns the value of key parsed as a time.Duration, falling
// back to the default's parse when the current value is malformed.
func (m *Manager[K]) Duration(key K) (time.Duration, error) {
	value, _, err := m.Get(key)
	if err != nil {
		return 0, err
	}
	parsed, parseErr := time.ParseDuration(value)
	if parseErr == nil {
		return parsed, nil
	}
	fallback, err := m.defaultFallback(key, parseErr)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(fallback)
}

// defaultFallback resolves the evaluated default for a typed accessor
// whose current value failed to parse. When no default exists the
// original parse error propagates.
func (m *Manager[K]) defaultFallback(key K, parseErr error) (string, error) {
	m.logger.Logf("props: property %s: %v", m.translator.Name(key), parseErr)
	fallback, ok, err := m.Default(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", parseErr
	}
	return fallback, nil
}

// Set records a new value for key without writing it to storage.
func (m *Manager[K]) Set(key K, value string) error {
	ctx := context.Background()
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	name := m.translator.Name(key)
	if m.store.Set(name, value) {
		m.emit(ctx, events.Event{Kind: events.KindChanged, Key: name})
	}
	return nil
}

// SetAny records value's string representation for key. A nil value is
// rejected; reset the key instead.
func (m *Manager[K]) SetAny(key K, value any) error {
	if value == nil {
		return ErrNilValue
	}
	return m.Set(key, fmt.Sprint(value))
}

// Reset returns key to its default value, or forgets it entirely when
// it has none. Storage is not written.
func (m *Manager[K]) Reset(key K) error {
	ctx := context.Background()
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	name := m.translator.Name(key)
	if m.store.ResetToDefault(name) {
		m.emit(ctx, events.Event{Kind: events.KindReset, Key: name})
	}
	return nil
}

// ResetAll returns every key to its default value.
func (m *Manager[K]) ResetAll() error {
	ctx := context.Background()
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	m.store.ResetAll()
	m.emit(ctx, events.Event{Kind: events.KindReset})
	return nil
}

// Undo steps key's value back one change and returns the new current
// value. At the history boundary the value is returned unchanged.
func (m *Manager[K]) Undo(key K) (string, error) {
	ctx := context.Background()
	if err := m.ensureLoaded(ctx); err != nil {
		return "", err
	}
	name := m.translator.Name(key)
	before, _ := m.store.Get(name)
	value, ok := m.store.Undo(name)
	if !ok {
		return "", nil
	}
	if value != before {
		m.emit(ctx, events.Event{Kind: events.KindChanged, Key: name})
	}
	return m.trim(value), nil
}

// Redo steps key's value forward one change and returns the new current
// value. At the history boundary the value is returned unchanged.
func (m *Manager[K]) Redo(key K) (string, error) {
	ctx := context.Background()
	if err := m.ensureLoaded(ctx); err != nil {
		return "", err
	}
	name := m.translator.Name(key)
	before, _ := m.store.Get(name)
	value, ok := m.store.Redo(name)
	if !ok {
		return "", nil
	}
	if value != before {
		m.emit(ctx, events.Event{Kind: events.KindChanged, Key: name})
	}
	return m.trim(value), nil
}

// IsModified reports whether any key differs from its last loaded or
// saved value.
func (m *Manager[K]) IsModified() bool {
	return m.store.Modified()
}

// IsKeyModified reports whether key differs from its last loaded or
// saved value.
func (m *Manager[K]) IsKeyModified(key K) bool {
	return m.store.KeyModified(m.translator.Name(key))
}

// Keys returns the typed keys currently tracked, sorted by key-name.
// Names that do not translate to a typed key are skipped.
func (m *Manager[K]) Keys() ([]K, error) {
	if err := m.ensureLoaded(context.Background()); err != nil {
		return nil, err
	}
	names := m.store.KeyNames()
	keys := make([]K, 0, len(names))
	for _, name := range names {
		key, err := m.translator.Key(name)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Properties returns a snapshot of every raw value, defaults included.
// The snapshot is detached from the manager.
func (m *Manager[K]) Properties() (map[string]string, error) {
	if err := m.ensureLoaded(context.Background()); err != nil {
		return nil, err
	}
	return m.store.Snapshot(true), nil
}

// IsReferencing reports whether key's value references target, directly
// or through intermediate keys.
func (m *Manager[K]) IsReferencing(key, target K) (bool, error) {
	raw, ok, err := m.GetRaw(key)
	if err != nil || !ok {
		return false, err
	}
	return m.evaluator.IsReferencing(raw, m.translator.Name(target), m.retrieve), nil
}

// ReferenceAt returns the reference beginning exactly at pos in key's
// raw value, if one exists.
func (m *Manager[K]) ReferenceAt(key K, pos int) (Reference, bool, error) {
	raw, ok, err := m.GetRaw(key)
	if err != nil || !ok {
		return Reference{}, false, err
	}
	ref, found := m.evaluator.ReferenceAt(raw, pos)
	return ref, found, nil
}

// Subscribe registers hook for every property event.
func (m *Manager[K]) Subscribe(hook events.Hook) events.Subscription {
	return m.registry.Subscribe(hook)
}

// SubscribeKey registers hook for events about key, plus whole-set
// events.
func (m *Manager[K]) SubscribeKey(key K, hook events.Hook) events.Subscription {
	return m.registry.SubscribeKey(m.translator.Name(key), hook)
}

// Unsubscribe removes a subscription.
func (m *Manager[K]) Unsubscribe(id events.Subscription) {
	m.registry.Unsubscribe(id)
}

func (m *Manager[K]) emit(ctx context.Context, event events.Event) {
	if err := m.registry.Emit(ctx, event); err != nil {
		m.logger.Logf("props: event %s: %v", event.Kind, err)
	}
}

// EvaluateRule runs expr against the current evaluated property
// snapshot. Requires WithRuleEvaluator.
func (m *Manager[K]) EvaluateRule(expr string) (any, error) {
	return m.EvaluateRuleWith(RuleContext{}, expr)
}

// EvaluateRuleWith runs expr with caller-provided context inputs; the
// evaluated property snapshot is filled in when ctx carries none.
func (m *Manager[K]) EvaluateRuleWith(ctx RuleContext, expr string) (any, error) {
	if m.rules == nil {
		return nil, ErrNoRuleEvaluator
	}
	if ctx.Properties == nil {
		props, err := m.ruleProperties()
		if err != nil {
			return nil, err
		}
		ctx.Properties = props
	}
	started := time.Now()
	result, err := m.rules.Evaluate(ctx, expr)
	m.ruleLogger.LogRule(RuleLogEvent{
		Engine:   ruleEngineName(m.rules),
		Expr:     expr,
		Duration: time.Since(started),
		Err:      err,
	})
	return result, err
}

func (m *Manager[K]) ruleProperties() (map[string]any, error) {
	if err := m.ensureLoaded(context.Background()); err != nil {
		return nil, err
	}
	snapshot := m.store.Snapshot(true)
	props := make(map[string]any, len(snapshot))
	for name, raw := range snapshot {
		value, err := m.evaluator.Evaluate(m.trim(raw), m.retrieve)
		if err != nil {
			return nil, err
		}
		props[name] = coerceRuleValue(value)
	}
	return props, nil
}

// coerceRuleValue narrows a property string to the type rule
// expressions most naturally compare against.
func coerceRuleValue(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
