package props

import (
	"sort"
	"sync"
)

// Store is the single source of truth for the current, default, and
// historical values of every known key. Key-names are opaque strings;
// translating typed keys to names is the Manager's job.
//
// Defaults are copied at construction and never change. Every key with a
// default always has a history; keys set without a default are tracked
// until they are reset away. An explicit value equal to its default keeps
// its history row — filtering happens at Snapshot time.
type Store struct {
	mu       sync.RWMutex
	values   map[string]*ChangeHistory[string]
	defaults map[string]string

	savingDefaults bool
	historyLimit   int
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// StoreWithSavingDefaults controls whether values equal to their default
// are included when the store is saved. Off by default.
func StoreWithSavingDefaults(saving bool) StoreOption {
	return func(s *Store) {
		s.savingDefaults = saving
	}
}

// StoreWithHistoryLimit bounds each key's history length.
func StoreWithHistoryLimit(limit int) StoreOption {
	return func(s *Store) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// NewStore builds a store seeded with one synced history per default key.
// The defaults map is copied so later caller mutation has no effect.
func NewStore(defaults map[string]string, opts ...StoreOption) *Store {
	s := &Store{
		values:       make(map[string]*ChangeHistory[string], len(defaults)),
		defaults:     make(map[string]string, len(defaults)),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	for name, value := range defaults {
		s.defaults[name] = value
		s.values[name] = NewChangeHistory(value, s.historyLimit)
	}
	return s
}

// SetSavingDefaults flips whether default-valued keys are written on save.
func (s *Store) SetSavingDefaults(saving bool) {
	s.mu.Lock()
	s.savingDefaults = saving
	s.mu.Unlock()
}

// SavingDefaults reports whether default-valued keys are written on save.
func (s *Store) SavingDefaults() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savingDefaults
}

// Get returns the current value for name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	history, ok := s.values[name]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return history.Current(), true
}

// Default returns the default value for name.
func (s *Store) Default(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.defaults[name]
	return value, ok
}

// Set records a new current value for name, creating a history when the
// key has never held a value. It reports whether the current value
// changed. A brand-new key always counts as changed.
func (s *Store) Set(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(name, value, false)
}

func (s *Store) set(name, value string, sync bool) bool {
	history, ok := s.values[name]
	if !ok {
		// A genuinely new key: the seed entry doubles as the synced
		// baseline, but the set itself still counts as a change.
		s.values[name] = NewChangeHistory(value, s.historyLimit)
		return !sync
	}
	if sync {
		return history.Sync(value)
	}
	return history.Push(value)
}

// ResetToDefault pushes the default value for name, or removes the key
// entirely when it has no default. It reports whether the current value
// changed as a result.
func (s *Store) ResetToDefault(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetToDefault(name)
}

func (s *Store) resetToDefault(name string) bool {
	defaultValue, ok := s.defaults[name]
	if !ok {
		if _, tracked := s.values[name]; tracked {
			delete(s.values, name)
			return true
		}
		return false
	}
	return s.values[name].Push(defaultValue)
}

// ResetAll resets every tracked key: keys with defaults get the default
// pushed, keys without are removed.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.values {
		s.resetToDefault(name)
	}
}

// Undo steps name's history back one value and returns the new current
// value. The second return is false when the key is unknown.
func (s *Store) Undo(name string) (string, bool) {
	s.mu.RLock()
	history, ok := s.values[name]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return history.Undo(), true
}

// Redo steps name's history forward one value and returns the new current
// value. The second return is false when the key is unknown.
func (s *Store) Redo(name string) (string, bool) {
	s.mu.RLock()
	history, ok := s.values[name]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return history.Redo(), true
}

// KeyModified reports whether name's current value differs from its last
// loaded or saved value. Unknown keys are unmodified.
func (s *Store) KeyModified(name string) bool {
	s.mu.RLock()
	history, ok := s.values[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return history.IsModified()
}

// Modified reports whether any tracked key is modified.
func (s *Store) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, history := range s.values {
		if history.IsModified() {
			return true
		}
	}
	return false
}

// KeyNames returns the sorted names of every tracked key, defaults
// included.
func (s *Store) KeyNames() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns a point-in-time copy of the current values. When
// includeDefaults is false, keys whose current value equals their default
// are omitted.
func (s *Store) Snapshot(includeDefaults bool) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(includeDefaults)
}

func (s *Store) snapshot(includeDefaults bool) map[string]string {
	out := make(map[string]string, len(s.values))
	for name, history := range s.values {
		value := history.Current()
		if !includeDefaults {
			if defaultValue, ok := s.defaults[name]; ok && value == defaultValue {
				continue
			}
		}
		out[name] = value
	}
	return out
}

// Load replaces the working set with the mapping produced by source. The
// source call runs before any lock is taken, so a slow or failing read
// leaves the store untouched. On success, atomically: every source key is
// synced to its loaded value, keys with only a default are synced to the
// default, and tracked keys absent from both are dropped.
func (s *Store) Load(source func() (map[string]string, error)) error {
	loaded, err := source()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.values {
		if _, ok := loaded[name]; ok {
			continue
		}
		if _, ok := s.defaults[name]; ok {
			continue
		}
		delete(s.values, name)
	}
	for name, value := range loaded {
		s.syncValue(name, value)
	}
	for name, value := range s.defaults {
		if _, ok := loaded[name]; !ok {
			s.syncValue(name, value)
		}
	}
	return nil
}

func (s *Store) syncValue(name, value string) {
	history, ok := s.values[name]
	if !ok {
		s.values[name] = NewChangeHistory(value, s.historyLimit)
		return
	}
	history.Sync(value)
}

// Save writes the current values through sink and, when the write
// succeeds, marks every history as synced. The store lock is held across
// snapshot, write, and sync so all three see the same instant; writers
// block for the duration of the sink call.
func (s *Store) Save(sink func(map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sink(s.snapshot(s.savingDefaults)); err != nil {
		return err
	}
	for _, history := range s.values {
		history.MarkSynced()
	}
	return nil
}
