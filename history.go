package props

import "sync"

// DefaultHistoryLimit bounds how many values a single key's history keeps
// before the oldest entries are discarded.
const DefaultHistoryLimit = 100

// ChangeHistory tracks the sequence of values one key has held, with a
// movable cursor for undo/redo and a marker for the last value that was
// persisted. It keeps whole values rather than diffs, which is suitable
// for small values such as strings.
//
// At a boundary, Undo and Redo return the current value unchanged; use
// CanUndo and CanRedo when the distinction matters.
type ChangeHistory[T comparable] struct {
	mu sync.Mutex

	entries []T
	cursor  int
	synced  int
	limit   int
}

// NewChangeHistory builds a history seeded with value. The seed counts as
// already persisted. A limit <= 0 falls back to DefaultHistoryLimit.
func NewChangeHistory[T comparable](value T, limit int) *ChangeHistory[T] {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ChangeHistory[T]{
		entries: []T{value},
		limit:   limit,
	}
}

// Push records a new current value. Entries ahead of the cursor are
// discarded, which invalidates redo. Pushing the current value again is a
// no-op. It reports whether the current value changed.
func (h *ChangeHistory[T]) Push(value T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.push(value)
}

// Sync records value as both current and persisted. Like Push it is a
// no-op on an equal value, except that the synced marker still moves to
// the cursor. It reports whether the current value changed.
func (h *ChangeHistory[T]) Sync(value T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	changed := h.push(value)
	h.synced = h.cursor
	return changed
}

func (h *ChangeHistory[T]) push(value T) bool {
	if value == h.entries[h.cursor] {
		return false
	}

	h.entries = append(h.entries[:h.cursor+1], value)
	h.cursor++

	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append(h.entries[:0], h.entries[drop:]...)
		h.cursor -= drop
		h.synced -= drop
		if h.synced < 0 {
			h.synced = 0
		}
	}
	return true
}

// Undo moves the cursor one step back and returns the new current value.
func (h *ChangeHistory[T]) Undo() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor]
}

// Redo moves the cursor one step forward and returns the new current
// value. It only has an effect after an Undo with no Push in between.
func (h *ChangeHistory[T]) Redo() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < len(h.entries)-1 {
		h.cursor++
	}
	return h.entries[h.cursor]
}

// CanUndo reports whether there is at least one past value to return to.
func (h *ChangeHistory[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo reports whether there is at least one future value to advance to.
func (h *ChangeHistory[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Current returns the value at the cursor.
func (h *ChangeHistory[T]) Current() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// Saved returns the value at the synced marker.
func (h *ChangeHistory[T]) Saved() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.synced]
}

// MarkSynced records the current value as persisted without touching the
// entries, so undo history survives a save.
func (h *ChangeHistory[T]) MarkSynced() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.synced = h.cursor
}

// IsModified reports whether the current value differs from the last
// persisted value. Intermediate edits that end back at the persisted
// value count as unmodified.
func (h *ChangeHistory[T]) IsModified() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor] != h.entries[h.synced]
}

// Len returns the number of entries currently retained.
func (h *ChangeHistory[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
