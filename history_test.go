package props

import "testing"

func TestChangeHistoryPushUndoRedo(t *testing.T) {
	h := NewChangeHistory("a", 0)

	if changed := h.Push("b"); !changed {
		t.Fatalf("expected push of new value to report a change")
	}
	if changed := h.Push("b"); changed {
		t.Fatalf("expected push of current value to be a no-op")
	}
	if got := h.Current(); got != "b" {
		t.Fatalf("unexpected current value: %q", got)
	}

	if got := h.Undo(); got != "a" {
		t.Fatalf("expected undo to return %q, got %q", "a", got)
	}
	if got := h.Redo(); got != "b" {
		t.Fatalf("expected redo to return %q, got %q", "b", got)
	}
}

func TestChangeHistoryBoundaryIsSilent(t *testing.T) {
	h := NewChangeHistory("only", 0)

	if h.CanUndo() {
		t.Fatalf("expected no undo on a fresh history")
	}
	if got := h.Undo(); got != "only" {
		t.Fatalf("expected undo at boundary to return current, got %q", got)
	}
	if h.CanRedo() {
		t.Fatalf("expected no redo on a fresh history")
	}
	if got := h.Redo(); got != "only" {
		t.Fatalf("expected redo at boundary to return current, got %q", got)
	}
}

func TestChangeHistoryPushAfterUndoTruncatesRedo(t *testing.T) {
	h := NewChangeHistory("a", 0)
	h.Push("b")
	h.Push("c")
	h.Undo()

	if !h.CanRedo() {
		t.Fatalf("expected redo to be available after undo")
	}
	h.Push("d")
	if h.CanRedo() {
		t.Fatalf("expected push to invalidate redo")
	}
	if got := h.Current(); got != "d" {
		t.Fatalf("unexpected current value: %q", got)
	}
	if got := h.Undo(); got != "b" {
		t.Fatalf("expected undo to step to %q, got %q", "b", got)
	}
}

func TestChangeHistoryModificationTracking(t *testing.T) {
	h := NewChangeHistory("base", 0)
	if h.IsModified() {
		t.Fatalf("expected seed value to count as persisted")
	}

	h.Push("edit")
	if !h.IsModified() {
		t.Fatalf("expected pushed value to count as modified")
	}
	if got := h.Saved(); got != "base" {
		t.Fatalf("unexpected saved value: %q", got)
	}

	// An undo back to the persisted value is not a modification.
	h.Undo()
	if h.IsModified() {
		t.Fatalf("expected undo back to persisted value to be unmodified")
	}

	h.Redo()
	h.MarkSynced()
	if h.IsModified() {
		t.Fatalf("expected MarkSynced to clear modification")
	}
	if got := h.Saved(); got != "edit" {
		t.Fatalf("unexpected saved value after sync: %q", got)
	}
	if !h.CanUndo() {
		t.Fatalf("expected undo history to survive MarkSynced")
	}
}

func TestChangeHistorySyncMovesMarkerOnEqualValue(t *testing.T) {
	h := NewChangeHistory("a", 0)
	h.Push("b")
	if h.Sync("b") {
		t.Fatalf("expected sync of current value to report no change")
	}
	if h.IsModified() {
		t.Fatalf("expected sync to move the persisted marker")
	}
}

func TestChangeHistoryLimitDropsOldest(t *testing.T) {
	h := NewChangeHistory("v0", 3)
	h.Push("v1")
	h.Push("v2")
	h.Push("v3")

	if got := h.Len(); got != 3 {
		t.Fatalf("expected history bounded at 3 entries, got %d", got)
	}
	if got := h.Current(); got != "v3" {
		t.Fatalf("unexpected current value: %q", got)
	}

	h.Undo()
	h.Undo()
	if got := h.Current(); got != "v1" {
		t.Fatalf("expected oldest retained value %q, got %q", "v1", got)
	}
	if h.CanUndo() {
		t.Fatalf("expected v0 to have been dropped")
	}
}
