package grid

import (
	"fmt"
	"testing"
)

type historyFixture struct {
	clock   *fakeClock
	overlay *Overlay
	history *History
}

func newHistoryFixture() *historyFixture {
	f := &historyFixture{
		clock:   newFakeClock(),
		overlay: NewOverlay(),
	}
	f.history = NewHistory(f.overlay.Snapshot, f.clock, DefaultHistoryDelay, DefaultHistoryLimit)
	return f
}

// edit applies one overlay change and lets the snapshot debounce fire.
func (f *historyFixture) edit(rowKey, colKey, value string) {
	f.overlay.Set(rowKey, colKey, value, "")
	f.history.Record()
	f.clock.Advance(DefaultHistoryDelay)
}

func TestHistoryDebounceCollapsesBurst(t *testing.T) {
	f := newHistoryFixture()

	// Rapid typing: records without letting the idle delay elapse.
	for _, v := range []string{"g", "gấ", "gấp"} {
		f.overlay.Set("ORD-1", "note", v, "")
		f.history.Record()
		f.clock.Advance(DefaultHistoryDelay / 4)
	}
	f.clock.Advance(DefaultHistoryDelay)

	if got := f.history.Len(); got != 1 {
		t.Fatalf("burst produced %d snapshots, want 1", got)
	}
}

func TestHistoryUndoRedoInverse(t *testing.T) {
	f := newHistoryFixture()

	const n = 5
	for i := 0; i < n; i++ {
		f.edit("ORD-1", fmt.Sprintf("col%d", i), "v")
	}
	if f.history.Len() != n {
		t.Fatalf("snapshots = %d, want %d", f.history.Len(), n)
	}

	// Undo n times returns to the pre-first-edit (empty) state.
	for i := 0; i < n; i++ {
		pending, legacy, ok := f.history.Undo()
		if !ok {
			t.Fatalf("undo %d reported nothing to undo", i)
		}
		f.overlay.Restore(pending, legacy)
	}
	if f.overlay.HasChanges() {
		t.Fatal("overlay not empty after undoing everything")
	}
	if _, _, ok := f.history.Undo(); ok {
		t.Fatal("expected nothing to undo at the bottom")
	}

	// Redo n times restores the final state.
	for i := 0; i < n; i++ {
		pending, legacy, ok := f.history.Redo()
		if !ok {
			t.Fatalf("redo %d failed", i)
		}
		f.overlay.Restore(pending, legacy)
	}
	if got := f.overlay.Count(); got != n {
		t.Fatalf("overlay count after redo = %d, want %d", got, n)
	}
	if _, _, ok := f.history.Redo(); ok {
		t.Fatal("redo past the newest snapshot")
	}
}

func TestHistoryTruncatesFutureOnPushAfterUndo(t *testing.T) {
	f := newHistoryFixture()

	f.edit("ORD-1", "a", "1")
	f.edit("ORD-1", "b", "2")
	f.edit("ORD-1", "c", "3")

	pending, legacy, _ := f.history.Undo()
	f.overlay.Restore(pending, legacy)
	pending, legacy, _ = f.history.Undo()
	f.overlay.Restore(pending, legacy)

	// A fresh edit after undoing discards the redo tail: linear history,
	// no branching.
	f.edit("ORD-1", "d", "4")

	if _, _, ok := f.history.Redo(); ok {
		t.Fatal("redo tail survived a post-undo edit")
	}
	if got := f.history.Len(); got != 2 {
		t.Fatalf("snapshots = %d, want 2", got)
	}
}

func TestHistoryBound(t *testing.T) {
	f := newHistoryFixture()

	for i := 0; i < DefaultHistoryLimit+17; i++ {
		f.edit("ORD-1", fmt.Sprintf("col%d", i), "v")
	}

	if got := f.history.Len(); got != DefaultHistoryLimit {
		t.Fatalf("history holds %d snapshots, want at most %d", got, DefaultHistoryLimit)
	}

	// Every remaining snapshot is still navigable.
	steps := 0
	for {
		pending, legacy, ok := f.history.Undo()
		if !ok {
			break
		}
		f.overlay.Restore(pending, legacy)
		steps++
	}
	if steps != DefaultHistoryLimit {
		t.Fatalf("navigated %d undo steps, want %d", steps, DefaultHistoryLimit)
	}
}

func TestHistorySkipsIdenticalState(t *testing.T) {
	f := newHistoryFixture()

	f.edit("ORD-1", "a", "1")
	// Re-recording the same overlay state must not grow the history.
	f.history.Record()
	f.clock.Advance(DefaultHistoryDelay)

	if got := f.history.Len(); got != 1 {
		t.Fatalf("identical state pushed a new snapshot: %d", got)
	}
}
