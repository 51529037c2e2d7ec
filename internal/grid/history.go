package grid

import (
	"sync"
	"time"
)

// DefaultHistoryLimit bounds the undo history; the oldest snapshots are
// evicted first.
const DefaultHistoryLimit = 50

// DefaultHistoryDelay is the idle time after which a burst of overlay
// changes collapses into a single snapshot. Rapid typing in one cell
// produces one history entry, not one per keystroke.
const DefaultHistoryDelay = time.Second

type snapshot struct {
	pending ChangeSet
	legacy  ChangeSet
	at      time.Time
}

// History is a bounded linear undo/redo sequence over overlay states.
// Pushing after an undo truncates the redo tail; there is no branching.
// It never touches remote writes: reverting a value that already flushed
// requires a fresh edit.
type History struct {
	mu     sync.Mutex
	clock  Clock
	delay  time.Duration
	limit  int
	source func() (pending, legacy ChangeSet)

	entries []snapshot
	index   int // -1 = before the first snapshot
	timer   Timer
}

// NewHistory builds a history that snapshots the given source. source must
// return deep copies.
func NewHistory(source func() (ChangeSet, ChangeSet), clock Clock, delay time.Duration, limit int) *History {
	if clock == nil {
		clock = SystemClock()
	}
	if delay <= 0 {
		delay = DefaultHistoryDelay
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		clock:  clock,
		delay:  delay,
		limit:  limit,
		source: source,
		index:  -1,
	}
}

// Record schedules a snapshot after the idle delay, resetting the timer if
// one is already pending.
func (h *History) Record() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Reset(h.delay)
		return
	}
	h.timer = h.clock.AfterFunc(h.delay, h.push)
}

func (h *History) push() {
	// Snapshot before taking h.mu: the source locks the engine, which may
	// itself be blocked on Record.
	pending, legacy := h.source()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = nil

	if pending.Empty() && legacy.Empty() {
		return
	}
	if h.index >= 0 && h.index < len(h.entries) {
		cur := h.entries[h.index]
		if cur.pending.Equal(pending) && cur.legacy.Equal(legacy) {
			return
		}
	}

	// Truncate any redo tail beyond the pointer before appending.
	h.entries = append(h.entries[:h.index+1], snapshot{
		pending: pending,
		legacy:  legacy,
		at:      h.clock.Now(),
	})
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.index = len(h.entries) - 1
}

// Undo steps the pointer back one and returns that snapshot's change sets.
// Stepping back from the earliest snapshot returns empty sets: the overlay
// reverts fully to the remote state. ok is false only when there is
// nothing left to step back from.
func (h *History) Undo() (pending, legacy ChangeSet, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.index > 0:
		h.index--
		s := h.entries[h.index]
		return s.pending.Clone(), s.legacy.Clone(), true
	case h.index == 0:
		h.index = -1
		return make(ChangeSet), make(ChangeSet), true
	default:
		return nil, nil, false
	}
}

// Redo steps the pointer forward one, if not already at the newest
// snapshot.
func (h *History) Redo() (pending, legacy ChangeSet, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index+1 >= len(h.entries) {
		return nil, nil, false
	}
	h.index++
	s := h.entries[h.index]
	return s.pending.Clone(), s.legacy.Clone(), true
}

// Len returns the number of navigable snapshots.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Reset discards the whole history, as on a full data refresh or an
// explicit discard of all changes.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.entries = nil
	h.index = -1
}
