package grid

import (
	"context"
	"sync"
	"time"
)

// DefaultFlushDelay is how long a row's debounce timer waits after its
// latest edit before the queue drains.
const DefaultFlushDelay = 500 * time.Millisecond

// DefaultBulkThreshold is the number of distinct queued cell changes at
// which a drain escalates to the batch-write path. The single-cell fast
// path is taken only below it, and only when exactly one row holds exactly
// one change with no delete involved.
const DefaultBulkThreshold = 2

// Flusher performs the remote writes the queue drains into.
type Flusher interface {
	UpdateCell(ctx context.Context, rowKey, colKey, value string) error
	UpdateBatch(ctx context.Context, patches []RowPatch) (BatchResult, error)
}

// FlushResult reports one drain of the queue, successful or not. Patches
// always describe what was attempted so the caller can reconcile its
// overlay and row cache.
type FlushResult struct {
	Patches []RowPatch
	Single  bool
	Updated int
	Err     error
}

type queueEntry struct {
	changes map[string]CellChange
	timer   Timer
}

// hasDelete reports whether any queued change clears a previously
// non-empty value. Deletes always force the bulk path.
func (e *queueEntry) hasDelete() bool {
	for _, change := range e.changes {
		if change.New == "" && change.Original != "" {
			return true
		}
	}
	return false
}

// WriteQueue coalesces rapid cell edits into a minimal number of remote
// writes. Each row keeps its own debounce timer, reset on every new edit
// to that row; when any timer fires the whole queue drains. Failed drains
// are not re-queued: the overlay still holds the edits and the user
// retries via Apply All.
type WriteQueue struct {
	mu            sync.Mutex
	clock         Clock
	delay         time.Duration
	bulkThreshold int
	flusher       Flusher
	onResult      func(FlushResult)
	entries       map[string]*queueEntry
}

// NewWriteQueue builds a queue. onResult is invoked synchronously after
// every drain, including failed ones; it may be nil.
func NewWriteQueue(flusher Flusher, clock Clock, delay time.Duration, bulkThreshold int, onResult func(FlushResult)) *WriteQueue {
	if clock == nil {
		clock = SystemClock()
	}
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	if bulkThreshold <= 0 {
		bulkThreshold = DefaultBulkThreshold
	}
	return &WriteQueue{
		clock:         clock,
		delay:         delay,
		bulkThreshold: bulkThreshold,
		flusher:       flusher,
		onResult:      onResult,
		entries:       make(map[string]*queueEntry),
	}
}

// Add queues one cell change and resets the row's debounce timer. A later
// Add for the same cell overwrites the earlier change; only the final
// overlay state at flush time is ever persisted.
func (q *WriteQueue) Add(rowKey, colKey string, change CellChange) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[rowKey]
	if !ok {
		entry = &queueEntry{changes: make(map[string]CellChange)}
		q.entries[rowKey] = entry
	}
	entry.changes[colKey] = change

	if entry.timer != nil {
		entry.timer.Reset(q.delay)
		return
	}
	entry.timer = q.clock.AfterFunc(q.delay, func() {
		q.Flush(context.Background())
	})
}

// Remove drops a queued change whose overlay entry was reverted before the
// flush fired. An emptied row entry is discarded and its timer stopped.
func (q *WriteQueue) Remove(rowKey, colKey string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[rowKey]
	if !ok {
		return
	}
	delete(entry.changes, colKey)
	if len(entry.changes) == 0 {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(q.entries, rowKey)
	}
}

// Pending returns the number of distinct queued cell changes.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, entry := range q.entries {
		n += len(entry.changes)
	}
	return n
}

// Clear drops everything without flushing, stopping all timers.
func (q *WriteQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	q.entries = make(map[string]*queueEntry)
}

// Rebuild replaces the queued changes with the pending half of a restored
// overlay snapshot. Each restored change gets a fresh debounce window;
// changes the snapshot no longer holds are dropped rather than flushed.
func (q *WriteQueue) Rebuild(pending ChangeSet) {
	q.Clear()
	for rowKey, cols := range pending {
		for colKey, change := range cols {
			q.Add(rowKey, colKey, change)
		}
	}
}

// Flush drains the whole queue now. The single-cell write is used only
// when exactly one row holds exactly one change below the bulk threshold
// and nothing was deleted; everything else goes through the batch write.
func (q *WriteQueue) Flush(ctx context.Context) {
	q.flush(ctx, false)
}

// ForceFlush drains the whole queue through the batch write regardless of
// size. Paste is a bulk operation by definition, however many cells it
// touched.
func (q *WriteQueue) ForceFlush(ctx context.Context) {
	q.flush(ctx, true)
}

func (q *WriteQueue) flush(ctx context.Context, forceBulk bool) {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}

	drained := q.entries
	q.entries = make(map[string]*queueEntry)
	for _, entry := range drained {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	q.mu.Unlock()

	total := 0
	anyDelete := false
	patches := make([]RowPatch, 0, len(drained))
	for rowKey, entry := range drained {
		values := make(map[string]string, len(entry.changes))
		for colKey, change := range entry.changes {
			values[colKey] = change.New
		}
		patches = append(patches, RowPatch{Key: rowKey, Values: values})
		total += len(entry.changes)
		if entry.hasDelete() {
			anyDelete = true
		}
	}

	single := !forceBulk && !anyDelete && len(patches) == 1 && total == 1 && total < q.bulkThreshold

	result := FlushResult{Patches: patches, Single: single}
	if single {
		patch := patches[0]
		for colKey, value := range patch.Values {
			result.Err = q.flusher.UpdateCell(ctx, patch.Key, colKey, value)
		}
		if result.Err == nil {
			result.Updated = 1
		}
	} else {
		batch, err := q.flusher.UpdateBatch(ctx, patches)
		result.Updated = batch.Updated
		result.Err = err
	}

	if q.onResult != nil {
		q.onResult(result)
	}
}
