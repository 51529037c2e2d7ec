package grid

import (
	"context"
	"sort"
	"sync"
	"time"
)

// fakeClock drives queue and history timers deterministically.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		sort.SliceStable(c.timers, func(i, j int) bool {
			return c.timers[i].when.Before(c.timers[j].when)
		})
		for _, t := range c.timers {
			if !t.stopped && !t.when.After(c.now) {
				due = t
				break
			}
		}
		if due != nil {
			due.stopped = true
		}
		c.mu.Unlock()
		if due == nil {
			return
		}
		due.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = false
	t.when = t.clock.now.Add(d)
	return was
}

type cellCall struct {
	rowKey, colKey, value string
}

// mockStore records write calls and serves canned pages.
type mockStore struct {
	mu         sync.Mutex
	page       PageResult
	fetchErr   error
	cellErr    error
	batchErr   error
	cellCalls  []cellCall
	batchCalls [][]RowPatch
}

func (m *mockStore) FetchPage(ctx context.Context, q Query) (*PageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	page := m.page
	return &page, nil
}

func (m *mockStore) UpdateCell(ctx context.Context, rowKey, colKey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cellErr != nil {
		return m.cellErr
	}
	m.cellCalls = append(m.cellCalls, cellCall{rowKey, colKey, value})
	return nil
}

func (m *mockStore) UpdateBatch(ctx context.Context, patches []RowPatch) (BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return BatchResult{}, m.batchErr
	}
	cloned := make([]RowPatch, len(patches))
	copy(cloned, patches)
	m.batchCalls = append(m.batchCalls, cloned)
	return BatchResult{Updated: len(patches)}, nil
}

func (m *mockStore) singleCalls() []cellCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cellCall, len(m.cellCalls))
	copy(out, m.cellCalls)
	return out
}

func (m *mockStore) batches() [][]RowPatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]RowPatch, len(m.batchCalls))
	copy(out, m.batchCalls)
	return out
}

func (m *mockStore) setErrors(cellErr, batchErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cellErr = cellErr
	m.batchErr = batchErr
}

// memLocal is an in-memory LocalStore.
type memLocal struct {
	mu      sync.Mutex
	saved   ChangeSet
	loadErr error
}

func (l *memLocal) SaveChanges(cs ChangeSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saved = cs.Clone()
	return nil
}

func (l *memLocal) LoadChanges() (ChangeSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	if l.saved == nil {
		return make(ChangeSet), nil
	}
	return l.saved.Clone(), nil
}

func (l *memLocal) ClearChanges() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saved = make(ChangeSet)
	return nil
}
