package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/folkops/opsboard/internal/registry"
)

// Column indices in registry.Orders() used by the scenarios below.
const (
	colOrderCode    = 0
	colCustomerName = 2
	colPhone        = 3
	colAddress      = 4
	colStatus       = 9
	colNote         = 13
)

type engineFixture struct {
	engine  *Engine
	store   *mockStore
	clock   *fakeClock
	local   *memLocal
	notices []Notice
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store: &mockStore{},
		clock: newFakeClock(),
		local: &memLocal{},
	}
	f.store.page = PageResult{
		Rows: []Row{
			{"order_code": "ORD-1", "customer_name": "Nguyễn Văn A", "phone": "0901", "address": "HCM", "delivery_status": "Đang Giao", "note": "ABC"},
			{"order_code": "ORD-2", "customer_name": "Trần Thị B", "phone": "0902", "address": "HN", "delivery_status": "Chờ Lấy Hàng", "note": ""},
			{"order_code": "ORD-3", "customer_name": "Lê Văn C", "phone": "0903", "address": "ĐN", "delivery_status": "Đang Giao", "note": ""},
		},
		Total: 3, Page: 1, TotalPages: 1,
	}

	eng, err := New(Config{
		Store:    f.store,
		Local:    f.local,
		Registry: registry.Orders(),
		Clock:    f.clock,
		Notify:   func(n Notice) { f.notices = append(f.notices, n) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.engine = eng
	if err := eng.Load(context.Background(), Query{Page: 1, PageSize: 50}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return f
}

func (f *engineFixture) selectRect(t *testing.T, from, to Pos) {
	t.Helper()
	f.engine.SelectCell(from)
	f.engine.DragTo(to)
	f.engine.ReleaseSelection()
}

func TestEngineSingleEditAutoFlush(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.engine.SetCellAt(0, colStatus, registry.StatusDelivered); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	if f.engine.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", f.engine.PendingCount())
	}

	f.clock.Advance(DefaultFlushDelay)

	calls := f.store.singleCalls()
	if len(calls) != 1 {
		t.Fatalf("single-cell calls = %d, want 1", len(calls))
	}
	want := cellCall{"ORD-1", "delivery_status", registry.StatusDelivered}
	if calls[0] != want {
		t.Fatalf("call = %+v, want %+v", calls[0], want)
	}
	if f.engine.PendingCount() != 0 {
		t.Fatalf("pending map not empty after flush: %d", f.engine.PendingCount())
	}
	// Committed value patched into the row cache.
	if got := f.engine.DisplayValueAt(0, colStatus); got != registry.StatusDelivered {
		t.Fatalf("display = %q", got)
	}
}

func TestEngineBulkPaste2x3(t *testing.T) {
	f := newEngineFixture(t)
	f.selectRect(t, Pos{0, colCustomerName}, Pos{1, colPhone})

	applied, err := f.engine.Paste(context.Background(), "a\tb\tc\nd\te\tf")
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if applied != 6 {
		t.Fatalf("applied = %d, want 6", applied)
	}

	batches := f.store.batches()
	if len(batches) != 1 {
		t.Fatalf("batch calls = %d, want exactly 1 forced bulk write", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Fatalf("batch rows = %d, want 2", len(batches[0]))
	}
	for _, patch := range batches[0] {
		if len(patch.Values) != 3 {
			t.Fatalf("patch %s has %d columns, want 3", patch.Key, len(patch.Values))
		}
	}
	if len(f.store.singleCalls()) != 0 {
		t.Fatal("paste must never use the single-cell path")
	}
	if f.engine.PendingCount() != 0 {
		t.Fatalf("pending after successful paste flush = %d", f.engine.PendingCount())
	}
}

func TestEngineFloodFillSkipsReadOnly(t *testing.T) {
	f := newEngineFixture(t)
	// Rectangle covering the read-only code column and an editable one.
	f.selectRect(t, Pos{0, colOrderCode}, Pos{2, 1})
	f.store.setErrors(nil, errors.New("hold the flush"))

	applied, err := f.engine.Paste(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	// 3 rows x 2 cols = 6 cells, 3 of them read-only: skipped, not errored.
	if applied != 3 {
		t.Fatalf("applied = %d, want 3", applied)
	}
	if f.engine.PendingCount() != 3 {
		t.Fatalf("pending = %d, want 3", f.engine.PendingCount())
	}
}

func TestEngineCopyPasteRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	f.selectRect(t, Pos{0, colCustomerName}, Pos{2, colAddress})

	before := make(map[[2]int]string)
	for r := 0; r <= 2; r++ {
		for c := colCustomerName; c <= colAddress; c++ {
			before[[2]int{r, c}] = f.engine.DisplayValueAt(r, c)
		}
	}

	text, err := f.engine.Copy()
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := f.engine.Paste(context.Background(), text); err != nil {
		t.Fatalf("Paste: %v", err)
	}

	for pos, want := range before {
		if got := f.engine.DisplayValueAt(pos[0], pos[1]); got != want {
			t.Fatalf("cell %v = %q, want %q", pos, got, want)
		}
	}
}

func TestEngineDeleteTriggersForcedBulk(t *testing.T) {
	f := newEngineFixture(t)

	// Clearing the previously non-empty note on ORD-1.
	if err := f.engine.SetCellAt(0, colNote, ""); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	f.clock.Advance(DefaultFlushDelay)

	if len(f.store.singleCalls()) != 0 {
		t.Fatal("delete must flush through the batch path")
	}
	batches := f.store.batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %+v", batches)
	}
	if got := batches[0][0].Values["note"]; got != "" {
		t.Fatalf("flushed value = %q, want empty", got)
	}
}

func TestEngineFailedWritePreservesEditThenApplyAll(t *testing.T) {
	f := newEngineFixture(t)
	f.store.setErrors(errors.New("db down"), errors.New("db down"))

	if err := f.engine.SetCellAt(0, colPhone, "0999"); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	f.clock.Advance(DefaultFlushDelay)

	// The edit survives, visibly pending.
	if !f.engine.CellDirty(0, colPhone) {
		t.Fatal("failed write lost the pending edit")
	}
	if got := f.engine.DisplayValueAt(0, colPhone); got != "0999" {
		t.Fatalf("display = %q", got)
	}
	sawError := false
	for _, n := range f.notices {
		if n.Level == NoticeError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("failure was not surfaced")
	}

	// Manual Apply All retries and clears on success.
	f.store.setErrors(nil, nil)
	if err := f.engine.ApplyAll(context.Background()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if f.engine.CellDirty(0, colPhone) {
		t.Fatal("pending entry not cleared after successful retry")
	}
	saved, _ := f.local.LoadChanges()
	if !saved.Empty() {
		t.Fatal("local change store not wiped by Apply All")
	}
}

func TestEngineRevertCancelsQueuedWrite(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.engine.SetCellAt(0, colPhone, "0999"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.SetCellAt(0, colPhone, "0901"); err != nil { // back to the raw value
		t.Fatal(err)
	}
	f.clock.Advance(DefaultFlushDelay * 2)

	if len(f.store.singleCalls()) != 0 || len(f.store.batches()) != 0 {
		t.Fatal("reverted edit still reached the remote store")
	}
	if f.engine.PendingCount() != 0 {
		t.Fatalf("pending = %d", f.engine.PendingCount())
	}
}

func TestEngineUndoRedo(t *testing.T) {
	f := newEngineFixture(t)
	f.store.setErrors(errors.New("offline"), errors.New("offline"))

	f.engine.SetCellAt(0, colNote, "một")
	f.clock.Advance(DefaultHistoryDelay)
	f.engine.SetCellAt(1, colNote, "hai")
	f.clock.Advance(DefaultHistoryDelay)

	f.engine.Undo()
	if got := f.engine.DisplayValueAt(1, colNote); got != "" {
		t.Fatalf("after undo, cell = %q", got)
	}
	if got := f.engine.DisplayValueAt(0, colNote); got != "một" {
		t.Fatalf("first edit lost: %q", got)
	}

	f.engine.Undo()
	if f.engine.PendingCount() != 0 {
		t.Fatal("overlay not fully reverted")
	}

	f.engine.Redo()
	f.engine.Redo()
	if got := f.engine.DisplayValueAt(1, colNote); got != "hai" {
		t.Fatalf("redo lost state: %q", got)
	}
}

func TestEngineUndoInsideDebounceCancelsQueuedWrite(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.engine.SetCellAt(0, colNote, "sửa nhầm"); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	f.engine.Undo()

	if got := f.engine.DisplayValueAt(0, colNote); got != "ABC" {
		t.Fatalf("after undo, cell = %q, want original", got)
	}

	f.clock.Advance(DefaultFlushDelay)

	if n := len(f.store.singleCalls()); n != 0 {
		t.Fatalf("single-cell calls = %d, want 0", n)
	}
	if n := len(f.store.batches()); n != 0 {
		t.Fatalf("batch calls = %d, want 0", n)
	}
	if got := f.engine.DisplayValueAt(0, colNote); got != "ABC" {
		t.Fatalf("undone value resurfaced: %q", got)
	}
}

func TestEngineUndoRebuildsQueueFromSnapshot(t *testing.T) {
	store := &mockStore{}
	store.page = PageResult{
		Rows:  []Row{{"order_code": "ORD-1", "note": "ABC"}},
		Total: 1, Page: 1, TotalPages: 1,
	}
	clock := newFakeClock()
	eng, err := New(Config{
		Store:    store,
		Local:    &memLocal{},
		Registry: registry.Orders(),
		Clock:    clock,
		// Flush after the history debounce so both snapshots land
		// before any write fires.
		FlushDelay: 2 * DefaultHistoryDelay,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Load(context.Background(), Query{Page: 1, PageSize: 50}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := eng.SetCellAt(0, colNote, "một"); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	clock.Advance(DefaultHistoryDelay)
	if err := eng.SetCellAt(0, colNote, "hai"); err != nil {
		t.Fatalf("SetCellAt: %v", err)
	}
	clock.Advance(DefaultHistoryDelay)

	eng.Undo()
	if got := eng.DisplayValueAt(0, colNote); got != "một" {
		t.Fatalf("after undo, cell = %q, want first edit", got)
	}

	clock.Advance(2 * DefaultHistoryDelay)

	calls := store.singleCalls()
	if len(calls) != 1 {
		t.Fatalf("single-cell calls = %d, want 1", len(calls))
	}
	want := cellCall{"ORD-1", "note", "một"}
	if calls[0] != want {
		t.Fatalf("call = %+v, want %+v", calls[0], want)
	}
	if n := len(store.batches()); n != 0 {
		t.Fatalf("batch calls = %d, want 0", n)
	}
}

func TestEngineLoadFailureKeepsStaleCache(t *testing.T) {
	f := newEngineFixture(t)
	f.store.mu.Lock()
	f.store.fetchErr = errors.New("timeout")
	f.store.mu.Unlock()

	if err := f.engine.Load(context.Background(), Query{Page: 2}); err == nil {
		t.Fatal("expected a fetch error")
	}
	if f.engine.RowCount() != 3 {
		t.Fatalf("stale cache overwritten: %d rows", f.engine.RowCount())
	}
}

func TestEngineRestoresLegacyChangesFromLocalStore(t *testing.T) {
	local := &memLocal{}
	local.SaveChanges(ChangeSet{
		"ORD-2": {"note": {New: "khách hẹn giao chiều", Original: ""}},
	})

	store := &mockStore{}
	store.page = PageResult{
		Rows:  []Row{{"order_code": "ORD-2", "note": ""}},
		Total: 1, Page: 1, TotalPages: 1,
	}

	eng, err := New(Config{
		Store:    store,
		Local:    local,
		Registry: registry.Orders(),
		Clock:    newFakeClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Load(context.Background(), Query{}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := eng.DisplayValueAt(0, colNote); got != "khách hẹn giao chiều" {
		t.Fatalf("legacy change not restored: %q", got)
	}
}

func TestEngineCorruptLocalStoreTreatedAsEmpty(t *testing.T) {
	local := &memLocal{loadErr: errors.New("invalid character 'x'")}
	store := &mockStore{}
	store.page = PageResult{Rows: []Row{{"order_code": "ORD-1"}}, Total: 1, Page: 1, TotalPages: 1}

	eng, err := New(Config{
		Store:    store,
		Local:    local,
		Registry: registry.Orders(),
		Clock:    newFakeClock(),
	})
	if err != nil {
		t.Fatalf("corrupt local data must not block construction: %v", err)
	}
	if eng.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", eng.PendingCount())
	}
}
