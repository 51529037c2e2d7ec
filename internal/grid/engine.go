package grid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/registry"
)

// NoticeLevel grades a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient user-facing message, the toast equivalent. Remote
// failures surface here; nothing propagates uncaught into the render loop.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Query selects one page of order rows.
type Query struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	Team         string
	Status       string
	Markets      []string
	Products     []string
	DateFrom     string
	DateTo       string
	AllowedStaff []string
}

// PageResult is one fetched page.
type PageResult struct {
	Rows       []Row `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

// RemoteStore is the engine's view of the backend: paginated filtered row
// fetch plus the two write operations the queue drains into.
type RemoteStore interface {
	FetchPage(ctx context.Context, q Query) (*PageResult, error)
	Flusher
}

// LocalStore persists the merged change map durably so an accidental
// restart does not silently lose unflushed edits.
type LocalStore interface {
	SaveChanges(cs ChangeSet) error
	LoadChanges() (ChangeSet, error)
	ClearChanges() error
}

// ErrNoSelection is returned by clipboard operations without a selection.
var ErrNoSelection = errors.New("no selection")

// Config wires an Engine. Store and Registry are required; everything else
// has working defaults.
type Config struct {
	Store         RemoteStore
	Local         LocalStore
	Registry      *registry.Registry
	Clock         Clock
	Logger        *zap.Logger
	Notify        func(Notice)
	FlushDelay    time.Duration
	HistoryDelay  time.Duration
	HistoryLimit  int
	BulkThreshold int

	// Columns narrows the visible columns to these registry keys, in
	// this order. Empty means the full registry; unknown keys are
	// dropped.
	Columns []string
}

// Engine owns the in-memory row cache, the uncommitted-edit overlay, the
// write queue, the selection and the undo history for one grid view. All
// mutation happens through its methods; callbacks from timers synchronise
// on the same mutex.
type Engine struct {
	mu sync.Mutex

	store   RemoteStore
	local   LocalStore
	reg     *registry.Registry
	cols    []registry.Column
	logger  *zap.Logger
	notify  func(Notice)
	clock   Clock
	overlay *Overlay
	queue   *WriteQueue
	history *History
	sel     *Selection

	rows       []Row
	rowIndex   map[string]int
	total      int64
	page       int
	totalPages int

	copied *Rect
}

// New builds an engine and restores any changes left behind by an earlier
// session from local storage. Corrupt local data is logged and treated as
// no pending changes.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("grid: remote store is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("grid: column registry is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Notify == nil {
		cfg.Notify = func(Notice) {}
	}

	e := &Engine{
		store:    cfg.Store,
		local:    cfg.Local,
		reg:      cfg.Registry,
		cols:     visibleColumns(cfg.Registry, cfg.Columns),
		logger:   cfg.Logger,
		notify:   cfg.Notify,
		clock:    cfg.Clock,
		overlay:  NewOverlay(),
		sel:      NewSelection(),
		rowIndex: make(map[string]int),
	}
	e.queue = NewWriteQueue(cfg.Store, cfg.Clock, cfg.FlushDelay, cfg.BulkThreshold, e.onFlushResult)
	e.history = NewHistory(e.snapshotOverlay, cfg.Clock, cfg.HistoryDelay, cfg.HistoryLimit)

	if cfg.Local != nil {
		restored, err := cfg.Local.LoadChanges()
		if err != nil {
			e.logger.Warn("discarding unreadable local change data", zap.Error(err))
		} else if !restored.Empty() {
			e.overlay.RestoreLegacy(restored)
			e.logger.Info("restored unflushed changes from local storage",
				zap.Int("cells", restored.Count()))
		}
	}
	return e, nil
}

func (e *Engine) snapshotOverlay() (ChangeSet, ChangeSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay.Snapshot()
}

// Load fetches one page of rows. On failure the previous cache is kept
// untouched, never partially overwritten. A successful load resets the
// selection and the undo history; the overlay survives since it is keyed
// by primary key, not row position.
func (e *Engine) Load(ctx context.Context, q Query) error {
	page, err := e.store.FetchPage(ctx, q)
	if err != nil {
		e.notify(Notice{NoticeError, fmt.Sprintf("Không tải được dữ liệu: %v", err)})
		return fmt.Errorf("fetch page: %w", err)
	}

	e.mu.Lock()
	e.rows = page.Rows
	e.total = page.Total
	e.page = page.Page
	e.totalPages = page.TotalPages
	e.rowIndex = make(map[string]int, len(page.Rows))
	pk := e.reg.PrimaryKey()
	for i, row := range page.Rows {
		e.rowIndex[CoerceString(row[pk])] = i
	}
	e.sel.Clear()
	e.mu.Unlock()

	e.history.Reset()
	return nil
}

// RowCount returns the number of rows on the current page.
func (e *Engine) RowCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rows)
}

// visibleColumns resolves a stored key list against the registry. Keys
// that no longer resolve are dropped; when nothing resolves the full
// registry is shown rather than an empty grid.
func visibleColumns(reg *registry.Registry, keys []string) []registry.Column {
	cols := make([]registry.Column, 0, len(keys))
	for _, key := range keys {
		if col, ok := reg.Resolve(key); ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return reg.Columns()
	}
	return cols
}

// ColumnCount returns the number of visible columns.
func (e *Engine) ColumnCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cols)
}

// Columns returns the visible column descriptors in display order.
func (e *Engine) Columns() []registry.Column {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]registry.Column, len(e.cols))
	copy(out, e.cols)
	return out
}

// VisibleColumnKeys returns the registry keys of the visible columns,
// in display order, as persisted between sessions.
func (e *Engine) VisibleColumnKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, len(e.cols))
	for i, col := range e.cols {
		keys[i] = col.Key
	}
	return keys
}

// SetVisibleColumns replaces the visible column set. The selection is
// cleared since column indices shift; overlay state is untouched, it is
// keyed by column key, not position.
func (e *Engine) SetVisibleColumns(keys []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cols = visibleColumns(e.reg, keys)
	e.sel.Clear()
}

// PageInfo returns pagination state from the last successful load.
func (e *Engine) PageInfo() (page, totalPages int, total int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page, e.totalPages, e.total
}

// rawValue returns the un-overlaid row value. Callers hold e.mu.
func (e *Engine) rawValue(rowIdx int, colKey string) string {
	return CoerceString(e.rows[rowIdx][colKey])
}

func (e *Engine) rowKeyAt(rowIdx int) string {
	return e.rawValue(rowIdx, e.reg.PrimaryKey())
}

// DisplayValueAt returns the value shown in a cell: pending over legacy
// over the raw fetched value.
func (e *Engine) DisplayValueAt(rowIdx, colIdx int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayValueLocked(rowIdx, colIdx)
}

func (e *Engine) displayValueLocked(rowIdx, colIdx int) string {
	if rowIdx < 0 || rowIdx >= len(e.rows) || colIdx < 0 || colIdx >= len(e.cols) {
		return ""
	}
	colKey := e.cols[colIdx].Key
	if v, ok := e.overlay.Lookup(e.rowKeyAt(rowIdx), colKey); ok {
		return v
	}
	return e.rawValue(rowIdx, colKey)
}

// CellDirty reports whether a cell holds an uncommitted change, used to
// highlight still-needs-flush state.
func (e *Engine) CellDirty(rowIdx, colIdx int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rowIdx < 0 || rowIdx >= len(e.rows) || colIdx < 0 || colIdx >= len(e.cols) {
		return false
	}
	_, ok := e.overlay.Lookup(e.rowKeyAt(rowIdx), e.cols[colIdx].Key)
	return ok
}

// PendingCount returns the number of distinct uncommitted cell changes.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay.Count()
}

// SetCellAt applies one edit through the overlay contract: the original is
// the raw fetched value, reverts delete the entry, and every successful
// set persists the merged map locally and feeds the write queue.
func (e *Engine) SetCellAt(rowIdx, colIdx int, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setCellLocked(rowIdx, colIdx, value, true)
}

func (e *Engine) setCellLocked(rowIdx, colIdx int, value string, validate bool) error {
	if rowIdx < 0 || rowIdx >= len(e.rows) {
		return fmt.Errorf("row %d out of range", rowIdx)
	}
	if colIdx < 0 || colIdx >= len(e.cols) {
		return fmt.Errorf("column %d out of range", colIdx)
	}
	col := e.cols[colIdx]
	if !col.Editable {
		return fmt.Errorf("column %q is read-only", col.Label)
	}
	if validate && !e.reg.ValidValue(col.Key, value) {
		return fmt.Errorf("%q is not a valid value for %q", value, col.Label)
	}

	rowKey := e.rowKeyAt(rowIdx)
	original := e.rawValue(rowIdx, col.Key)
	if kept := e.overlay.Set(rowKey, col.Key, value, original); kept {
		e.queue.Add(rowKey, col.Key, CellChange{New: value, Original: original})
	} else {
		e.queue.Remove(rowKey, col.Key)
	}

	e.persistLocalLocked()
	e.history.Record()
	return nil
}

func (e *Engine) persistLocalLocked() {
	if e.local == nil {
		return
	}
	if err := e.local.SaveChanges(e.overlay.Merged()); err != nil {
		e.logger.Warn("persisting local change data failed", zap.Error(err))
	}
}

// Copy serialises the current selection as TSV and remembers the copied
// rectangle. The caller writes the payload to the system clipboard.
func (e *Engine) Copy() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rect, ok := e.sel.Rect()
	if !ok {
		return "", ErrNoSelection
	}
	e.copied = &rect
	return EncodeTSV(rect, e.displayValueLocked), nil
}

// Paste distributes clipboard text into the grid from the selection's
// top-left corner. A single-cell payload over a multi-cell selection flood
// fills every editable cell of the rectangle; otherwise cells map by
// offset and anything past the page or column edge is silently dropped.
// Non-editable columns are skipped, never an error. The aggregate flushes
// as one forced bulk write regardless of how many cells changed.
func (e *Engine) Paste(ctx context.Context, text string) (int, error) {
	e.mu.Lock()
	rect, ok := e.sel.Rect()
	if !ok {
		e.mu.Unlock()
		return 0, ErrNoSelection
	}

	cells := ParseTSV(text)
	applied := 0

	if IsSingleCell(cells) && rect.Cells() > 1 {
		value := cells[0][0]
		for row := rect.MinRow; row <= rect.MaxRow && row < len(e.rows); row++ {
			for col := rect.MinCol; col <= rect.MaxCol && col < len(e.cols); col++ {
				if !e.cols[col].Editable {
					continue
				}
				if err := e.setCellLocked(row, col, value, false); err == nil {
					applied++
				}
			}
		}
	} else {
		for dr, line := range cells {
			row := rect.MinRow + dr
			if row >= len(e.rows) {
				break
			}
			for dc, value := range line {
				col := rect.MinCol + dc
				if col >= len(e.cols) {
					break
				}
				if !e.cols[col].Editable {
					continue
				}
				if err := e.setCellLocked(row, col, value, false); err == nil {
					applied++
				}
			}
		}
	}
	e.mu.Unlock()

	if applied > 0 {
		e.queue.ForceFlush(ctx)
	}
	return applied, nil
}

// Undo steps the overlay back one history snapshot. Past the earliest
// snapshot the overlay reverts fully to the remote state; with nothing
// left at all the user is told so. The write queue is rebuilt to match
// the restored overlay, so an edit undone inside its debounce window
// never reaches the remote store. Writes that already flushed are not
// cancelled: undoing a flushed value requires a fresh edit.
func (e *Engine) Undo() {
	pending, legacy, ok := e.history.Undo()
	e.mu.Lock()
	defer e.mu.Unlock()
	if !ok {
		if e.overlay.HasChanges() {
			e.overlay.ClearAll()
			e.queue.Clear()
			e.persistLocalLocked()
			e.notify(Notice{NoticeInfo, "Đã hoàn tác toàn bộ thay đổi"})
			return
		}
		e.notify(Notice{NoticeInfo, "Không có gì để hoàn tác"})
		return
	}
	e.overlay.Restore(pending, legacy)
	e.queue.Rebuild(pending)
	e.persistLocalLocked()
}

// Redo steps the overlay forward one history snapshot, rebuilding the
// write queue the same way Undo does.
func (e *Engine) Redo() {
	pending, legacy, ok := e.history.Redo()
	if !ok {
		e.notify(Notice{NoticeInfo, "Không có gì để làm lại"})
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlay.Restore(pending, legacy)
	e.queue.Rebuild(pending)
	e.persistLocalLocked()
}

// ApplyAll flushes the full merged legacy+pending map in one batch write,
// regardless of debounce state. On success both stores clear and the local
// copy is wiped; on failure every edit stays, visibly pending, for another
// attempt.
func (e *Engine) ApplyAll(ctx context.Context) error {
	e.mu.Lock()
	merged := e.overlay.Merged()
	if merged.Empty() {
		e.mu.Unlock()
		e.notify(Notice{NoticeInfo, "Không có thay đổi nào để lưu"})
		return nil
	}
	e.queue.Clear()
	patches := patchesFromChanges(merged)
	e.mu.Unlock()

	result, err := e.store.UpdateBatch(ctx, patches)
	if err != nil {
		e.notify(Notice{NoticeError, fmt.Sprintf("Lưu thất bại: %v", err)})
		return fmt.Errorf("apply all: %w", err)
	}

	e.mu.Lock()
	e.patchRowsLocked(patches)
	e.overlay.ClearAll()
	if e.local != nil {
		if err := e.local.ClearChanges(); err != nil {
			e.logger.Warn("clearing local change data failed", zap.Error(err))
		}
	}
	e.mu.Unlock()

	e.notify(Notice{NoticeSuccess, fmt.Sprintf("Đã lưu %d dòng", result.Updated)})
	return nil
}

// DiscardAll drops every uncommitted change, the queue, the history and
// the local copy. An already-sent write is not aborted; only local state
// clears.
func (e *Engine) DiscardAll() {
	e.mu.Lock()
	e.overlay.ClearAll()
	e.queue.Clear()
	if e.local != nil {
		if err := e.local.ClearChanges(); err != nil {
			e.logger.Warn("clearing local change data failed", zap.Error(err))
		}
	}
	e.mu.Unlock()
	e.history.Reset()
	e.notify(Notice{NoticeInfo, "Đã hủy toàn bộ thay đổi"})
}

// onFlushResult reconciles a queue drain: successful writes patch the row
// cache and clear their overlay entries, failed ones leave the overlay
// untouched so the edit is never silently lost.
func (e *Engine) onFlushResult(res FlushResult) {
	if res.Err != nil {
		e.logger.Warn("flush failed",
			zap.Int("rows", len(res.Patches)), zap.Error(res.Err))
		e.notify(Notice{NoticeError, fmt.Sprintf("Ghi dữ liệu thất bại: %v", res.Err)})
		return
	}

	e.mu.Lock()
	e.patchRowsLocked(res.Patches)
	for _, patch := range res.Patches {
		for colKey, value := range patch.Values {
			if current, ok := e.overlay.Lookup(patch.Key, colKey); ok && current == value {
				e.overlay.ClearCell(patch.Key, colKey)
			}
		}
	}
	e.persistLocalLocked()
	e.mu.Unlock()

	if res.Single {
		e.notify(Notice{NoticeSuccess, "Đã lưu thay đổi"})
	} else {
		e.notify(Notice{NoticeSuccess, fmt.Sprintf("Đã lưu %d dòng", len(res.Patches))})
	}
}

// patchRowsLocked writes committed values into the row cache.
func (e *Engine) patchRowsLocked(patches []RowPatch) {
	for _, patch := range patches {
		idx, ok := e.rowIndex[patch.Key]
		if !ok {
			continue
		}
		for colKey, value := range patch.Values {
			e.rows[idx][colKey] = value
		}
	}
}

func patchesFromChanges(cs ChangeSet) []RowPatch {
	keys := make([]string, 0, len(cs))
	for rowKey := range cs {
		keys = append(keys, rowKey)
	}
	sort.Strings(keys)

	patches := make([]RowPatch, 0, len(keys))
	for _, rowKey := range keys {
		values := make(map[string]string, len(cs[rowKey]))
		for colKey, change := range cs[rowKey] {
			values[colKey] = change.New
		}
		patches = append(patches, RowPatch{Key: rowKey, Values: values})
	}
	return patches
}

// Selection operations. Bounds clamp to the current page.

// SelectCell starts a fresh selection at the given cell.
func (e *Engine) SelectCell(p Pos) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rows) == 0 || len(e.cols) == 0 {
		return
	}
	p.Row = clamp(p.Row, 0, len(e.rows)-1)
	p.Col = clamp(p.Col, 0, len(e.cols)-1)
	e.sel.Start(p)
}

// DragTo extends the selection while a drag is in progress.
func (e *Engine) DragTo(p Pos) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rows) == 0 || len(e.cols) == 0 {
		return
	}
	p.Row = clamp(p.Row, 0, len(e.rows)-1)
	p.Col = clamp(p.Col, 0, len(e.cols)-1)
	e.sel.DragTo(p)
}

// ReleaseSelection ends a drag wherever the pointer is.
func (e *Engine) ReleaseSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Release()
}

// MoveSelection shifts the active corner, collapsing to a single cell
// unless extend is set.
func (e *Engine) MoveSelection(dRow, dCol int, extend bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rows) == 0 || len(e.cols) == 0 {
		return
	}
	e.sel.Move(dRow, dCol, extend, len(e.rows)-1, len(e.cols)-1)
}

// SelectAll covers every visible cell.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.SelectAll(len(e.rows)-1, len(e.cols)-1)
}

// CollapseSelection shrinks a multi-cell rectangle to its active cell.
func (e *Engine) CollapseSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Collapse()
}

// SelectionRect returns the normalized selection, if any.
func (e *Engine) SelectionRect() (Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Rect()
}

// ActiveCell returns the active corner of the selection.
func (e *Engine) ActiveCell() (Pos, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Active()
}
