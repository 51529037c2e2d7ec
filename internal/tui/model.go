// Package tui is the terminal front-end for the orders sheet. It drives
// the grid engine with spreadsheet-style keys: rectangle selection,
// copy/paste, undo/redo and a deferred write queue.
package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/registry"
)

type mode int

const (
	modeNormal mode = iota
	modeEdit
)

const requestTimeout = 30 * time.Second

// columnsView names the column-set preference slot for the orders sheet.
const columnsView = "orders"

type noticeMsg grid.Notice

type loadedMsg struct{ err error }

type appliedMsg struct{ err error }

type pastedMsg struct {
	applied int
	err     error
}

// Model is the bubbletea model around one grid engine.
type Model struct {
	engine *grid.Engine
	reg    *registry.Registry
	logger *zap.Logger

	query    grid.Query
	pref     PageSizePref
	colsPref ColumnsPref
	notices  chan grid.Notice

	width   int
	height  int
	scrollX int
	scrollY int

	mode   mode
	input  textinput.Model
	notice *grid.Notice
}

// PageSizePref persists the rows-per-page preference between sessions.
type PageSizePref interface {
	SavePageSize(n int) error
}

// ColumnsPref persists the visible-column set per view between
// sessions.
type ColumnsPref interface {
	LoadColumns(view string) ([]string, error)
	SaveColumns(view string, keys []string) error
}

// Options configures the TUI model.
type Options struct {
	Store        grid.RemoteStore
	Local        grid.LocalStore
	Registry     *registry.Registry
	Logger       *zap.Logger
	PageSize     int
	PageSizePref PageSizePref
	ColumnsPref  ColumnsPref
	AllowedStaff []string
	FlushDelay   time.Duration
	Bulk         int
	HistoryLimit int
}

// New builds the model and its engine. The engine's notices are routed
// into the bubbletea loop.
func New(opts Options) (*Model, error) {
	notices := make(chan grid.Notice, 16)

	var columns []string
	if opts.ColumnsPref != nil {
		keys, err := opts.ColumnsPref.LoadColumns(columnsView)
		if err != nil && opts.Logger != nil {
			opts.Logger.Warn("ignoring unreadable column preference", zap.Error(err))
		} else {
			columns = keys
		}
	}

	engine, err := grid.New(grid.Config{
		Store:         opts.Store,
		Local:         opts.Local,
		Registry:      opts.Registry,
		Logger:        opts.Logger,
		FlushDelay:    opts.FlushDelay,
		BulkThreshold: opts.Bulk,
		HistoryLimit:  opts.HistoryLimit,
		Columns:       columns,
		Notify: func(n grid.Notice) {
			select {
			case notices <- n:
			default:
			}
		},
	})
	if err != nil {
		return nil, err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 512

	return &Model{
		engine:   engine,
		reg:      opts.Registry,
		logger:   opts.Logger,
		query:    grid.Query{Page: 1, PageSize: pageSize, AllowedStaff: opts.AllowedStaff},
		pref:     opts.PageSizePref,
		colsPref: opts.ColumnsPref,
		notices:  notices,
		input:    input,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.listenNotices())
}

func (m *Model) listenNotices() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.notices)
	}
}

func (m *Model) loadCmd() tea.Cmd {
	query := m.query
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loadedMsg{err: m.engine.Load(ctx, query)}
	}
}

func (m *Model) applyAllCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return appliedMsg{err: m.engine.ApplyAll(ctx)}
	}
}

func (m *Model) pasteCmd() tea.Cmd {
	return func() tea.Msg {
		text, err := clipboard.ReadAll()
		if err != nil {
			return pastedMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		applied, err := m.engine.Paste(ctx, text)
		return pastedMsg{applied: applied, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case noticeMsg:
		n := grid.Notice(msg)
		m.notice = &n
		return m, m.listenNotices()
	case loadedMsg, appliedMsg:
		return m, nil
	case pastedMsg:
		if msg.err != nil && msg.err != grid.ErrNoSelection {
			m.logger.Warn("paste failed", zap.Error(msg.err))
		}
		return m, nil
	case tea.KeyMsg:
		if m.mode == modeEdit {
			return m.updateEdit(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+q":
		return m, tea.Quit
	case "left", "h":
		m.engine.MoveSelection(0, -1, false)
	case "right", "l":
		m.engine.MoveSelection(0, 1, false)
	case "up", "k":
		m.engine.MoveSelection(-1, 0, false)
	case "down", "j":
		m.engine.MoveSelection(1, 0, false)
	case "shift+left":
		m.engine.MoveSelection(0, -1, true)
	case "shift+right":
		m.engine.MoveSelection(0, 1, true)
	case "shift+up":
		m.engine.MoveSelection(-1, 0, true)
	case "shift+down":
		m.engine.MoveSelection(1, 0, true)
	case "ctrl+a":
		m.engine.SelectAll()
	case "esc":
		m.engine.CollapseSelection()
	case "H":
		m.hideCurrentColumn()
	case "T":
		m.showAllColumns()
	case "enter":
		return m.beginEdit()
	case "backspace", "delete":
		m.clearSelectedCells()
	case "ctrl+c":
		if text, err := m.engine.Copy(); err == nil {
			clipboard.WriteAll(text)
		}
	case "ctrl+v":
		return m, m.pasteCmd()
	case "ctrl+z":
		m.engine.Undo()
	case "ctrl+y":
		m.engine.Redo()
	case "ctrl+s":
		return m, m.applyAllCmd()
	case "ctrl+x":
		m.engine.DiscardAll()
	case "ctrl+r":
		return m, m.loadCmd()
	case "n":
		page, totalPages, _ := m.engine.PageInfo()
		if page < totalPages {
			m.query.Page = page + 1
			return m, m.loadCmd()
		}
	case "p":
		page, _, _ := m.engine.PageInfo()
		if page > 1 {
			m.query.Page = page - 1
			return m, m.loadCmd()
		}
	case "+":
		return m.resizePage(m.query.PageSize + 10)
	case "-":
		return m.resizePage(m.query.PageSize - 10)
	}
	return m, nil
}

func (m *Model) resizePage(size int) (tea.Model, tea.Cmd) {
	if size < 10 || size > 500 {
		return m, nil
	}
	m.query.PageSize = size
	m.query.Page = 1
	if m.pref != nil {
		if err := m.pref.SavePageSize(size); err != nil {
			m.logger.Debug("save page size", zap.Error(err))
		}
	}
	return m, m.loadCmd()
}

// hideCurrentColumn removes the column under the cursor from view and
// persists the narrowed set. The last remaining column cannot be hidden.
func (m *Model) hideCurrentColumn() {
	pos, ok := m.engine.ActiveCell()
	if !ok {
		return
	}
	keys := m.engine.VisibleColumnKeys()
	if pos.Col >= len(keys) || len(keys) <= 1 {
		return
	}
	keys = append(keys[:pos.Col], keys[pos.Col+1:]...)
	m.engine.SetVisibleColumns(keys)
	m.saveColumns(keys)
}

// showAllColumns restores the full registry column set.
func (m *Model) showAllColumns() {
	keys := make([]string, 0, m.reg.Len())
	for _, col := range m.reg.Columns() {
		keys = append(keys, col.Key)
	}
	m.engine.SetVisibleColumns(keys)
	m.saveColumns(keys)
}

func (m *Model) saveColumns(keys []string) {
	if m.colsPref == nil {
		return
	}
	if err := m.colsPref.SaveColumns(columnsView, keys); err != nil {
		m.logger.Debug("save columns", zap.Error(err))
	}
}

func (m *Model) beginEdit() (tea.Model, tea.Cmd) {
	pos, ok := m.engine.ActiveCell()
	if !ok {
		return m, nil
	}
	cols := m.engine.Columns()
	if pos.Col >= len(cols) || !cols[pos.Col].Editable {
		return m, nil
	}
	m.mode = modeEdit
	m.input.SetValue(m.engine.DisplayValueAt(pos.Row, pos.Col))
	m.input.CursorEnd()
	m.input.Focus()
	return m, textinput.Blink
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.commitEdit()
		m.engine.MoveSelection(1, 0, false)
		return m, nil
	case "tab":
		m.commitEdit()
		m.engine.MoveSelection(0, 1, false)
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) commitEdit() {
	defer func() {
		m.mode = modeNormal
		m.input.Blur()
	}()
	pos, ok := m.engine.ActiveCell()
	if !ok {
		return
	}
	if err := m.engine.SetCellAt(pos.Row, pos.Col, m.input.Value()); err != nil {
		m.logger.Debug("edit rejected", zap.Error(err))
	}
}

func (m *Model) clearSelectedCells() {
	rect, ok := m.engine.SelectionRect()
	if !ok {
		return
	}
	cols := m.engine.Columns()
	for row := rect.MinRow; row <= rect.MaxRow; row++ {
		for col := rect.MinCol; col <= rect.MaxCol; col++ {
			if col >= len(cols) || !cols[col].Editable {
				continue
			}
			m.engine.SetCellAt(row, col, "")
		}
	}
}
