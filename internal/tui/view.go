package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/folkops/opsboard/internal/grid"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	selectStyle  = lipgloss.NewStyle().Background(lipgloss.Color("6")).Foreground(lipgloss.Color("0"))
	dirtyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const maxColWidth = 24

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Đơn Hàng"))
	if pending := m.engine.PendingCount(); pending > 0 {
		b.WriteString(dirtyStyle.Render(fmt.Sprintf("  %d ô chưa lưu", pending)))
	}
	b.WriteString("\n")

	cols := m.engine.Columns()
	if len(cols) == 0 || m.engine.RowCount() == 0 {
		b.WriteString(dimStyle.Render(" (không có dữ liệu)\n"))
		b.WriteString(m.statusLine())
		return b.String()
	}

	widths := m.columnWidths()
	dataHeight := m.height - 5
	if dataHeight < 1 {
		dataHeight = 1
	}

	active, hasActive := m.engine.ActiveCell()
	rect, hasRect := m.engine.SelectionRect()

	// keep the active cell in view
	if hasActive {
		if active.Row < m.scrollY {
			m.scrollY = active.Row
		}
		if active.Row >= m.scrollY+dataHeight {
			m.scrollY = active.Row - dataHeight + 1
		}
	}
	visStart, visEnd := m.visibleColRange(widths, active.Col)

	// header
	for ci := visStart; ci < visEnd; ci++ {
		w := widths[ci]
		label := cols[ci].Label
		if len([]rune(label)) > w {
			label = string([]rune(label)[:w-1]) + "."
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", w, label)))
		if ci < visEnd-1 {
			b.WriteString(dimStyle.Render("|"))
		}
	}
	b.WriteString("\n")

	endRow := m.scrollY + dataHeight
	if endRow > m.engine.RowCount() {
		endRow = m.engine.RowCount()
	}
	for ri := m.scrollY; ri < endRow; ri++ {
		for ci := visStart; ci < visEnd; ci++ {
			w := widths[ci]

			var display string
			if m.mode == modeEdit && hasActive && ri == active.Row && ci == active.Col {
				display = m.input.View()
			} else {
				display = m.engine.DisplayValueAt(ri, ci)
			}
			display = fitCell(display, w)
			cell := fmt.Sprintf(" %-*s ", w, display)

			pos := grid.Pos{Row: ri, Col: ci}
			switch {
			case hasActive && pos == active:
				b.WriteString(cursorStyle.Render(cell))
			case hasRect && rect.Contains(pos):
				b.WriteString(selectStyle.Render(cell))
			case m.engine.CellDirty(ri, ci):
				b.WriteString(dirtyStyle.Render(cell))
			default:
				b.WriteString(cell)
			}
			if ci < visEnd-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(" di chuyển: mũi tên  sửa: enter  copy/dán: ctrl+c/v  hoàn tác: ctrl+z  lưu hết: ctrl+s  ẩn/hiện cột: H/T  thoát: q"))
	return b.String()
}

func (m *Model) statusLine() string {
	page, totalPages, total := m.engine.PageInfo()
	status := statusStyle.Render(fmt.Sprintf(" trang %d/%d  tổng %d dòng", page, totalPages, total))
	if m.notice == nil {
		return status
	}
	switch m.notice.Level {
	case grid.NoticeError:
		return status + "  " + errorStyle.Render(m.notice.Message)
	case grid.NoticeSuccess:
		return status + "  " + successStyle.Render(m.notice.Message)
	default:
		return status + "  " + dimStyle.Render(m.notice.Message)
	}
}

func (m *Model) columnWidths() []int {
	cols := m.engine.Columns()
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len([]rune(c.Label))
		if widths[i] < 4 {
			widths[i] = 4
		}
	}
	sampleEnd := m.engine.RowCount()
	if sampleEnd > 100 {
		sampleEnd = 100
	}
	for ri := 0; ri < sampleEnd; ri++ {
		for ci := range cols {
			if n := len([]rune(m.engine.DisplayValueAt(ri, ci))); n > widths[ci] {
				widths[ci] = n
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}

func (m *Model) visibleColRange(widths []int, activeCol int) (int, int) {
	avail := m.width - 2
	start := m.scrollX
	if start >= len(widths) {
		start = 0
	}
	used := 0
	end := start
	for end < len(widths) {
		w := widths[end] + 3
		if used+w > avail && end > start {
			break
		}
		used += w
		end++
	}
	if activeCol >= end {
		end = activeCol + 1
		used = 0
		for i := end - 1; i >= 0; i-- {
			used += widths[i] + 3
			if used > avail {
				start = i + 1
				break
			}
			start = i
		}
	}
	if activeCol >= 0 && activeCol < start {
		start = activeCol
	}
	m.scrollX = start
	return start, end
}

func fitCell(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "."
	}
	return s
}
