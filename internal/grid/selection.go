package grid

// Pos is a cell position in visible, paginated row/column index space.
// Indices are only meaningful for the currently rendered page and column
// configuration.
type Pos struct {
	Row int
	Col int
}

// Rect is a normalized selection rectangle, inclusive on all edges.
type Rect struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Cells returns the number of cells covered.
func (r Rect) Cells() int {
	return (r.MaxRow - r.MinRow + 1) * (r.MaxCol - r.MinCol + 1)
}

// Contains reports whether p falls inside the rectangle.
func (r Rect) Contains(p Pos) bool {
	return p.Row >= r.MinRow && p.Row <= r.MaxRow && p.Col >= r.MinCol && p.Col <= r.MaxCol
}

// Selection tracks a single contiguous rectangular selection as an anchor
// plus an active corner. Mouse interaction is a two-state machine: a press
// starts selecting, drag moves the active corner, release anywhere ends
// the drag but keeps the rectangle.
type Selection struct {
	anchor    Pos
	active    Pos
	present   bool
	selecting bool
}

// NewSelection returns an empty selection.
func NewSelection() *Selection { return &Selection{} }

// Start begins a new selection at p (mouse-down or fresh cursor placement).
func (s *Selection) Start(p Pos) {
	s.anchor = p
	s.active = p
	s.present = true
	s.selecting = true
}

// DragTo extends the active corner while a drag is in progress. Outside a
// drag it is a no-op.
func (s *Selection) DragTo(p Pos) {
	if !s.selecting {
		return
	}
	s.active = p
}

// Release ends a drag; the selected rectangle survives.
func (s *Selection) Release() {
	s.selecting = false
}

// Selecting reports whether a mouse drag is in progress.
func (s *Selection) Selecting() bool { return s.selecting }

// Move shifts the selection by (dRow, dCol), clamped to the grid bounds
// [0,maxRow]x[0,maxCol]. Without extend the selection collapses to the
// single cell at the new active position; with extend only the active
// corner moves and the anchor stays fixed.
func (s *Selection) Move(dRow, dCol int, extend bool, maxRow, maxCol int) {
	if !s.present {
		s.Start(Pos{})
		s.selecting = false
		return
	}
	next := Pos{
		Row: clamp(s.active.Row+dRow, 0, maxRow),
		Col: clamp(s.active.Col+dCol, 0, maxCol),
	}
	s.active = next
	if !extend {
		s.anchor = next
	}
}

// SelectAll covers the whole visible page.
func (s *Selection) SelectAll(maxRow, maxCol int) {
	if maxRow < 0 || maxCol < 0 {
		return
	}
	s.anchor = Pos{0, 0}
	s.active = Pos{maxRow, maxCol}
	s.present = true
	s.selecting = false
}

// Collapse reduces the selection to its active cell.
func (s *Selection) Collapse() {
	s.anchor = s.active
}

// Clear empties the selection.
func (s *Selection) Clear() {
	*s = Selection{}
}

// Active returns the active (end) corner.
func (s *Selection) Active() (Pos, bool) {
	return s.active, s.present
}

// Rect returns the normalized rectangle, if a selection exists.
func (s *Selection) Rect() (Rect, bool) {
	if !s.present {
		return Rect{}, false
	}
	r := Rect{
		MinRow: min(s.anchor.Row, s.active.Row),
		MaxRow: max(s.anchor.Row, s.active.Row),
		MinCol: min(s.anchor.Col, s.active.Col),
		MaxCol: max(s.anchor.Col, s.active.Col),
	}
	return r, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
