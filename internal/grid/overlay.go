package grid

// Overlay layers uncommitted edits over fetched rows. Two change sets are
// kept: legacy changes restored from durable local storage (queued in an
// earlier session, never confirmed flushed) and pending changes made in
// this session. Pending wins over legacy wins over the raw row value.
type Overlay struct {
	pending ChangeSet
	legacy  ChangeSet
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		pending: make(ChangeSet),
		legacy:  make(ChangeSet),
	}
}

// Lookup returns the overlaid value for a cell, if one exists.
func (o *Overlay) Lookup(rowKey, colKey string) (string, bool) {
	if change, ok := o.pending.Get(rowKey, colKey); ok {
		return change.New, true
	}
	if change, ok := o.legacy.Get(rowKey, colKey); ok {
		return change.New, true
	}
	return "", false
}

// Set records an edit. original must be the raw, un-overlaid row value.
// Setting a cell back to its original value deletes the pending entry and
// any matching legacy entry instead of storing a no-op; the user has
// explicitly reverted to the server value. Calling Set twice with the same
// value leaves the same state.
//
// The returned flag reports whether the overlay still holds an entry for
// the cell afterwards.
func (o *Overlay) Set(rowKey, colKey, value, original string) bool {
	if value == original {
		o.pending.Delete(rowKey, colKey)
		o.legacy.Delete(rowKey, colKey)
		return false
	}
	o.pending.Set(rowKey, colKey, CellChange{New: value, Original: original})
	return true
}

// ClearCell drops both pending and legacy entries for a cell.
func (o *Overlay) ClearCell(rowKey, colKey string) {
	o.pending.Delete(rowKey, colKey)
	o.legacy.Delete(rowKey, colKey)
}

// ClearAll drops every uncommitted change.
func (o *Overlay) ClearAll() {
	o.pending = make(ChangeSet)
	o.legacy = make(ChangeSet)
}

// Merged returns pending layered over legacy, as persisted to local
// storage and as flushed by Apply All.
func (o *Overlay) Merged() ChangeSet {
	return o.pending.MergeUnder(o.legacy)
}

// HasChanges reports whether any uncommitted edit exists.
func (o *Overlay) HasChanges() bool {
	return !o.pending.Empty() || !o.legacy.Empty()
}

// Count returns the number of distinct changed cells.
func (o *Overlay) Count() int {
	return o.Merged().Count()
}

// Snapshot returns deep copies of both change sets for history.
func (o *Overlay) Snapshot() (pending, legacy ChangeSet) {
	return o.pending.Clone(), o.legacy.Clone()
}

// Restore replaces both change sets, deep-copying the inputs.
func (o *Overlay) Restore(pending, legacy ChangeSet) {
	if pending == nil {
		pending = make(ChangeSet)
	}
	if legacy == nil {
		legacy = make(ChangeSet)
	}
	o.pending = pending.Clone()
	o.legacy = legacy.Clone()
}

// RestoreLegacy loads a change set recovered from durable local storage.
func (o *Overlay) RestoreLegacy(cs ChangeSet) {
	if cs == nil {
		cs = make(ChangeSet)
	}
	o.legacy = cs.Clone()
}
