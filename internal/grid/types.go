package grid

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one fetched record, keyed by backend column key. Rows are never
// mutated for display; uncommitted edits live in the overlay.
type Row map[string]any

// CellChange is one uncommitted edit to a single cell.
type CellChange struct {
	New      string
	Original string
}

// ChangeSet maps row primary key -> column key -> change. An entry exists
// iff New differs from Original; reverts delete the entry outright.
type ChangeSet map[string]map[string]CellChange

// Set inserts or overwrites a change.
func (cs ChangeSet) Set(rowKey, colKey string, change CellChange) {
	row, ok := cs[rowKey]
	if !ok {
		row = make(map[string]CellChange)
		cs[rowKey] = row
	}
	row[colKey] = change
}

// Get returns the change for a cell, if any.
func (cs ChangeSet) Get(rowKey, colKey string) (CellChange, bool) {
	row, ok := cs[rowKey]
	if !ok {
		return CellChange{}, false
	}
	change, ok := row[colKey]
	return change, ok
}

// Delete removes a cell entry, dropping the row map when it empties.
func (cs ChangeSet) Delete(rowKey, colKey string) {
	row, ok := cs[rowKey]
	if !ok {
		return
	}
	delete(row, colKey)
	if len(row) == 0 {
		delete(cs, rowKey)
	}
}

// Count returns the number of cell-level changes across all rows.
func (cs ChangeSet) Count() int {
	n := 0
	for _, row := range cs {
		n += len(row)
	}
	return n
}

// Empty reports whether the set holds no changes.
func (cs ChangeSet) Empty() bool {
	return cs.Count() == 0
}

// Clone returns a deep copy.
func (cs ChangeSet) Clone() ChangeSet {
	out := make(ChangeSet, len(cs))
	for rowKey, row := range cs {
		cloned := make(map[string]CellChange, len(row))
		for colKey, change := range row {
			cloned[colKey] = change
		}
		out[rowKey] = cloned
	}
	return out
}

// MergeUnder layers cs on top of base: base entries survive only where cs
// has none for the same cell. The receiver is not modified.
func (cs ChangeSet) MergeUnder(base ChangeSet) ChangeSet {
	out := base.Clone()
	for rowKey, row := range cs {
		for colKey, change := range row {
			out.Set(rowKey, colKey, change)
		}
	}
	return out
}

// Equal reports whether two change sets hold identical entries.
func (cs ChangeSet) Equal(other ChangeSet) bool {
	if cs.Count() != other.Count() {
		return false
	}
	for rowKey, row := range cs {
		for colKey, change := range row {
			got, ok := other.Get(rowKey, colKey)
			if !ok || got != change {
				return false
			}
		}
	}
	return true
}

// RowPatch is the wire shape of one row's committed-to-be values for a
// batch write: primary key plus only the changed columns.
type RowPatch struct {
	Key    string            `json:"key"`
	Values map[string]string `json:"values"`
}

// BatchResult summarises a batch write.
type BatchResult struct {
	Updated int `json:"updated"`
}

// CoerceString renders a raw row value the way the grid displays it.
// Fetched rows carry database scan types; the overlay and the wire always
// speak strings.
func CoerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return trimFloat(float64(val))
	case float64:
		return trimFloat(val)
	case time.Time:
		return val.Format("2006-01-02")
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
