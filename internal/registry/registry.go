package registry

import (
	"fmt"
	"strings"
)

// Kind classifies how a column is edited and rendered.
type Kind string

const (
	KindText     Kind = "text"
	KindEnum     Kind = "enum"
	KindLongText Kind = "longtext"
	KindDate     Kind = "date"
	KindReadOnly Kind = "readonly"
)

// Column describes one grid column: the UI label shown in headers, the
// backend field name used on the wire and in the database, and how the
// cell may be edited.
type Column struct {
	Label      string
	Key        string
	Kind       Kind
	Editable   bool
	EnumValues []string
}

// Registry is the resolved, bidirectional column mapping for one view.
// Lookups accept either the UI label or the data key; the mapping is built
// once at construction instead of being re-derived per cell.
type Registry struct {
	columns []Column
	byLabel map[string]int
	byKey   map[string]int
	primary string
}

// New builds a registry from an ordered column list. primaryKey must name
// the data key of exactly one declared column.
func New(primaryKey string, columns []Column) (*Registry, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("registry: no columns declared")
	}

	r := &Registry{
		columns: make([]Column, len(columns)),
		byLabel: make(map[string]int, len(columns)),
		byKey:   make(map[string]int, len(columns)),
		primary: primaryKey,
	}
	copy(r.columns, columns)

	for i, col := range r.columns {
		if col.Key == "" {
			return nil, fmt.Errorf("registry: column %q has no data key", col.Label)
		}
		if col.Label == "" {
			return nil, fmt.Errorf("registry: column %q has no label", col.Key)
		}
		if _, dup := r.byKey[col.Key]; dup {
			return nil, fmt.Errorf("registry: duplicate data key %q", col.Key)
		}
		if _, dup := r.byLabel[col.Label]; dup {
			return nil, fmt.Errorf("registry: duplicate label %q", col.Label)
		}
		if col.Kind == KindReadOnly && col.Editable {
			return nil, fmt.Errorf("registry: column %q is readonly but marked editable", col.Key)
		}
		if col.Kind == KindEnum && len(col.EnumValues) == 0 {
			return nil, fmt.Errorf("registry: enum column %q has no values", col.Key)
		}
		r.byKey[col.Key] = i
		r.byLabel[col.Label] = i
	}

	if _, ok := r.byKey[primaryKey]; !ok {
		return nil, fmt.Errorf("registry: primary key column %q not declared", primaryKey)
	}

	return r, nil
}

// Columns returns the declared columns in display order.
func (r *Registry) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of declared columns.
func (r *Registry) Len() int {
	return len(r.columns)
}

// At returns the column at the given display index.
func (r *Registry) At(i int) (Column, bool) {
	if i < 0 || i >= len(r.columns) {
		return Column{}, false
	}
	return r.columns[i], true
}

// Resolve looks a column up by data key or UI label, in that order.
func (r *Registry) Resolve(name string) (Column, bool) {
	if i, ok := r.byKey[name]; ok {
		return r.columns[i], true
	}
	if i, ok := r.byLabel[name]; ok {
		return r.columns[i], true
	}
	return Column{}, false
}

// KeyFor returns the data key for a label or key.
func (r *Registry) KeyFor(name string) (string, bool) {
	col, ok := r.Resolve(name)
	if !ok {
		return "", false
	}
	return col.Key, true
}

// LabelFor returns the UI label for a key or label.
func (r *Registry) LabelFor(name string) (string, bool) {
	col, ok := r.Resolve(name)
	if !ok {
		return "", false
	}
	return col.Label, true
}

// PrimaryKey returns the data key of the row identifier column.
func (r *Registry) PrimaryKey() string {
	return r.primary
}

// Editable reports whether the named column accepts edits.
func (r *Registry) Editable(name string) bool {
	col, ok := r.Resolve(name)
	return ok && col.Editable
}

// ValidValue reports whether value is acceptable for the named column.
// Only enum columns constrain their values; an empty string is always
// allowed so a cell can be cleared.
func (r *Registry) ValidValue(name, value string) bool {
	col, ok := r.Resolve(name)
	if !ok {
		return false
	}
	if col.Kind != KindEnum || value == "" {
		return true
	}
	for _, v := range col.EnumValues {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
