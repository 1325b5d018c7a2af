package table

import "lemondb.dev/lemondb/lemonerr"

// KeyField is the reserved pseudo-field name referring to a row's key
// rather than one of its value columns.
const KeyField = "KEY"

// FieldSet is the immutable, ordered list of value-column names for one
// table, plus the name->index lookup built once at construction time.
type FieldSet struct {
	names []string
	index map[string]int
}

func newFieldSet(fields []string) (FieldSet, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f == KeyField {
			return FieldSet{}, lemonerr.Wrapf(lemonerr.ErrReservedFieldName, "field %d is %q", i, KeyField)
		}
		if _, dup := index[f]; dup {
			return FieldSet{}, lemonerr.Wrapf(lemonerr.ErrDuplicateFieldName, "%q", f)
		}
		index[f] = i
	}
	names := make([]string, len(fields))
	copy(names, fields)
	return FieldSet{names: names, index: index}, nil
}

// Len returns the number of value columns (invariant 1: |fieldIndex| = |fields|).
func (fs FieldSet) Len() int {
	return len(fs.names)
}

// Names returns a defensive copy of the ordered field names.
func (fs FieldSet) Names() []string {
	out := make([]string, len(fs.names))
	copy(out, fs.names)
	return out
}

// Name returns the field name at i, or "" if out of range.
func (fs FieldSet) Name(i int) string {
	if i < 0 || i >= len(fs.names) {
		return ""
	}
	return fs.names[i]
}

// IndexOf resolves a field name to its position, honoring invariant 1
// (fieldIndex[fields[i]] = i).
func (fs FieldSet) IndexOf(name string) (int, bool) {
	i, ok := fs.index[name]
	return i, ok
}

// Contains reports whether name is a value column (never true for "KEY").
func (fs FieldSet) Contains(name string) bool {
	_, ok := fs.index[name]
	return ok
}
