// Package table implements LemonDB's row-oriented, key-addressable table
// storage: schema declaration, key uniqueness, swap-and-pop delete, and the
// deferred-duplicate buffer used by DUPLICATE queries to avoid iterator
// invalidation during a concurrent scan.
//
// Grounded on blockwatch-cc-packdb's pack.Table (name/fields/rows/mu shape,
// the exported Lock/Unlock/RLock/RUnlock forwarding methods, and atomic
// stats counters) generalized from its columnar on-disk pack model to a
// plain in-memory row slice, per original_source/src/db_table.h's
// swap-and-pop Table::erase and per-Datum field-indexed storage.
package table

import (
	"strconv"
	"sync"
	"sync/atomic"

	"lemondb.dev/lemondb/lemonerr"
)

// row is one stored record: a key plus its values in field order.
type row struct {
	key    string
	values []int32
}

func (r row) clone() row {
	values := make([]int32, len(r.values))
	copy(values, r.values)
	return row{key: r.key, values: values}
}

// Stats mirrors pack.Table's TableStats: plain atomic counters read for
// diagnostics/logging, never load-bearing for correctness.
type Stats struct {
	InsertCalls    atomic.Int64
	InsertedRows   atomic.Int64
	DeletedRows    atomic.Int64
	UpdatedRows    atomic.Int64
	DuplicatedRows atomic.Int64
}

// Table is one named table: an ordered field schema, its rows, the set of
// keys currently present, and the append-only pending-duplicate buffer.
type Table struct {
	name   string
	fields FieldSet

	mu       sync.RWMutex
	rows     []row
	keyIndex map[string]struct{}

	dupMu             sync.Mutex
	pendingDuplicates []row
	pendingKeys       map[string]struct{}

	Stats Stats
}

// New creates an empty table named name with the given value-column schema.
// Fails with ErrDuplicateFieldName or ErrReservedFieldName (data model
// invariant 6: "KEY" is reserved).
func New(name string, fields []string) (*Table, error) {
	fs, err := newFieldSet(fields)
	if err != nil {
		return nil, err
	}
	log.Debugf("table: created %q with fields %v", name, fields)
	return &Table{
		name:        name,
		fields:      fs,
		keyIndex:    make(map[string]struct{}),
		pendingKeys: make(map[string]struct{}),
	}, nil
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Fields() FieldSet {
	return t.fields
}

// Lock/Unlock/RLock/RUnlock forward to the table-wide mutex exactly like
// pack.Table does, so destructive-variant queries (DELETE,
// UPDATE, INSERT) can hold the table exclusive across every task of the
// query while read-only variants take the shared path (spec.md §5).
func (t *Table) Lock()    { t.mu.Lock() }
func (t *Table) Unlock()  { t.mu.Unlock() }
func (t *Table) RLock()   { t.mu.RLock() }
func (t *Table) RUnlock() { t.mu.RUnlock() }

// Len returns the current row count. Callers scanning or mutating rows
// must already hold RLock/Lock; Len is otherwise only a point-in-time hint.
func (t *Table) Len() int {
	return len(t.rows)
}

// Size takes its own read lock, for callers outside an existing scan.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Snapshot returns the current row-count boundary [0, n) a query should
// partition over. It is the Go analogue of the C++ addIterationTask's
// begin/end pair (original_source/src/query/query.h).
func (t *Table) Snapshot() (begin, end int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return 0, len(t.rows)
}

func (t *Table) blankValues() []int32 {
	return make([]int32, t.fields.Len())
}

// Insert adds a row keyed by key, filling named fields from assoc and
// defaulting any unspecified field to 0 (spec.md §4.1). Self-locking: this
// is the inline, non-partitioned path used by the INSERT query variant.
func (t *Table) Insert(key string, assoc map[string]int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Stats.InsertCalls.Add(1)

	if _, exists := t.keyIndex[key]; exists {
		return lemonerr.Wrapf(lemonerr.ErrDuplicateKey, "key %q", key)
	}
	values := t.blankValues()
	for name, v := range assoc {
		idx, ok := t.fields.IndexOf(name)
		if !ok {
			return lemonerr.Wrapf(lemonerr.ErrUnknownField, "field %q", name)
		}
		values[idx] = v
	}
	t.rows = append(t.rows, row{key: key, values: values})
	t.keyIndex[key] = struct{}{}
	t.Stats.InsertedRows.Add(1)
	return nil
}

// InsertByIndex is the positional variant of Insert; values must line up
// 1:1 with the table's field order (spec.md §4.1).
func (t *Table) InsertByIndex(key string, values []int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Stats.InsertCalls.Add(1)

	if len(values) != t.fields.Len() {
		return lemonerr.Wrapf(lemonerr.ErrArityMismatch, "table %q expects %d values, got %d", t.name, t.fields.Len(), len(values))
	}
	if _, exists := t.keyIndex[key]; exists {
		return lemonerr.Wrapf(lemonerr.ErrDuplicateKey, "key %q", key)
	}
	stored := make([]int32, len(values))
	copy(stored, values)
	t.rows = append(t.rows, row{key: key, values: stored})
	t.keyIndex[key] = struct{}{}
	t.Stats.InsertedRows.Add(1)
	return nil
}

// RowView is a lifetime-scoped, read-only handle onto a stored row.
// Per Design Notes §9's "row-handle proxies over stable indices" guidance,
// this borrows the table for the duration of a scan rather than returning
// an unbounded reference.
type RowView struct {
	key    string
	values []int32
}

func (r RowView) Key() string { return r.key }

// Value returns the value at field index i, or 0 if i is out of range.
func (r RowView) Value(i int) int32 {
	if i < 0 || i >= len(r.values) {
		return 0
	}
	return r.values[i]
}

// Values returns a defensive copy of the row's values in field order.
func (r RowView) Values() []int32 {
	out := make([]int32, len(r.values))
	copy(out, r.values)
	return out
}

// RowAt returns a view of the row at pos. Caller must already hold RLock
// or Lock and pos must be within [0, Len()).
func (t *Table) RowAt(pos int) RowView {
	r := t.rows[pos]
	return RowView{key: r.key, values: r.values}
}

// EraseAt removes the row at pos in O(1) by swapping it with the table's
// current last row and shrinking (spec.md §4.1). Caller must hold Lock();
// per invariant 5, this is only safe when no other task of the same query
// is concurrently running over this table, which the engine guarantees by
// running a destructive query's tasks one at a time.
func (t *Table) EraseAt(pos int) (removedKey string, err error) {
	if pos < 0 || pos >= len(t.rows) {
		return "", lemonerr.Wrapf(lemonerr.ErrInternal, "erase position %d out of range [0,%d)", pos, len(t.rows))
	}
	removedKey = t.rows[pos].key
	delete(t.keyIndex, removedKey)
	last := len(t.rows) - 1
	t.rows[pos] = t.rows[last]
	t.rows[last] = row{}
	t.rows = t.rows[:last]
	t.Stats.DeletedRows.Add(1)
	log.Debugf("table: %s erased key %q, %d rows left", t.name, removedKey, len(t.rows))
	return removedKey, nil
}

// SetValueAt applies field := value to the row at pos. Caller must hold
// Lock(); UPDATE is a destructive variant per spec.md §5.
func (t *Table) SetValueAt(pos, fieldIndex int, value int32) error {
	if pos < 0 || pos >= len(t.rows) {
		return lemonerr.Wrapf(lemonerr.ErrInternal, "update position %d out of range [0,%d)", pos, len(t.rows))
	}
	if fieldIndex < 0 || fieldIndex >= t.fields.Len() {
		return lemonerr.Wrapf(lemonerr.ErrUnknownField, "field index %d", fieldIndex)
	}
	t.rows[pos].values[fieldIndex] = value
	t.Stats.UpdatedRows.Add(1)
	return nil
}

// ScheduleDuplicate appends a copy of the row at pos, under a freshly
// generated unique key, to the pending-duplicate buffer without touching
// rows. Caller must hold RLock() for the duration of the scan; the
// pending buffer itself is guarded independently by dupMu so DUPLICATE
// scans never contend with concurrent readers of rows (spec.md §5.2).
func (t *Table) ScheduleDuplicate(pos int) error {
	if pos < 0 || pos >= len(t.rows) {
		return lemonerr.Wrapf(lemonerr.ErrInternal, "duplicate position %d out of range [0,%d)", pos, len(t.rows))
	}
	src := t.rows[pos]

	t.dupMu.Lock()
	defer t.dupMu.Unlock()

	newKey := t.nextDuplicateKeyLocked(src.key)
	t.pendingDuplicates = append(t.pendingDuplicates, src.clone())
	t.pendingDuplicates[len(t.pendingDuplicates)-1].key = newKey
	t.pendingKeys[newKey] = struct{}{}
	t.Stats.DuplicatedRows.Add(1)
	return nil
}

// nextDuplicateKeyLocked implements the K_copyN scheme from spec.md §4.1:
// the smallest positive N such that K_copyN is absent from both keyIndex
// and the pending-duplicate keys seen so far this scan. Caller must hold
// dupMu. keyIndex itself is read without the table mutex: it is only
// mutated by exclusive-lock holders (Insert/EraseAt/mergeDuplicates), none
// of which can run concurrently with an in-flight DUPLICATE scan's RLock.
func (t *Table) nextDuplicateKeyLocked(original string) string {
	n := 1
	for {
		candidate := original + "_copy" + strconv.Itoa(n)
		_, existing := t.keyIndex[candidate]
		_, pending := t.pendingKeys[candidate]
		if !existing && !pending {
			return candidate
		}
		n++
	}
}

// MergeDuplicates moves the pending-duplicate buffer into rows and
// registers the new keys in keyIndex. Called exactly once at combine time
// (spec.md §4.1). Caller must hold Lock(). Returns the number merged.
func (t *Table) MergeDuplicates() (int, error) {
	t.dupMu.Lock()
	pending := t.pendingDuplicates
	t.pendingDuplicates = nil
	t.pendingKeys = make(map[string]struct{})
	t.dupMu.Unlock()

	for _, r := range pending {
		if _, exists := t.keyIndex[r.key]; exists {
			return 0, lemonerr.Wrapf(lemonerr.ErrDuplicateKey, "generated key %q collided at merge", r.key)
		}
	}
	for _, r := range pending {
		t.rows = append(t.rows, r)
		t.keyIndex[r.key] = struct{}{}
	}
	log.Debugf("table: %s merged %d pending duplicates", t.name, len(pending))
	return len(pending), nil
}

// Clear empties the table and returns the prior row count. Self-locking.
func (t *Table) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	prior := len(t.rows)
	t.rows = nil
	t.keyIndex = make(map[string]struct{})
	log.Debugf("table: %s cleared, %d rows dropped", t.name, prior)
	return prior
}

// ContainsKey reports whether key currently names a row. Self-locking.
func (t *Table) ContainsKey(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.keyIndex[key]
	return ok
}
