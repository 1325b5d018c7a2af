package table

import (
	"errors"
	"testing"

	"lemondb.dev/lemondb/lemonerr"
)

func mustTable(t *testing.T, fields ...string) *Table {
	tbl, err := New("T", fields)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestInsertAndKeyIndex(t *testing.T) {
	tbl := mustTable(t, "A", "B")
	if err := tbl.InsertByIndex("k1", []int32{1, 2}); err != nil {
		t.Fatalf("InsertByIndex: %v", err)
	}
	if !tbl.ContainsKey("k1") {
		t.Error("ContainsKey(k1) = false after insert")
	}
	if tbl.Size() != 1 {
		t.Errorf("Size() = %d, want 1", tbl.Size())
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	tbl := mustTable(t, "A")
	if err := tbl.InsertByIndex("k1", []int32{1}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := tbl.InsertByIndex("k1", []int32{2})
	if !errors.Is(err, lemonerr.ErrDuplicateKey) {
		t.Fatalf("second insert error = %v, want ErrDuplicateKey", err)
	}
}

func TestInsertByIndexArityMismatch(t *testing.T) {
	tbl := mustTable(t, "A", "B")
	err := tbl.InsertByIndex("k1", []int32{1})
	if !errors.Is(err, lemonerr.ErrArityMismatch) {
		t.Fatalf("err = %v, want ErrArityMismatch", err)
	}
}

func TestInsertUnknownFieldFails(t *testing.T) {
	tbl := mustTable(t, "A")
	err := tbl.Insert("k1", map[string]int32{"Z": 1})
	if !errors.Is(err, lemonerr.ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
}

func TestInsertDefaultsUnspecifiedFields(t *testing.T) {
	tbl := mustTable(t, "A", "B")
	if err := tbl.Insert("k1", map[string]int32{"A": 5}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row := tbl.RowAt(0)
	if row.Value(0) != 5 || row.Value(1) != 0 {
		t.Errorf("values = (%d,%d), want (5,0)", row.Value(0), row.Value(1))
	}
}

// TestEraseAtSwapAndPop exercises the swap-and-pop contract from
// spec.md §8: after eraseAt(p) succeeds, size decreases by 1 and the
// erased key leaves keyIndex.
func TestEraseAtSwapAndPop(t *testing.T) {
	tbl := mustTable(t, "A")
	for i, k := range []string{"k1", "k2", "k3"} {
		if err := tbl.InsertByIndex(k, []int32{int32(i)}); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}
	removed, err := tbl.EraseAt(0)
	if err != nil {
		t.Fatalf("EraseAt: %v", err)
	}
	if removed != "k1" {
		t.Errorf("removed key = %q, want k1", removed)
	}
	if tbl.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tbl.Size())
	}
	if tbl.ContainsKey("k1") {
		t.Error("ContainsKey(k1) = true after erase")
	}
	// swap-and-pop moved the former last row (k3) into position 0.
	if got := tbl.RowAt(0).Key(); got != "k3" {
		t.Errorf("RowAt(0).Key() = %q, want k3 (swapped from tail)", got)
	}
}

func TestSetValueAt(t *testing.T) {
	tbl := mustTable(t, "A", "B")
	if err := tbl.InsertByIndex("k1", []int32{1, 2}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tbl.SetValueAt(0, 1, 99); err != nil {
		t.Fatalf("SetValueAt: %v", err)
	}
	if v := tbl.RowAt(0).Value(1); v != 99 {
		t.Errorf("Value(1) = %d, want 99", v)
	}
}

// TestScheduleDuplicateThenMerge exercises spec.md §8 scenario 4: a table
// with 2 rows, DUPLICATE over all of them, post-merge size doubles and new
// keys follow the K_copyN scheme.
func TestScheduleDuplicateThenMerge(t *testing.T) {
	tbl := mustTable(t, "A")
	if err := tbl.InsertByIndex("k1", []int32{1}); err != nil {
		t.Fatalf("insert k1: %v", err)
	}
	if err := tbl.InsertByIndex("k2", []int32{2}); err != nil {
		t.Fatalf("insert k2: %v", err)
	}
	if err := tbl.ScheduleDuplicate(0); err != nil {
		t.Fatalf("ScheduleDuplicate(0): %v", err)
	}
	if err := tbl.ScheduleDuplicate(1); err != nil {
		t.Fatalf("ScheduleDuplicate(1): %v", err)
	}
	merged, err := tbl.MergeDuplicates()
	if err != nil {
		t.Fatalf("MergeDuplicates: %v", err)
	}
	if merged != 2 {
		t.Fatalf("merged = %d, want 2", merged)
	}
	if tbl.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", tbl.Size())
	}
	if !tbl.ContainsKey("k1_copy1") || !tbl.ContainsKey("k2_copy1") {
		t.Error("expected k1_copy1 and k2_copy1 to exist after merge")
	}
}

func TestNextDuplicateKeySkipsExistingAndPending(t *testing.T) {
	tbl := mustTable(t, "A")
	if err := tbl.InsertByIndex("k1", []int32{1}); err != nil {
		t.Fatalf("insert k1: %v", err)
	}
	if err := tbl.InsertByIndex("k1_copy1", []int32{9}); err != nil {
		t.Fatalf("insert k1_copy1: %v", err)
	}
	if err := tbl.ScheduleDuplicate(0); err != nil {
		t.Fatalf("ScheduleDuplicate: %v", err)
	}
	if _, err := tbl.MergeDuplicates(); err != nil {
		t.Fatalf("MergeDuplicates: %v", err)
	}
	if !tbl.ContainsKey("k1_copy2") {
		t.Error("expected generated key to skip already-taken k1_copy1 and land on k1_copy2")
	}
}

func TestClear(t *testing.T) {
	tbl := mustTable(t, "A")
	for i, k := range []string{"k1", "k2"} {
		if err := tbl.InsertByIndex(k, []int32{int32(i)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if n := tbl.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if tbl.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", tbl.Size())
	}
}
