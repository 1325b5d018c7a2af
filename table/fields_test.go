package table

import "testing"

func TestNewFieldSetRejectsKeyField(t *testing.T) {
	if _, err := newFieldSet([]string{"A", KeyField}); err == nil {
		t.Fatal("expected error for reserved field name KEY, got nil")
	}
}

func TestNewFieldSetRejectsDuplicateName(t *testing.T) {
	if _, err := newFieldSet([]string{"A", "B", "A"}); err == nil {
		t.Fatal("expected error for duplicate field name, got nil")
	}
}

func TestFieldSetIndexOf(t *testing.T) {
	fs, err := newFieldSet([]string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("newFieldSet: %v", err)
	}
	if fs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", fs.Len())
	}
	for i, name := range []string{"A", "B", "C"} {
		idx, ok := fs.IndexOf(name)
		if !ok || idx != i {
			t.Errorf("IndexOf(%q) = (%d, %v), want (%d, true)", name, idx, ok, i)
		}
	}
	if _, ok := fs.IndexOf("Z"); ok {
		t.Error("IndexOf(\"Z\") = true, want false")
	}
	if fs.Contains(KeyField) {
		t.Error("Contains(KEY) = true, want false")
	}
}
