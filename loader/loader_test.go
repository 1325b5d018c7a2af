package loader

import (
	"strings"
	"testing"
)

func TestLoadTableParsesHeaderAndRows(t *testing.T) {
	input := "T|A|B\nk1|1|2\nk2|3|4\n\nk3|5|6\n"
	tbl, err := LoadTable(strings.NewReader(input), None)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if tbl.Name() != "T" {
		t.Errorf("Name() = %q, want T", tbl.Name())
	}
	if tbl.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", tbl.Size())
	}
	if !tbl.ContainsKey("k2") {
		t.Error("expected k2 to be loaded")
	}
}

func TestLoadTableArityMismatchFails(t *testing.T) {
	input := "T|A|B\nk1|1\n"
	if _, err := LoadTable(strings.NewReader(input), None); err == nil {
		t.Fatal("expected error for row with too few values")
	}
}

func TestLoadTableUnparsableValueFails(t *testing.T) {
	input := "T|A\nk1|not-a-number\n"
	if _, err := LoadTable(strings.NewReader(input), None); err == nil {
		t.Fatal("expected error for unparsable integer value")
	}
}

func TestLoadTableDuplicateKeyFails(t *testing.T) {
	input := "T|A\nk1|1\nk1|2\n"
	if _, err := LoadTable(strings.NewReader(input), None); err == nil {
		t.Fatal("expected error for duplicate key across rows")
	}
}

func TestLoadTableEmptyInputFails(t *testing.T) {
	if _, err := LoadTable(strings.NewReader(""), None); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestDetectCodec(t *testing.T) {
	cases := map[string]Codec{
		"dump.txt":  None,
		"dump.zst":  Zstd,
		"dump.zstd": Zstd,
		"dump.lz4":  LZ4,
	}
	for name, want := range cases {
		if got := DetectCodec(name); got != want {
			t.Errorf("DetectCodec(%q) = %v, want %v", name, got, want)
		}
	}
}
