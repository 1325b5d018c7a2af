// Package loader implements LemonDB's bulk-load stream format (spec.md
// §6): a header line naming the table and its fields, followed by one
// pipe-delimited row per line, optionally wrapped in a compressing
// io.Reader so an operator can hand LemonDB a pre-compressed dump.
//
// Grounded on blockwatch-cc-packdb's tools/rebuild.go-style "read a dump,
// rebuild a table" utility shape, generalized from packdb's bbolt-backed
// pack rebuild to a plain in-memory table.New + InsertByIndex loop, with
// packdb's own compression stack (github.com/klauspost/compress's
// zstd subpackage, github.com/pierrec/lz4) repurposed as pluggable
// decompressing readers instead of packdb's block-level codec.
package loader

import (
	"bufio"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"

	"lemondb.dev/lemondb/lemonerr"
	"lemondb.dev/lemondb/table"
)

// Codec selects how the byte stream handed to LoadTable is decompressed
// before the line-oriented bulk-load format is parsed.
type Codec int

const (
	// None reads the stream as plain, already-decompressed text.
	None Codec = iota
	// Zstd wraps r in a github.com/klauspost/compress/zstd reader.
	Zstd
	// LZ4 wraps r in a github.com/pierrec/lz4 reader.
	LZ4
)

// DetectCodec sniffs a codec from a dump file's extension; unrecognized
// extensions fall back to None, which is always a safe default since a
// plain dump has no magic-number requirement.
func DetectCodec(filename string) Codec {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

const fieldSep = "|"

// LoadTable parses r per spec.md §6's bulk-load format: a header line
// "table_name|f1|f2|...|fn" declares the table and its field schema,
// followed by one "key|v1|v2|...|vn" line per row. Blank lines are
// skipped. Returns ErrMalformedInput for a missing header, an arity
// mismatch against the declared field count, or an unparsable integer
// value, and whatever table.New/InsertByIndex return for schema or
// duplicate-key failures.
func LoadTable(r io.Reader, codec Codec) (*table.Table, error) {
	decompressed, closeFn, err := decompress(r, codec)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		defer closeFn()
	}

	scanner := bufio.NewScanner(decompressed)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	header, ok := nextNonBlank(scanner)
	if !ok {
		return nil, lemonerr.Wrap(lemonerr.ErrMalformedInput, "empty input: missing table header line")
	}
	headerParts := strings.Split(header, fieldSep)
	if len(headerParts) < 1 {
		return nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput, "malformed header %q", header)
	}
	name := headerParts[0]
	fields := headerParts[1:]

	t, err := table.New(name, fields)
	if err != nil {
		return nil, err
	}

	lineNo := 1
	for {
		line, ok := nextNonBlank(scanner)
		if !ok {
			break
		}
		lineNo++
		parts := strings.Split(line, fieldSep)
		if len(parts) != len(fields)+1 {
			return nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput,
				"line %d: expected %d fields, got %d", lineNo, len(fields), len(parts)-1)
		}
		key := parts[0]
		values := make([]int32, len(fields))
		for i, raw := range parts[1:] {
			v, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput, "line %d: %v", lineNo, err)
			}
			values[i] = int32(v)
		}
		if err := t.InsertByIndex(key, values); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput, "scanning input: %v", err)
	}
	return t, nil
}

func nextNonBlank(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return line, true
	}
	return "", false
}

func decompress(r io.Reader, codec Codec) (io.Reader, func(), error) {
	switch codec {
	case None:
		return r, nil, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput, "zstd: %v", err)
		}
		return zr, zr.Close, nil
	case LZ4:
		return lz4.NewReader(r), nil, nil
	default:
		return nil, nil, lemonerr.Wrapf(lemonerr.ErrMalformedInput, "unknown codec %d", codec)
	}
}
