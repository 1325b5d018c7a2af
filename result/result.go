// Package result defines the value object LemonDB hands back to a query
// caller: a tagged result kind carrying a record count, projected rows, an
// aggregate value, or an error message (spec.md §3, §6).
//
// Grounded on blockwatch-cc-packdb's pack.Row/marshal-adjacent result
// shapes and on original_source/src/task_results.h's (referenced but not
// retrieved) family of *Result subclasses (NullQueryResult,
// RecordCountResult, ErrorMsgResult) implied by query.h/duplicate_query.cpp
// — reimplemented here as one tagged Go struct per Design Notes' guidance
// to prefer a small tagged variant over a deep class hierarchy.
package result

import (
	"fmt"

	"github.com/ericlagergren/decimal"
)

// Kind tags which fields of a Result are meaningful.
type Kind int

const (
	KindNull Kind = iota
	KindRecordCount
	KindRows
	KindAggregate
	KindErrorMsg
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindRecordCount:
		return "RecordCount"
	case KindRows:
		return "Rows"
	case KindAggregate:
		return "Aggregate"
	case KindErrorMsg:
		return "ErrorMsg"
	case KindAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Row is one projected (key, values) pair returned by a SELECT.
type Row struct {
	Key    string
	Values []int32
}

// Result is the value object returned from a query's combine stage.
// AVG carries an exact decimal quotient (via github.com/ericlagergren/decimal)
// rather than a float64, so repeated AVG computations over the same data are
// bit-for-bit reproducible instead of accumulating float rounding drift;
// SUM/MIN/MAX carry an exact int64 since LemonDB's fields are 32-bit ints
// and their sum/extremum never needs fractional precision.
type Result struct {
	kind Kind

	count int64

	fields []string
	rows   []Row

	aggInt     int64
	aggIsInt   bool
	aggDecimal *decimal.Big
	aggEmpty   bool

	queryName   string
	targetTable string
	message     string
}

func Null() *Result {
	return &Result{kind: KindNull}
}

func RecordCount(n int64) *Result {
	return &Result{kind: KindRecordCount, count: n}
}

func Rows(fields []string, rows []Row) *Result {
	return &Result{kind: KindRows, fields: fields, rows: rows}
}

// AggregateInt builds an exact-integer aggregate result (SUM/MIN/MAX).
func AggregateInt(v int64) *Result {
	return &Result{kind: KindAggregate, aggInt: v, aggIsInt: true}
}

// AggregateDecimal builds an exact-decimal aggregate result (AVG).
func AggregateDecimal(v *decimal.Big) *Result {
	return &Result{kind: KindAggregate, aggDecimal: v}
}

// EmptyAggregate is the success-carrying "no rows matched" aggregate result
// (spec.md §7's EmptyAggregate, spec.md §8's "AVG over 0 rows is EmptyAggregate").
func EmptyAggregate() *Result {
	return &Result{kind: KindAggregate, aggEmpty: true}
}

func ErrorMsg(queryName, targetTable, message string) *Result {
	log.Debugf("result: %s on %s failed: %s", queryName, targetTable, message)
	return &Result{kind: KindErrorMsg, queryName: queryName, targetTable: targetTable, message: message}
}

func Aborted(queryName, targetTable string) *Result {
	log.Debugf("result: %s on %s reported aborted", queryName, targetTable)
	return &Result{kind: KindAborted, queryName: queryName, targetTable: targetTable}
}

func (r *Result) Kind() Kind { return r.kind }

func (r *Result) Count() int64 { return r.count }

func (r *Result) Fields() []string { return r.fields }

func (r *Result) Rows() []Row { return r.rows }

// IsEmptyAggregate reports the EmptyAggregate case (spec.md §7).
func (r *Result) IsEmptyAggregate() bool { return r.aggEmpty }

// IntValue returns an exact-integer aggregate (SUM/MIN/MAX) and whether
// the result actually carries one.
func (r *Result) IntValue() (int64, bool) { return r.aggInt, r.aggIsInt && !r.aggEmpty }

// DecimalValue returns the exact-decimal aggregate (AVG) if present.
func (r *Result) DecimalValue() *decimal.Big { return r.aggDecimal }

func (r *Result) QueryName() string { return r.queryName }

func (r *Result) TargetTable() string { return r.targetTable }

func (r *Result) Message() string { return r.message }

// String renders a one-line diagnostic, mirroring pack.Query's toString
// convention used for query/result logging.
func (r *Result) String() string {
	switch r.kind {
	case KindNull:
		return "Null"
	case KindRecordCount:
		return fmt.Sprintf("RecordCount(%d)", r.count)
	case KindRows:
		return fmt.Sprintf("Rows(%v, %d rows)", r.fields, len(r.rows))
	case KindAggregate:
		if r.aggEmpty {
			return "Aggregate(empty)"
		}
		if r.aggIsInt {
			return fmt.Sprintf("Aggregate(%d)", r.aggInt)
		}
		return fmt.Sprintf("Aggregate(%s)", r.aggDecimal.String())
	case KindErrorMsg:
		return fmt.Sprintf("ErrorMsg(%s, %s, %q)", r.queryName, r.targetTable, r.message)
	case KindAborted:
		return fmt.Sprintf("Aborted(%s, %s)", r.queryName, r.targetTable)
	default:
		return "Unknown"
	}
}
