package result

import (
	"testing"

	"github.com/ericlagergren/decimal"
)

func TestRecordCount(t *testing.T) {
	r := RecordCount(5)
	if r.Kind() != KindRecordCount || r.Count() != 5 {
		t.Fatalf("RecordCount(5) = %s", r)
	}
}

func TestEmptyAggregate(t *testing.T) {
	r := EmptyAggregate()
	if r.Kind() != KindAggregate || !r.IsEmptyAggregate() {
		t.Fatalf("EmptyAggregate() = %s", r)
	}
	if _, ok := r.IntValue(); ok {
		t.Error("IntValue() should not report ok for an empty aggregate")
	}
}

func TestAggregateDecimal(t *testing.T) {
	q := new(decimal.Big).Quo(decimal.New(7, 0), decimal.New(2, 0))
	r := AggregateDecimal(q)
	if r.Kind() != KindAggregate || r.IsEmptyAggregate() {
		t.Fatalf("AggregateDecimal = %s", r)
	}
	if r.DecimalValue().String() != "3.5" {
		t.Errorf("DecimalValue() = %s, want 3.5", r.DecimalValue())
	}
}

func TestErrorMsgString(t *testing.T) {
	r := ErrorMsg("COUNT", "T", "boom")
	if r.Kind() != KindErrorMsg {
		t.Fatalf("kind = %v, want KindErrorMsg", r.Kind())
	}
	if r.Message() != "boom" || r.QueryName() != "COUNT" || r.TargetTable() != "T" {
		t.Errorf("ErrorMsg fields mismatch: %s", r)
	}
}
