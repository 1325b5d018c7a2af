package query

import (
	"github.com/ericlagergren/decimal"

	"lemondb.dev/lemondb/engine"
	"lemondb.dev/lemondb/result"
)

// task is one [begin, end) range of a query's target table plus the
// partial result it accumulates while scanning that range. Grounded on
// original_source/src/query/query.h's per-task begin/end/counter triple.
type task struct {
	query *Query
	begin int
	end   int

	counter int64
	err     error
	aborted bool

	// SELECT
	selected []result.Row

	// SUM/MIN/MAX/AVG
	hasAgg bool
	sumAgg int64
	minAgg int32
	maxAgg int32
	avgSum int64
	avgN   int64
}

func newTask(q *Query, begin, end int) *task {
	return &task{query: q, begin: begin, end: end}
}

func (t *task) accumulate(v int32) {
	if !t.hasAgg {
		t.hasAgg = true
		t.sumAgg, t.minAgg, t.maxAgg = int64(v), v, v
		t.avgSum, t.avgN = int64(v), 1
		return
	}
	t.sumAgg += int64(v)
	if v < t.minAgg {
		t.minAgg = v
	}
	if v > t.maxAgg {
		t.maxAgg = v
	}
	t.avgSum += int64(v)
	t.avgN++
}

// runReadOnly scans [begin,end) under a shared lock, for COUNT, SELECT and
// the aggregate variants; concurrent with other read-only/DUPLICATE tasks
// on the same table (spec.md §5.1).
func (t *task) runReadOnly() {
	tbl := t.query.table
	tbl.RLock()
	defer tbl.RUnlock()

	end := t.clampedEnd(tbl.Len())
	for pos := t.begin; pos < end; pos++ {
		row := tbl.RowAt(pos)
		if !t.query.conds.Eval(row) {
			continue
		}
		t.counter++
		switch t.query.kind {
		case Select:
			t.selected = append(t.selected, result.Row{Key: row.Key(), Values: t.project(row)})
		case Sum, Min, Max, Avg:
			t.accumulate(row.Value(t.query.aggFieldIndex))
		}
	}
}

func (t *task) project(row rowValuer) []int32 {
	fields := t.query.selectFields
	if len(fields) == 0 {
		return row.Values()
	}
	out := make([]int32, len(fields))
	for i, name := range fields {
		idx, ok := t.query.table.Fields().IndexOf(name)
		if !ok {
			continue
		}
		out[i] = row.Value(idx)
	}
	return out
}

// rowValuer is the subset of table.RowView that project needs.
type rowValuer interface {
	Key() string
	Value(int) int32
	Values() []int32
}

// runDuplicate scans [begin,end) under a shared lock, staging matches into
// the table's pending-duplicate buffer (which has its own internal mutex),
// so concurrent DUPLICATE tasks over disjoint ranges never race each other
// or ordinary readers (spec.md §5.2).
func (t *task) runDuplicate() {
	tbl := t.query.table
	tbl.RLock()
	defer tbl.RUnlock()

	end := t.clampedEnd(tbl.Len())
	for pos := t.begin; pos < end; pos++ {
		row := tbl.RowAt(pos)
		if !t.query.conds.Eval(row) {
			continue
		}
		if err := tbl.ScheduleDuplicate(pos); err != nil {
			t.err = err
			return
		}
		t.counter++
	}
}

// runDeleteLocked removes matching rows from [begin,end) using swap-and-pop.
// Caller must already hold the table's exclusive lock for the whole query
// (see serialTask). EraseAt always swaps in the table's *global* tail row,
// which for any shard but the last one lies outside [begin,end), so this
// re-derives the live upper bound from the table's current length on every
// iteration rather than shrinking a locally-tracked bound. A locally shrunk
// bound would stop short of positions that now hold a still-unevaluated row
// pulled in from a later shard's territory; re-deriving it instead lets this
// task keep absorbing and correctly evaluating whatever lands in its own
// index range, however far it originated, while a later task's pos never
// regresses into an earlier task's already-settled range (its own pos only
// ever grows from its planned begin, which is at or past every prior task's
// end).
func (t *task) runDeleteLocked() {
	tbl := t.query.table
	pos := t.begin
	for pos < t.clampedEnd(tbl.Len()) {
		row := tbl.RowAt(pos)
		if !t.query.conds.Eval(row) {
			pos++
			continue
		}
		if _, err := tbl.EraseAt(pos); err != nil {
			t.err = err
			return
		}
		t.counter++
	}
}

// runUpdateLocked applies field assignments to matching rows in
// [begin,end). Caller must already hold the table's exclusive lock.
func (t *task) runUpdateLocked() {
	tbl := t.query.table
	end := t.clampedEnd(tbl.Len())
	for pos := t.begin; pos < end; pos++ {
		row := tbl.RowAt(pos)
		if !t.query.conds.Eval(row) {
			continue
		}
		for fieldIdx, v := range t.query.updateByIndex {
			if err := tbl.SetValueAt(pos, fieldIdx, v); err != nil {
				t.err = err
				return
			}
		}
		t.counter++
	}
}

// clampedEnd re-derives this task's live upper bound against the table's
// current length, since a prior task of the same destructive query may
// have shrunk it (DELETE) since this task's range was planned.
func (t *task) clampedEnd(tableLen int) int {
	if t.end > tableLen {
		return tableLen
	}
	return t.end
}

// rangeTask adapts a single task to engine.Task for the parallel
// (non-destructive) dispatch path: one rangeTask per shard, all runnable
// concurrently across the worker pool.
type rangeTask struct {
	t *task
}

func (r *rangeTask) Execute() {
	switch r.t.query.kind {
	case Duplicate:
		r.t.runDuplicate()
	default:
		r.t.runReadOnly()
	}
	r.t.query.noteCompleted(1, false)
}

func (r *rangeTask) Abort() {
	r.t.aborted = true
	r.t.query.noteCompleted(1, true)
}

// serialTask adapts an entire destructive query (every one of its tasks)
// to a single engine.Task, so DELETE and UPDATE hold the table's exclusive
// lock exactly once for the query's whole duration and their own ranges
// never run concurrently with each other (spec.md §5).
type serialTask struct {
	q *Query
}

func (s *serialTask) Execute() {
	tbl := s.q.table
	tbl.Lock()
	for _, t := range s.q.tasks {
		switch s.q.kind {
		case Delete:
			t.runDeleteLocked()
		case Update:
			t.runUpdateLocked()
		}
		if t.err != nil {
			break
		}
	}
	tbl.Unlock()
	s.q.noteCompleted(len(s.q.tasks), false)
}

func (s *serialTask) Abort() {
	for _, t := range s.q.tasks {
		t.aborted = true
	}
	s.q.noteCompleted(len(s.q.tasks), true)
}

// combineAggregate merges every task's partial SUM/MIN/MAX/AVG state.
// A field with no matching rows anywhere yields EmptyAggregate for
// MIN/MAX/AVG (there is no extremum or mean of an empty set); SUM instead
// yields the additive identity 0, matching spec.md §8's treatment of SUM
// as always well-defined.
func (q *Query) combineAggregate() *result.Result {
	var sum, avgSum, avgN int64
	var min, max int32
	found := false

	for _, t := range q.tasks {
		if !t.hasAgg {
			continue
		}
		if !found {
			min, max = t.minAgg, t.maxAgg
			found = true
		} else {
			if t.minAgg < min {
				min = t.minAgg
			}
			if t.maxAgg > max {
				max = t.maxAgg
			}
		}
		sum += t.sumAgg
		avgSum += t.avgSum
		avgN += t.avgN
	}

	switch q.kind {
	case Sum:
		return result.AggregateInt(sum)
	case Min:
		if !found {
			return result.EmptyAggregate()
		}
		return result.AggregateInt(int64(min))
	case Max:
		if !found {
			return result.EmptyAggregate()
		}
		return result.AggregateInt(int64(max))
	case Avg:
		if avgN == 0 {
			return result.EmptyAggregate()
		}
		quotient := new(decimal.Big).Quo(decimal.New(avgSum, 0), decimal.New(avgN, 0))
		return result.AggregateDecimal(quotient)
	default:
		return result.ErrorMsg(q.kind.String(), q.targetTable, "unreachable aggregate kind")
	}
}

var _ engine.Task = (*rangeTask)(nil)
var _ engine.Task = (*serialTask)(nil)
