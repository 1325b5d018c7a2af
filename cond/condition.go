// Package cond implements LemonDB's condition evaluator: a conjunction of
// (field, op, value) triples checked against one row at a time.
//
// Grounded on blockwatch-cc-packdb's pack.Condition/pack.ConditionList
// (condition.go) — the Field/Mode/Raw/Value shape, the Compile step that
// resolves and pre-validates a condition against a schema once up front,
// and the xxhash-backed IN-list fast path — generalized from packdb's
// multi-typed columnar fields down to LemonDB's two value domains: signed
// 32-bit integers for value fields and lexicographic text for the "KEY"
// pseudo-field (spec.md §4.2).
package cond

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash"

	"lemondb.dev/lemondb/lemonerr"
	"lemondb.dev/lemondb/table"
)

// Row is anything a Condition can be evaluated against: a key plus
// positionally-indexed values. table.RowView satisfies this.
type Row interface {
	Key() string
	Value(fieldIndex int) int32
}

const hashThreshold = 4

type hashslot struct {
	hash uint64
	pos  int
}

// Condition is one (field, op, value) triple. Field may be table.KeyField,
// in which case comparisons are lexicographic over Values/Raw text;
// otherwise comparisons are signed-integer over the parsed literal(s).
type Condition struct {
	Field  string
	Op     Op
	Raw    string   // literal text, for Eq/Ne/Lt/Gt/Le/Ge
	Values []string // candidate set, for In/NotIn

	isKey      bool
	fieldIndex int
	intValue   int32
	keySet     map[string]struct{}
	intSet     map[int32]struct{}
	hashmap    map[uint64]int
	overflow   []hashslot
}

// New builds an uncompiled single-value condition.
func New(field string, op Op, value string) Condition {
	return Condition{Field: field, Op: op, Raw: value}
}

// InSet builds an uncompiled IN (or NOT IN) condition over a candidate set.
func InSet(field string, op Op, values ...string) Condition {
	return Condition{Field: field, Op: op, Values: values}
}

// List is a conjunction of conditions; an empty List is vacuously true
// (spec.md §4.2).
type List []Condition

// Compile resolves every condition's field against fields, pre-parses its
// literal(s), and builds the IN/NOT-IN fast-path lookup tables. It returns
// ErrIllFormedCondition immediately (query-planning time) for an unknown
// field or an unparsable literal, per Design Notes §9's recommended
// resolution of the condition-error open question.
func (l List) Compile(fields table.FieldSet) (List, error) {
	out := make(List, len(l))
	for i, c := range l {
		compiled, err := c.compile(fields)
		if err != nil {
			log.Debugf("cond: compile failed for field %q op %s: %v", c.Field, c.Op, err)
			return nil, err
		}
		out[i] = compiled
	}
	return out, nil
}

func (c Condition) compile(fields table.FieldSet) (Condition, error) {
	if c.Field == table.KeyField {
		c.isKey = true
		c.fieldIndex = -1
	} else {
		idx, ok := fields.IndexOf(c.Field)
		if !ok {
			return Condition{}, lemonerr.Wrapf(lemonerr.ErrIllFormedCondition, "unknown field %q", c.Field)
		}
		c.fieldIndex = idx
	}

	switch c.Op {
	case In, NotIn:
		if len(c.Values) == 0 {
			return Condition{}, lemonerr.Wrapf(lemonerr.ErrIllFormedCondition, "IN/NOT IN on %q requires at least one value", c.Field)
		}
		if c.isKey {
			c.keySet = make(map[string]struct{}, len(c.Values))
			for _, v := range c.Values {
				c.keySet[v] = struct{}{}
			}
			c.buildKeyHash()
		} else {
			c.intSet = make(map[int32]struct{}, len(c.Values))
			for _, v := range c.Values {
				n, err := parseInt32(v)
				if err != nil {
					return Condition{}, lemonerr.Wrapf(lemonerr.ErrIllFormedCondition, "field %q: %v", c.Field, err)
				}
				c.intSet[n] = struct{}{}
			}
		}
	default:
		if c.isKey {
			// lexicographic text comparison, nothing further to parse
		} else {
			n, err := parseInt32(c.Raw)
			if err != nil {
				return Condition{}, lemonerr.Wrapf(lemonerr.ErrIllFormedCondition, "field %q: %v", c.Field, err)
			}
			c.intValue = n
		}
	}
	return c, nil
}

// buildKeyHash mirrors pack/condition.go's hash-then-verify IN
// fast path for string/bytes fields: once a candidate set is large enough
// to be worth it, hash each candidate with xxhash and record collisions
// in an overflow chain rather than falling back to N string compares.
func (c *Condition) buildKeyHash() {
	if len(c.Values) < hashThreshold {
		return
	}
	sorted := append([]string(nil), c.Values...)
	sort.Strings(sorted)
	c.hashmap = make(map[uint64]int, len(sorted))
	for i, v := range sorted {
		sum := xxhash.Sum64([]byte(v))
		if _, exists := c.hashmap[sum]; !exists {
			c.hashmap[sum] = i
		} else {
			c.overflow = append(c.overflow, hashslot{hash: sum, pos: i})
		}
	}
	c.Values = sorted
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

// Eval reports whether row satisfies every condition in the list.
func (l List) Eval(row Row) bool {
	for _, c := range l {
		if !c.eval(row) {
			return false
		}
	}
	return true
}

func (c Condition) eval(row Row) bool {
	if c.isKey {
		return c.evalKey(row.Key())
	}
	return c.evalInt(row.Value(c.fieldIndex))
}

func (c Condition) evalKey(key string) bool {
	switch c.Op {
	case Eq:
		return key == c.Raw
	case Ne:
		return key != c.Raw
	case Lt:
		return key < c.Raw
	case Gt:
		return key > c.Raw
	case Le:
		return key <= c.Raw
	case Ge:
		return key >= c.Raw
	case In:
		return c.keyMatches(key)
	case NotIn:
		return !c.keyMatches(key)
	default:
		return false
	}
}

func (c Condition) keyMatches(key string) bool {
	if c.hashmap == nil {
		_, ok := c.keySet[key]
		return ok
	}
	sum := xxhash.Sum64([]byte(key))
	if pos, ok := c.hashmap[sum]; ok {
		if c.Values[pos] == key {
			return true
		}
	}
	for _, o := range c.overflow {
		if o.hash == sum && c.Values[o.pos] == key {
			return true
		}
	}
	return false
}

func (c Condition) evalInt(v int32) bool {
	switch c.Op {
	case Eq:
		return v == c.intValue
	case Ne:
		return v != c.intValue
	case Lt:
		return v < c.intValue
	case Gt:
		return v > c.intValue
	case Le:
		return v <= c.intValue
	case Ge:
		return v >= c.intValue
	case In:
		_, ok := c.intSet[v]
		return ok
	case NotIn:
		_, ok := c.intSet[v]
		return !ok
	default:
		return false
	}
}
