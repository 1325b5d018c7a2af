package cond

// Op is a comparison operator usable in a Condition triple. Eq..Ge are the
// base language from spec.md §4.2; In/NotIn are SPEC_FULL sugar over a
// candidate set, still a single AND-able triple, not general disjunction.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Gt
	Le
	Ge
	In
	NotIn
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Ne:
		return "<>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	case In:
		return "IN"
	case NotIn:
		return "NOT IN"
	default:
		return "?"
	}
}

// ParseOp maps LemonDB's textual operators to an Op. In/NotIn have no
// textual spelling in the base op set; they are only reachable via the
// InSet constructor.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "=":
		return Eq, true
	case "<>":
		return Ne, true
	case "<":
		return Lt, true
	case ">":
		return Gt, true
	case "<=":
		return Le, true
	case ">=":
		return Ge, true
	default:
		return 0, false
	}
}
