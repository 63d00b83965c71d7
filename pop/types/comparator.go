package types

// Comparator relates an observed attribute to a filter operand.
// The zero Comparator is unset.
type Comparator uint8

const (
	CmpUnset Comparator = iota
	Equal
	NotEqual
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
)

// IsSet reports whether c names an actual comparison.
func (c Comparator) IsSet() bool { return c >= Equal && c <= LessOrEqual }

// IsOrdering reports whether c requires an ordered value kind.
func (c Comparator) IsOrdering() bool { return c >= Greater && c <= LessOrEqual }

// Holds applies c to the result of comparing the observed value against the
// operand (negative, zero or positive).
func (c Comparator) Holds(order int) bool {
	switch c {
	case Equal:
		return order == 0
	case NotEqual:
		return order != 0
	case Greater:
		return order > 0
	case GreaterOrEqual:
		return order >= 0
	case Less:
		return order < 0
	case LessOrEqual:
		return order <= 0
	default:
		return false
	}
}

// HoldsInt64 compares observed against operand.
func (c Comparator) HoldsInt64(observed, operand int64) bool {
	return c.Holds(cmpInt64(observed, operand))
}

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case Greater:
		return ">"
	case GreaterOrEqual:
		return ">="
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	default:
		return "<unset>"
	}
}
