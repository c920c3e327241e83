// Package value implements the dynamically typed scalar that item
// properties evaluate to and comparators test against.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	Null Kind = iota
	String
	Int
	Float
	Time
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TimeLayout is used to format Time values as strings.
const TimeLayout = "2006-01-02T15:04:05"

// timeLayouts are tried in order by Parse.
var timeLayouts = []string{
	time.RFC3339,
	TimeLayout,
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05", // exif
	"2006-01-02",
	"2006-01",
	"2006",
}

// Value is an immutable scalar. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// FromString wraps s. The empty string is not null.
func FromString(s string) Value { return Value{kind: String, s: s} }

// FromInt wraps i.
func FromInt(i int64) Value { return Value{kind: Int, i: i} }

// FromFloat wraps f.
func FromFloat(f float64) Value { return Value{kind: Float, f: f} }

// FromTime wraps t.
func FromTime(t time.Time) Value { return Value{kind: Time, t: t} }

// Kind returns the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == Null }

// Int returns the integer payload, converting floats by truncation.
func (v Value) Int() int64 {
	switch v.kind {
	case Int:
		return v.i
	case Float:
		return int64(v.f)
	case Time:
		return v.t.Unix()
	case String:
		i, _ := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		return i
	}
	return 0
}

// Float returns the numeric payload as a float.
func (v Value) Float() float64 {
	switch v.kind {
	case Int:
		return float64(v.i)
	case Float:
		return v.f
	case String:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f
	}
	return 0
}

// Time returns the time payload, or the zero time.
func (v Value) Time() time.Time {
	if v.kind == Time {
		return v.t
	}
	return time.Time{}
}

// String renders v. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Time:
		return v.t.Format(TimeLayout)
	}
	return ""
}

// Parse converts text to a value of the given kind. It reports false when
// text is not a valid literal of that kind. Parsing as Null always fails
// except for the literal "null".
func Parse(kind Kind, text string) (Value, bool) {
	switch kind {
	case String:
		return FromString(text), true
	case Int:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, false
		}
		return FromInt(i), true
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(f) {
			return Value{}, false
		}
		return FromFloat(f), true
	case Time:
		text = strings.TrimSpace(text)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
				return FromTime(t), true
			}
		}
		return Value{}, false
	case Null:
		if text == "null" {
			return NullValue(), true
		}
	}
	return Value{}, false
}

func numeric(k Kind) bool { return k == Int || k == Float }

// Compare orders a and b. It returns ok=false when the values are not
// ordered with respect to each other: either is null, or the kinds differ
// and are not both numeric.
func Compare(a, b Value) (int, bool) {
	if a.kind == Null || b.kind == Null {
		return 0, false
	}

	switch {
	case a.kind == Int && b.kind == Int:
		return cmpOrdered(a.i, b.i), true
	case numeric(a.kind) && numeric(b.kind):
		return cmpOrdered(a.Float(), b.Float()), true
	case a.kind != b.kind:
		return 0, false
	case a.kind == String:
		return strings.Compare(a.s, b.s), true
	case a.kind == Time:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether a and b hold the same value. Null equals only null.
func Equal(a, b Value) bool {
	if a.kind == Null || b.kind == Null {
		return a.kind == b.kind
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Less is a total order usable for sorting: null sorts first, then values
// of different kinds by kind, then by Compare.
func Less(a, b Value) bool {
	if c, ok := Compare(a, b); ok {
		return c < 0
	}
	return a.kind < b.kind
}
