// Package comparator parses comparator expressions such as "<=5", "~cat",
// ":^IMG_\d+" or "~null" into predicates over value.Value.
package comparator

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/fortemezzo/cbird/internal/value"
)

// Op is a comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpLessEqual
	OpGreaterEqual
	OpLess
	OpGreater
	OpContains
	OpNotContains
	OpRegexp
	OpIsNull
)

// NullLiteral selects the null test.
const NullLiteral = "~null"

// operators are matched against the expression prefix in this order, so
// two character operators always win over their one character prefixes.
var operators = []struct {
	token string
	op    Op
}{
	{"==", OpEqual},
	{"!=", OpNotEqual},
	{"<=", OpLessEqual},
	{">=", OpGreaterEqual},
	{"=", OpEqual},
	{"<", OpLess},
	{">", OpGreater},
	{"~", OpContains},
	{"!", OpNotContains},
}

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLessEqual:
		return "<="
	case OpGreaterEqual:
		return ">="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpContains:
		return "~"
	case OpNotContains:
		return "!"
	case OpRegexp:
		return ":"
	case OpIsNull:
		return NullLiteral
	}
	return "?"
}

// SyntaxError reports an invalid regular expression in a comparator.
type SyntaxError struct {
	Pattern string
	// Offset is the byte offset of the offending text within Pattern.
	Offset int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid regular expression %q at offset %d: %v", e.Pattern, e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Comparator is a parsed comparator expression. It is immutable and safe
// for concurrent use.
type Comparator struct {
	op      Op
	operand string
	re      *regexp.Regexp
}

// New parses expr.
func New(expr string) (*Comparator, error) {
	if expr == NullLiteral {
		return &Comparator{op: OpIsNull}, nil
	}

	if pattern, ok := strings.CutPrefix(expr, ":"); ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, newSyntaxError(pattern, err)
		}
		return &Comparator{op: OpRegexp, operand: pattern, re: re}, nil
	}

	for _, o := range operators {
		if rest, ok := strings.CutPrefix(expr, o.token); ok {
			return &Comparator{op: o.op, operand: rest}, nil
		}
	}

	return &Comparator{op: OpEqual, operand: expr}, nil
}

// MustNew is like New but panics on error. For literals in code and tests.
func MustNew(expr string) *Comparator {
	c, err := New(expr)
	if err != nil {
		panic(err)
	}
	return c
}

func newSyntaxError(pattern string, err error) *SyntaxError {
	offset := 0
	var serr *syntax.Error
	if errors.As(err, &serr) && serr.Expr != "" {
		if i := strings.Index(pattern, serr.Expr); i >= 0 {
			offset = i
		}
	}
	return &SyntaxError{Pattern: pattern, Offset: offset, Err: err}
}

// Op returns the detected operator.
func (c *Comparator) Op() Op { return c.op }

// Operand returns the text after the operator.
func (c *Comparator) Operand() string { return c.operand }

func (c *Comparator) String() string {
	switch c.op {
	case OpIsNull:
		return NullLiteral
	case OpRegexp:
		return ":" + c.operand
	}
	return c.op.String() + c.operand
}

// Matches evaluates the comparator against v.
func (c *Comparator) Matches(v value.Value) bool {
	switch c.op {
	case OpIsNull:
		return v.IsNull()
	case OpRegexp:
		return c.re.MatchString(v.String())
	case OpContains:
		return strings.Contains(v.String(), c.operand)
	case OpNotContains:
		return !strings.Contains(v.String(), c.operand)
	}

	if v.IsNull() {
		return c.op == OpNotEqual
	}

	rhs, ok := value.Parse(v.Kind(), c.operand)
	lhs := v
	if !ok {
		lhs, rhs = value.FromString(v.String()), value.FromString(c.operand)
	}

	cmp, ok := value.Compare(lhs, rhs)
	if !ok {
		return c.op == OpNotEqual
	}

	switch c.op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	}
	return false
}
