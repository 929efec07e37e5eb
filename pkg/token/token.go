package token

import (
	"fmt"
	"strings"
)

// Type is the primitive datatype of a symbol or expression. The order matters:
// mixing two primitives promotes to the greater one.
type Type int

const (
	Undefined Type = iota
	Integer
	Real
)

// Class is the coarse kind of a symbol.
type Class int

const (
	NoClass Class = iota
	Scalar
	Vector
	Routine
)

// Op is an arithmetic or relational operator tag.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Le
	Eq
	Ge
	Gt
	Ne
)

var typeNames = map[Type]string{
	Undefined: "Undefined",
	Integer:   "Integer",
	Real:      "Real",
}

var classNames = map[Class]string{
	NoClass: "Undefined",
	Scalar:  "Scalar",
	Vector:  "Vector",
	Routine: "Routine",
}

// OpMap maps the source spelling of an operator to its tag.
var OpMap = map[string]Op{
	"+":   Add,
	"-":   Sub,
	"*":   Mul,
	"/":   Div,
	"div": Div,
	"mod": Mod,
	"%":   Mod,
	"<":   Lt,
	"<=":  Le,
	"=":   Eq,
	"==":  Eq,
	">=":  Ge,
	">":   Gt,
	"<>":  Ne,
	"!=":  Ne,
}

// C spelling of every operator.
var opStrings = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Lt: "<", Le: "<=", Eq: "==", Ge: ">=", Gt: ">", Ne: "!=",
}

var inverse = map[Op]Op{
	Lt: Ge, Le: Gt, Eq: Ne, Ge: Lt, Gt: Le, Ne: Eq,
}

// TypeMap maps the source spelling of a primitive type to its tag.
var TypeMap = map[string]Type{
	"":          Undefined,
	"undefined": Undefined,
	"integer":   Integer,
	"real":      Real,
}

// ClassMap maps the source spelling of a class to its tag.
var ClassMap = map[string]Class{
	"":          Scalar,
	"undefined": NoClass,
	"scalar":    Scalar,
	"vector":    Vector,
	"array":     Vector,
	"routine":   Routine,
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("(Unknown Token-Type %d)", int(t))
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("(Unknown Token-Class %d)", int(c))
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, ok := TypeMap[strings.ToLower(string(b))]
	if !ok {
		return fmt.Errorf("token: unknown type %q", b)
	}
	*t = v
	return nil
}

func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Class) UnmarshalText(b []byte) error {
	v, ok := ClassMap[strings.ToLower(string(b))]
	if !ok {
		return fmt.Errorf("token: unknown class %q", b)
	}
	*c = v
	return nil
}

// IsPrimitive reports whether t is a concrete datatype.
func (t Type) IsPrimitive() bool { return t == Integer || t == Real }

// CType returns the C spelling of t. Undefined is a procedure's return type.
func (t Type) CType() string {
	switch t {
	case Undefined:
		return "void"
	case Integer:
		return "int"
	case Real:
		return "double"
	}
	panic(fmt.Sprintf("token: unknown token-type %d", int(t)))
}

// Max returns the promoted type of a and b.
func Max(a, b Type) Type {
	if a > b {
		return a
	}
	return b
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opStrings) {
		return fmt.Sprintf("(Unknown Operator %d)", int(o))
	}
	return opStrings[o]
}

func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Op) UnmarshalText(b []byte) error {
	v, ok := OpMap[strings.ToLower(string(b))]
	if !ok {
		return fmt.Errorf("token: unknown operator %q", b)
	}
	*o = v
	return nil
}

// C returns the C spelling of o and panics on an unknown operator.
func (o Op) C() string {
	if o < 0 || int(o) >= len(opStrings) {
		panic(fmt.Sprintf("token: unknown operator %d", int(o)))
	}
	return opStrings[o]
}

// IsRelational reports whether o compares its operands.
func (o Op) IsRelational() bool { return o >= Lt && o <= Ne }

// Invert returns the logical negation of a relational operator.
func (o Op) Invert() Op {
	inv, ok := inverse[o]
	if !ok {
		panic(fmt.Sprintf("token: operator %q has no inverse", o.String()))
	}
	return inv
}

// Pos is a location in the source program as reported by the external parser.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"col"`
	Len    int `json:"len,omitempty"`
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if p.Column > 0 {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%d", p.Line)
}
