package typeChecker

import (
	"github.com/xplshn/mpc/pkg/numtab"
	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/token"
)

// Value is the resolved form of an expression: a literal, a reference to a
// symbol-table backed location, the result of a sub-expression, or a comparison.
type Value interface {
	Class() token.Class
	Type() token.Type
	// Const is the folded constant, or numtab.None.
	Const() numtab.Index
	// Ident is the backing identifier, or strtab.NoID.
	Ident() strtab.ID
}

type Literal struct {
	Typ   token.Type
	Index numtab.Index
}

type Variable struct {
	Cls token.Class
	Typ token.Type
	ID  strtab.ID
}

type Result struct {
	Cls   token.Class
	Typ   token.Type
	Index numtab.Index
}

// Comparison is the integer result of a relational operator. The operator
// is kept so a guard can branch on it directly.
type Comparison struct {
	Op    token.Op
	Index numtab.Index
}

func (Literal) Class() token.Class    { return token.Scalar }
func (l Literal) Type() token.Type    { return l.Typ }
func (l Literal) Const() numtab.Index { return l.Index }
func (Literal) Ident() strtab.ID      { return strtab.NoID }

func (v Variable) Class() token.Class { return v.Cls }
func (v Variable) Type() token.Type   { return v.Typ }
func (Variable) Const() numtab.Index  { return numtab.None }
func (v Variable) Ident() strtab.ID   { return v.ID }

func (r Result) Class() token.Class  { return r.Cls }
func (r Result) Type() token.Type    { return r.Typ }
func (r Result) Const() numtab.Index { return r.Index }
func (Result) Ident() strtab.ID      { return strtab.NoID }

func (Comparison) Class() token.Class    { return token.Scalar }
func (Comparison) Type() token.Type      { return token.Integer }
func (c Comparison) Const() numtab.Index { return c.Index }
func (Comparison) Ident() strtab.ID      { return strtab.NoID }

// Placeholders handed back after an error so analysis can continue.
var (
	undefinedValue  = Result{Cls: token.NoClass, Typ: token.Undefined, Index: numtab.None}
	undefinedScalar = Result{Cls: token.Scalar, Typ: token.Undefined, Index: numtab.None}
)

// IsUndefined reports whether v is an error placeholder.
func IsUndefined(v Value) bool { return v == nil || v.Type() == token.Undefined && v.Class() != token.Routine }
