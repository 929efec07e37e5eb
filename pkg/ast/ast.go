// Package ast defines the parsed constructs the external parser hands to the
// compiler core, and their JSON encoding.
package ast

import (
	"fmt"

	"github.com/xplshn/mpc/pkg/token"
)

// NodeType defines the kind of a statement or expression node
type NodeType int

const (
	// Expressions
	Int NodeType = iota
	Real
	Ident
	Index
	Call
	Unary
	Binary

	// Statements
	Assign
	Compound
	If
	While
	Readln
	Writeln
)

var kindNames = [...]string{
	Int: "int", Real: "real", Ident: "ident", Index: "index", Call: "call",
	Unary: "unary", Binary: "binary", Assign: "assign", Compound: "compound",
	If: "if", While: "while", Readln: "readln", Writeln: "writeln",
}

// KindMap maps the "kind" field of an encoded node to its type.
var KindMap = func() map[string]NodeType {
	m := make(map[string]NodeType, len(kindNames))
	for nt, s := range kindNames {
		m[s] = NodeType(nt)
	}
	return m
}()

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(kindNames) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return kindNames[t]
}

// Node is a statement or an expression. Data holds the *Node struct
// matching Type.
type Node struct {
	Type NodeType
	Pos  token.Pos
	Data interface{}
}

// --- Node Data Structs ---
type IntNode struct {
	Value int64 `json:"value"`
}
type RealNode struct {
	Value float64 `json:"value"`
}
type IdentNode struct {
	Name string `json:"name"`
}
type IndexNode struct {
	Name  string `json:"name"`
	Index *Node  `json:"index"`
}

// CallNode is a function call inside an expression, or a procedure call
// statement.
type CallNode struct {
	Name string  `json:"name"`
	Args []*Node `json:"args"`
}
type UnaryNode struct {
	Op   token.Op `json:"op"`
	Expr *Node    `json:"expr"`
}
type BinaryNode struct {
	Op    token.Op `json:"op"`
	Left  *Node    `json:"left"`
	Right *Node    `json:"right"`
}
type AssignNode struct {
	Target *Node `json:"target"`
	Value  *Node `json:"value"`
}
type CompoundNode struct {
	Body []*Node `json:"body"`
}
type IfNode struct {
	Cond *Node `json:"cond"`
	Then *Node `json:"then"`
	Else *Node `json:"else,omitempty"`
}
type WhileNode struct {
	Cond *Node `json:"cond"`
	Body *Node `json:"body"`
}
type ReadlnNode struct {
	Args []*Node `json:"args"`
}
type WritelnNode struct {
	Args []*Node `json:"args"`
}

// Desc is the declared shape of a variable or parameter. A vector spans
// Lower..Upper inclusive.
type Desc struct {
	Class token.Class `json:"class"`
	Type  token.Type  `json:"type"`
	Lower int         `json:"lower,omitempty"`
	Upper int         `json:"upper,omitempty"`
}

// Len is the number of elements of a vector.
func (d Desc) Len() int { return d.Upper - d.Lower + 1 }

// VarDecl declares one or more names sharing a Desc.
type VarDecl struct {
	Pos   token.Pos `json:"pos"`
	Names []string  `json:"names"`
	Type  Desc      `json:"type"`
}

// Routine is a function, or a procedure when Return is Undefined.
type Routine struct {
	Pos    token.Pos  `json:"pos"`
	Name   string     `json:"name"`
	Return token.Type `json:"return"`
	Params []VarDecl  `json:"params"`
	Vars   []VarDecl  `json:"vars"`
	Body   []*Node    `json:"body"`
}

// IsFunction reports whether r returns a value.
func (r *Routine) IsFunction() bool { return r.Return != token.Undefined }

type Program struct {
	Pos      token.Pos `json:"pos"`
	Name     string    `json:"name"`
	Vars     []VarDecl `json:"vars"`
	Routines []Routine `json:"routines"`
	Body     []*Node   `json:"body"`
}

func newNode(pos token.Pos, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Pos: pos, Data: data}
}

func NewInt(pos token.Pos, value int64) *Node { return newNode(pos, Int, IntNode{Value: value}) }
func NewReal(pos token.Pos, value float64) *Node {
	return newNode(pos, Real, RealNode{Value: value})
}
func NewIdent(pos token.Pos, name string) *Node { return newNode(pos, Ident, IdentNode{Name: name}) }
func NewIndex(pos token.Pos, name string, index *Node) *Node {
	return newNode(pos, Index, IndexNode{Name: name, Index: index})
}
func NewCall(pos token.Pos, name string, args []*Node) *Node {
	return newNode(pos, Call, CallNode{Name: name, Args: args})
}
func NewUnary(pos token.Pos, op token.Op, expr *Node) *Node {
	return newNode(pos, Unary, UnaryNode{Op: op, Expr: expr})
}
func NewBinary(pos token.Pos, op token.Op, left, right *Node) *Node {
	return newNode(pos, Binary, BinaryNode{Op: op, Left: left, Right: right})
}
func NewAssign(pos token.Pos, target, value *Node) *Node {
	return newNode(pos, Assign, AssignNode{Target: target, Value: value})
}
func NewCompound(pos token.Pos, body []*Node) *Node {
	return newNode(pos, Compound, CompoundNode{Body: body})
}
func NewIf(pos token.Pos, cond, then, els *Node) *Node {
	return newNode(pos, If, IfNode{Cond: cond, Then: then, Else: els})
}
func NewWhile(pos token.Pos, cond, body *Node) *Node {
	return newNode(pos, While, WhileNode{Cond: cond, Body: body})
}
func NewReadln(pos token.Pos, args []*Node) *Node {
	return newNode(pos, Readln, ReadlnNode{Args: args})
}
func NewWriteln(pos token.Pos, args []*Node) *Node {
	return newNode(pos, Writeln, WritelnNode{Args: args})
}

// Scalar and Vector build declaration shapes.
func Scalar(typ token.Type) Desc { return Desc{Class: token.Scalar, Type: typ} }
func Vector(typ token.Type, lower, upper int) Desc {
	return Desc{Class: token.Vector, Type: typ, Lower: lower, Upper: upper}
}
