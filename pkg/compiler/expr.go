package compiler

import (
	"github.com/xplshn/mpc/pkg/ast"
	"github.com/xplshn/mpc/pkg/codegen"
	"github.com/xplshn/mpc/pkg/numtab"
	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/token"
	"github.com/xplshn/mpc/pkg/typeChecker"
	"github.com/xplshn/mpc/pkg/util"
)

// expr is a resolved expression tree. It is built completely before any of
// it is emitted, so folded subtrees never reach the generator.
type expr struct {
	n    *ast.Node
	val  typeChecker.Value
	id   strtab.ID
	op   token.Op
	kids []*expr
	// call is set for a function call, ok when the call may be emitted.
	call, ok bool
}

func (d *driver) resolve(n *ast.Node) *expr {
	e := &expr{n: n, id: strtab.NoID}
	switch v := n.Data.(type) {
	case ast.IntNode:
		e.val = d.tc.Literal(token.Integer, float64(v.Value))
	case ast.RealNode:
		e.val = d.tc.Literal(token.Real, v.Value)
	case ast.IdentNode:
		e.id = d.cc.Names.Intern(v.Name)
		e.val = d.tc.Reference(n.Pos, e.id)
		if e.val.Class() == token.Routine {
			// A bare function name calls it without arguments.
			e.call = true
			e.val, e.ok = d.tc.ResolveCall(n.Pos, e.id, nil, true)
		}
	case ast.IndexNode:
		e.id = d.cc.Names.Intern(v.Name)
		e.kids = []*expr{d.resolve(v.Index)}
		e.val = d.tc.ResolveIndex(n.Pos, e.id, e.kids[0].val)
	case ast.CallNode:
		e.id = d.cc.Names.Intern(v.Name)
		e.kids = d.resolveList(v.Args)
		e.call = true
		e.val, e.ok = d.tc.ResolveCall(n.Pos, e.id, values(e.kids), true)
	case ast.UnaryNode:
		e.op = v.Op
		e.kids = []*expr{d.resolve(v.Expr)}
		e.val = d.tc.ApplySign(v.Op, e.kids[0].val)
	case ast.BinaryNode:
		e.op = v.Op
		e.kids = []*expr{d.resolve(v.Left), d.resolve(v.Right)}
		if v.Op.IsRelational() {
			e.val = d.tc.ResolveBool(n.Pos, v.Op, e.kids[0].val, e.kids[1].val)
		} else {
			e.val = d.tc.ResolveArith(n.Pos, v.Op, e.kids[0].val, e.kids[1].val)
		}
	default:
		util.Internalf("resolve", "%s is not an expression", n.Type)
	}
	return e
}

func (d *driver) resolveList(list []*ast.Node) []*expr {
	out := make([]*expr, len(list))
	for i, n := range list {
		out[i] = d.resolve(n)
	}
	return out
}

func values(list []*expr) []typeChecker.Value {
	out := make([]typeChecker.Value, len(list))
	for i, e := range list {
		out[i] = e.val
	}
	return out
}

// placeholder keeps the output well formed where an expression failed to resolve.
func (d *driver) placeholder(typ token.Type) codegen.Temp {
	if !typ.IsPrimitive() {
		typ = token.Integer
	}
	return d.gen.EmitConst(typ, 0)
}

func (d *driver) emit(e *expr) codegen.Temp {
	if c := e.val.Const(); c != numtab.None {
		v, _ := d.cc.Consts.Get(c)
		return d.gen.EmitConst(e.val.Type(), v)
	}
	if e.call {
		if !e.ok || typeChecker.IsUndefined(e.val) {
			return d.placeholder(e.val.Type())
		}
		return d.gen.EmitCall(e.val.Type(), d.cc.Names.Name(e.id), d.args(e.kids))
	}
	if typeChecker.IsUndefined(e.val) {
		return d.placeholder(token.Integer)
	}

	switch v := e.n.Data.(type) {
	case ast.IdentNode:
		return d.gen.EmitIdentRef(e.val.Class(), e.val.Type(), v.Name)
	case ast.IndexNode:
		idx := d.emit(e.kids[0])
		return d.gen.EmitVectorIndex(e.val.Type(), v.Name, idx, d.lower(e.id))
	case ast.UnaryNode:
		x := d.emit(e.kids[0])
		return d.gen.EmitUnary(e.val.Type(), e.op, x)
	case ast.BinaryNode:
		if e.op.IsRelational() {
			diff := d.compare(e)
			return d.gen.EmitBoolValue(e.op, diff)
		}
		x := d.emit(e.kids[0])
		y := d.emit(e.kids[1])
		return d.gen.EmitArith(e.val.Type(), e.op, x, y)
	}
	util.Internalf("emit", "unexpected %s expression", e.n.Type)
	return 0
}

// compare emits the difference of a relational expression's operands.
func (d *driver) compare(e *expr) codegen.Temp {
	l, r := e.kids[0], e.kids[1]
	x := d.emit(l)
	y := d.emit(r)
	return d.gen.EmitBoolCompare(token.Max(l.val.Type(), r.val.Type()), x, y)
}

// cond emits a guard and returns the temporary and operator to branch on.
// Anything but a live comparison is tested against zero.
func (d *driver) cond(e *expr) (codegen.Temp, token.Op) {
	if _, ok := e.val.(typeChecker.Comparison); ok && e.val.Const() == numtab.None {
		return d.compare(e), e.op
	}
	return d.emit(e), token.Ne
}

// args emits call or I/O arguments. Named locations are passed by name.
func (d *driver) args(list []*expr) []codegen.Arg {
	out := make([]codegen.Arg, len(list))
	for i, e := range list {
		if v, ok := e.val.(typeChecker.Variable); ok && e.n.Type == ast.Ident {
			out[i] = codegen.Arg{Type: v.Typ, Class: v.Cls, Name: d.cc.Names.Name(v.ID)}
			continue
		}
		out[i] = codegen.Arg{Type: e.val.Type(), Class: token.Scalar, Temp: d.emit(e)}
	}
	return out
}

func (d *driver) lower(id strtab.ID) int {
	if v := d.tc.Entry(id, token.Vector).Vector; v != nil {
		return v.Lower
	}
	return 0
}
