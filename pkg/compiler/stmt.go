package compiler

import (
	"github.com/xplshn/mpc/pkg/ast"
	"github.com/xplshn/mpc/pkg/token"
	"github.com/xplshn/mpc/pkg/typeChecker"
	"github.com/xplshn/mpc/pkg/util"
)

func (d *driver) stmts(list []*ast.Node) {
	for _, s := range list {
		d.stmt(s)
	}
}

func (d *driver) stmt(n *ast.Node) {
	switch s := n.Data.(type) {
	case ast.AssignNode:
		d.assign(n, s)
	case ast.CallNode:
		id := d.cc.Names.Intern(s.Name)
		args := d.resolveList(s.Args)
		if _, ok := d.tc.ResolveCall(n.Pos, id, values(args), false); ok {
			d.gen.EmitProcCall(s.Name, d.args(args))
		}
	case ast.CompoundNode:
		d.stmts(s.Body)
	case ast.IfNode:
		d.ifStmt(n, s)
	case ast.WhileNode:
		d.whileStmt(n, s)
	case ast.ReadlnNode:
		args := d.resolveList(s.Args)
		if d.tc.VerifyReadArgs(n.Pos, values(args)) {
			d.gen.EmitRead(d.args(args))
		}
	case ast.WritelnNode:
		args := d.resolveList(s.Args)
		if d.tc.VerifyWriteArgs(n.Pos, values(args)) {
			d.gen.EmitWrite(d.args(args))
		}
	default:
		util.Internalf("stmt", "%s is not a statement", n.Type)
	}
}

func (d *driver) assign(n *ast.Node, s ast.AssignNode) {
	switch t := s.Target.Data.(type) {
	case ast.IdentNode:
		id := d.cc.Names.Intern(t.Name)
		target := d.tc.Reference(s.Target.Pos, id)
		value := d.resolve(s.Value)
		v, ok := target.(typeChecker.Variable)
		if !ok {
			return
		}
		if v.Cls == token.Vector {
			d.diag.Errorf(util.ClassMismatch, n.Pos, "vector '%s' must be indexed to be assigned", t.Name)
			return
		}
		d.tc.VerifyAssignment(n.Pos, v, value.val)
		if v.Cls != token.Scalar {
			return
		}
		d.gen.EmitScalarStore(t.Name, d.emit(value))

	case ast.IndexNode:
		id := d.cc.Names.Intern(t.Name)
		index := d.resolve(t.Index)
		elem := d.tc.ResolveIndex(s.Target.Pos, id, index.val)
		value := d.resolve(s.Value)
		if typeChecker.IsUndefined(elem) {
			return
		}
		d.tc.VerifyAssignment(n.Pos, typeChecker.Variable{Cls: token.Vector, Typ: elem.Type(), ID: id}, value.val)
		ti := d.emit(index)
		tv := d.emit(value)
		d.gen.EmitVectorStore(t.Name, ti, d.lower(id), tv)

	default:
		util.Internalf("assign", "%s is not assignable", s.Target.Type)
	}
}

// An if without else skips its branch through one label:
//
//	if (inv) goto L; then; L: ;
//
// With an else it uses two:
//
//	if (inv) goto L; then; goto L+1; L: ; else; L+1: ;
func (d *driver) ifStmt(n *ast.Node, s ast.IfNode) {
	c := d.resolve(s.Cond)
	d.tc.VerifyGuard(s.Cond.Pos, c.val)

	if s.Else == nil {
		end := d.gen.ReserveLabels(1)
		t, op := d.cond(c)
		d.gen.EmitBranch(t, op)
		d.gen.EmitGoto(end)
		d.stmt(s.Then)
		d.gen.EmitLabel(end)
		return
	}

	els := d.gen.ReserveLabels(2)
	end := els + 1
	t, op := d.cond(c)
	d.gen.EmitBranch(t, op)
	d.gen.EmitGoto(els)
	d.stmt(s.Then)
	d.gen.EmitGoto(end)
	d.gen.EmitLabel(els)
	d.stmt(s.Else)
	d.gen.EmitLabel(end)
}

//	L: ; cond; if (inv) goto L+1; body; goto L; L+1: ;
func (d *driver) whileStmt(n *ast.Node, s ast.WhileNode) {
	c := d.resolve(s.Cond)
	d.tc.VerifyGuard(s.Cond.Pos, c.val)

	top := d.gen.ReserveLabels(2)
	end := top + 1
	d.gen.EmitLabel(top)
	t, op := d.cond(c)
	d.gen.EmitBranch(t, op)
	d.gen.EmitGoto(end)
	d.stmt(s.Body)
	d.gen.EmitGoto(top)
	d.gen.EmitLabel(end)
}
