package compiler

import (
	"io"

	"github.com/xplshn/mpc/pkg/ast"
	"github.com/xplshn/mpc/pkg/codegen"
	"github.com/xplshn/mpc/pkg/symtab"
	"github.com/xplshn/mpc/pkg/token"
	"github.com/xplshn/mpc/pkg/typeChecker"
)

func (d *driver) decls(list []ast.VarDecl) []typeChecker.Decl {
	var out []typeChecker.Decl
	for _, vd := range list {
		for _, name := range vd.Names {
			decl := typeChecker.Decl{
				ID:    d.cc.Names.Intern(name),
				Class: vd.Type.Class,
				Type:  vd.Type.Type,
				Pos:   vd.Pos,
			}
			if vd.Type.Class == token.Vector {
				decl.Vector = &symtab.VectorInfo{Lower: vd.Type.Lower, Length: vd.Type.Len()}
			}
			out = append(out, decl)
		}
	}
	return out
}

// declare installs variables in the current scope and declares the ones
// that were accepted.
func (d *driver) declare(list []ast.VarDecl) {
	for _, decl := range d.tc.InstallVarList(d.decls(list)) {
		name := d.cc.Names.Name(decl.ID)
		if decl.Class == token.Vector {
			d.gen.EmitVectorDecl(decl.Type, name, decl.Vector.Length)
		} else {
			d.gen.EmitScalarDecl(decl.Type, name)
		}
	}
}

func (d *driver) routine(r *ast.Routine) {
	id := d.cc.Names.Intern(r.Name)
	log := d.log.With().Str("routine", r.Name).Logger()

	if !d.tc.InstallRoutine(r.Pos, id, r.Return) {
		// Check the body anyway so its diagnostics are reported, but keep
		// its text out of the output.
		log.Debug().Msg("redefinition, checking body only")
		out := d.gen
		d.gen = codegen.NewGenerator(io.Discard)
		d.tc.EnterRoutine()
		d.tc.InstallReturnAlias(id, r.Return)
		for _, p := range d.tc.InstallVarList(d.decls(r.Params)) {
			d.tc.MarkInitialized(p.ID, p.Class)
		}
		d.declare(r.Vars)
		d.stmts(r.Body)
		d.tc.LeaveRoutine()
		d.gen = out
		return
	}

	d.tc.EnterRoutine()
	d.tc.InstallRoutineArgs(id, d.decls(r.Params))

	sig := d.tc.Signature(id)
	params := make([]codegen.Arg, len(sig))
	for i, p := range sig {
		params[i] = codegen.Arg{Type: p.Type, Class: p.Class, Name: p.Name}
	}
	d.gen.EmitRoutinePrototype(r.Return, r.Name, params)
	d.gen.EmitRoutineHeader(r.Return, r.Name, params)
	d.gen.EmitBlockOpen()
	if r.IsFunction() {
		d.gen.EmitScalarDecl(r.Return, r.Name)
	}
	d.declare(r.Vars)
	d.stmts(r.Body)
	if r.IsFunction() {
		d.tc.VerifyFunctionReturn(r.Pos, id)
	}
	d.gen.EmitReturn(r.Return, r.Name)
	d.gen.EmitBlockClose()
	d.tc.LeaveRoutine()

	log.Debug().
		Int("params", len(sig)).
		Int("temps", int(d.gen.NextTemp())).
		Int("labels", int(d.gen.NextControlLabel())).
		Msg("routine compiled")
}
