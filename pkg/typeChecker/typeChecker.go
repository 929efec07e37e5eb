// Package typeChecker resolves the types and classes of parsed constructs
// against the scoped symbol table, folds constant expressions, and verifies
// assignments, declarations and routine calls. Problems in the program are
// reported to a util.Reporter and never stop the pass.
package typeChecker

import (
	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/numtab"
	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/symtab"
	"github.com/xplshn/mpc/pkg/token"
	"github.com/xplshn/mpc/pkg/util"
)

// Decl is one declared name: a variable, a vector or a routine parameter.
type Decl struct {
	ID     strtab.ID
	Class  token.Class
	Type   token.Type
	Vector *symtab.VectorInfo
	Pos    token.Pos
}

type TypeChecker struct {
	names *strtab.Table
	nums  *numtab.Table
	syms  *symtab.Table
	cfg   *config.Config
	diag  *util.Reporter
}

func NewTypeChecker(names *strtab.Table, nums *numtab.Table, syms *symtab.Table, cfg *config.Config, diag *util.Reporter) *TypeChecker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &TypeChecker{names: names, nums: nums, syms: syms, cfg: cfg, diag: diag}
}

func (tc *TypeChecker) name(id strtab.ID) string { return tc.names.Name(id) }

func (tc *TypeChecker) constant(i numtab.Index) float64 {
	v, ok := tc.nums.Get(i)
	if !ok {
		util.Internalf("constant", "constant index %d out of range", i)
	}
	return v
}

// Literal interns v and returns it as a constant of type typ.
func (tc *TypeChecker) Literal(typ token.Type, v float64) Literal {
	return Literal{Typ: typ, Index: tc.nums.Intern(v)}
}

// RequireExists reports UndefinedSymbol unless (id, class) is visible.
func (tc *TypeChecker) RequireExists(pos token.Pos, id strtab.ID, class token.Class) bool {
	if tc.syms.Lookup(id, class, symtab.AllScopes) != nil {
		return true
	}
	tc.diag.Errorf(util.UndefinedSymbol, pos, "expected identifier '%s' of class %s, but none exists", tc.name(id), class)
	return false
}

// CheckInitialized warns when (id, class) lives in the current scope and was
// never assigned. Symbols of enclosing scopes are not checked.
func (tc *TypeChecker) CheckInitialized(pos token.Pos, id strtab.ID, class token.Class) {
	e := tc.syms.Current(id, class)
	if e == nil || e.Initialized {
		return
	}
	tc.diag.Warnf(config.WarnUninitialized, util.UninitializedUse, pos, "'%s' of class %s exists but is uninitialized", e.Name, class)
}

// Entry returns the nearest entry for (id, class). A missing entry is a
// compiler bug.
func (tc *TypeChecker) Entry(id strtab.ID, class token.Class) *symtab.Entry {
	e := tc.syms.Lookup(id, class, symtab.AllScopes)
	if e == nil {
		util.Internalf("entry", "no %s entry for '%s'", class, tc.name(id))
	}
	return e
}

// Variable builds a reference to an existing (id, class) symbol.
func (tc *TypeChecker) Variable(id strtab.ID, class token.Class) Variable {
	e := tc.Entry(id, class)
	return Variable{Cls: e.Class, Typ: e.Type, ID: id}
}

// Reference resolves a bare identifier used in an expression or as an
// assignment target. Scalars shadow vectors, vectors shadow routines.
func (tc *TypeChecker) Reference(pos token.Pos, id strtab.ID) Value {
	for _, class := range [...]token.Class{token.Scalar, token.Vector, token.Routine} {
		if e := tc.syms.Lookup(id, class, symtab.AllScopes); e != nil {
			return Variable{Cls: e.Class, Typ: e.Type, ID: id}
		}
	}
	tc.diag.Errorf(util.UndefinedSymbol, pos, "'%s' is undefined", tc.name(id))
	return undefinedValue
}

// ResolveIndex resolves name[index]. The element is a Scalar of the vector's type.
func (tc *TypeChecker) ResolveIndex(pos token.Pos, id strtab.ID, index Value) Value {
	e := tc.syms.Lookup(id, token.Vector, symtab.AllScopes)
	if e == nil {
		if tc.Reference(pos, id) != undefinedValue {
			tc.diag.Errorf(util.ClassMismatch, pos, "'%s' is not of class %s and cannot be indexed", tc.name(id), token.Vector)
		}
		return undefinedScalar
	}
	switch {
	case index.Class() != token.Scalar:
		tc.diag.Errorf(util.ClassMismatch, pos, "index of '%s' must be of class %s, got %s", e.Name, token.Scalar, index.Class())
	case index.Type() == token.Undefined:
		tc.diag.Errorf(util.UndefinedType, pos, "index of '%s' has undefined type", e.Name)
	case index.Type() != token.Integer:
		tc.diag.Warnf(config.WarnTruncation, util.TruncationOrPromotion, pos, "index of '%s' will be truncated", e.Name)
	}
	return Result{Cls: token.Scalar, Typ: e.Type, Index: numtab.None}
}

func (tc *TypeChecker) checkOperands(pos token.Pos, what string, a, b Value) bool {
	if a.Class() != token.Scalar || b.Class() != token.Scalar {
		tc.diag.Errorf(util.ClassMismatch, pos, "%s operation is undefined for non-scalar operands", what)
		return false
	}
	if a.Type() == token.Undefined || b.Type() == token.Undefined {
		tc.diag.Errorf(util.UndefinedType, pos, "%s operation is undefined for operands of type %s", what, token.Undefined)
		return false
	}
	return true
}

func (tc *TypeChecker) fold(op token.Op, x, y float64) float64 {
	switch op {
	case token.Add:
		return x + y
	case token.Sub:
		return x - y
	case token.Mul:
		return x * y
	case token.Div:
		return x / y
	case token.Mod:
		return float64(int64(x) % int64(y))
	}
	return bool2f(compare(op, x, y))
}

func compare(op token.Op, x, y float64) bool {
	switch op {
	case token.Lt:
		return x < y
	case token.Le:
		return x <= y
	case token.Eq:
		return x == y
	case token.Ge:
		return x >= y
	case token.Gt:
		return x > y
	case token.Ne:
		return x != y
	}
	util.Internalf("fold", "unknown operator %d", int(op))
	return false
}

func bool2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ResolveArith checks a op b for an arithmetic operator and folds it when
// both operands are constants. The result type is the promoted operand type.
func (tc *TypeChecker) ResolveArith(pos token.Pos, op token.Op, a, b Value) Value {
	if op.IsRelational() {
		util.Internalf("resolve arith", "relational operator %s", op)
	}
	if !tc.checkOperands(pos, "arithmetic", a, b) {
		return undefinedValue
	}
	if op == token.Div || op == token.Mod {
		if b.Const() != numtab.None && isZeroDivisor(op, tc.constant(b.Const())) {
			tc.diag.Errorf(util.DivisionByZero, pos, "division by zero")
			return undefinedValue
		}
	}
	if op == token.Mod && (a.Type() == token.Real || b.Type() == token.Real) {
		tc.diag.Warnf(config.WarnTruncation, util.TruncationOrPromotion, pos, "operands of mod will be truncated to integers")
	}
	res := Result{Cls: token.Scalar, Typ: token.Max(a.Type(), b.Type()), Index: numtab.None}
	if a.Const() != numtab.None && b.Const() != numtab.None {
		res.Index = tc.nums.Intern(tc.fold(op, tc.constant(a.Const()), tc.constant(b.Const())))
	}
	return res
}

// mod works on the truncated divisor, so 0.5 counts as zero there.
func isZeroDivisor(op token.Op, y float64) bool {
	if op == token.Mod {
		return int64(y) == 0
	}
	return y == 0
}

// ResolveBool checks a relational a op b. Booleans are integers.
func (tc *TypeChecker) ResolveBool(pos token.Pos, op token.Op, a, b Value) Value {
	if !op.IsRelational() {
		util.Internalf("resolve bool", "operator %s is not relational", op)
	}
	if !tc.checkOperands(pos, "boolean", a, b) {
		return undefinedValue
	}
	res := Comparison{Op: op, Index: numtab.None}
	if a.Const() != numtab.None && b.Const() != numtab.None {
		res.Index = tc.nums.Intern(bool2f(compare(op, tc.constant(a.Const()), tc.constant(b.Const()))))
	}
	return res
}

// ApplySign folds a unary sign into a constant scalar. Anything else is
// returned unchanged.
func (tc *TypeChecker) ApplySign(op token.Op, v Value) Value {
	if v.Class() != token.Scalar || v.Const() == numtab.None {
		return v
	}
	k := 1.0
	switch op {
	case token.Add:
	case token.Sub:
		k = -1
	default:
		util.Internalf("apply sign", "operator %s is not a sign", op)
	}
	idx := tc.nums.Intern(k * tc.constant(v.Const()))
	if lit, ok := v.(Literal); ok {
		return Literal{Typ: lit.Typ, Index: idx}
	}
	return Result{Cls: token.Scalar, Typ: v.Type(), Index: idx}
}

// VerifyGuard checks the condition of an if or while.
func (tc *TypeChecker) VerifyGuard(pos token.Pos, v Value) {
	if v.Class() != token.Scalar || v.Type() == token.Undefined {
		tc.diag.Errorf(util.ClassMismatch, pos, "guard expression must be a %s of type %s, got %s of type %s",
			token.Scalar, token.Integer, v.Class(), v.Type())
		return
	}
	if v.Type() != token.Integer {
		tc.diag.Warnf(config.WarnGuard, util.TruncationOrPromotion, pos, "guard expression will be truncated")
	}
}

// VerifyAssignment checks target := source and marks target initialized.
// An indexed element is passed with the vector's class.
func (tc *TypeChecker) VerifyAssignment(pos token.Pos, target Variable, source Value) {
	if target.Cls != token.Scalar && target.Cls != token.Vector {
		tc.diag.Errorf(util.ClassMismatch, pos, "'%s' of class %s is not assignable", tc.name(target.ID), target.Cls)
		return
	}
	e := tc.Entry(target.ID, target.Cls)
	if source.Type() == token.Undefined {
		tc.diag.Errorf(util.TypeMismatch, pos, "%s may not be assigned to %s '%s'", token.Undefined, e.Type, e.Name)
	} else {
		if id := source.Ident(); id != strtab.NoID {
			tc.CheckInitialized(pos, id, source.Class())
		}
		if e.Type < source.Type() {
			tc.diag.Warnf(config.WarnTruncation, util.TruncationOrPromotion, pos, "value assigned to %s '%s' will be truncated", e.Type, e.Name)
		}
	}
	e.Initialized = true
}

// InstallVarList declares vars in the current scope and returns the ones
// it installed. Shadowing an outer symbol is legal.
func (tc *TypeChecker) InstallVarList(vars []Decl) []Decl {
	installed := make([]Decl, 0, len(vars))
	for _, d := range vars {
		if tc.syms.Current(d.ID, d.Class) != nil {
			tc.diag.Errorf(util.Redeclaration, d.Pos, "redeclaration of %s '%s' in current scope", d.Class, tc.name(d.ID))
			continue
		}
		if d.Class != token.Scalar && d.Class != token.Vector {
			tc.diag.Errorf(util.ClassMismatch, d.Pos, "variable '%s' has illegal class %s", tc.name(d.ID), d.Class)
			continue
		}
		if !d.Type.IsPrimitive() {
			tc.diag.Errorf(util.UndefinedType, d.Pos, "variable '%s' has undefined type", tc.name(d.ID))
			continue
		}
		e, err := tc.syms.Install(d.ID, d.Class, d.Type)
		if err != nil {
			util.Internal("install var", err)
		}
		if d.Vector != nil {
			v := *d.Vector
			e.Vector = &v
		}
		installed = append(installed, d)
	}
	return installed
}

// MarkInitialized sets the initialized flag of a visible (id, class).
func (tc *TypeChecker) MarkInitialized(id strtab.ID, class token.Class) {
	tc.Entry(id, class).Initialized = true
}

// InstallRoutine declares a routine. An Undefined return type is a
// procedure. It reports false if the routine already exists.
func (tc *TypeChecker) InstallRoutine(pos token.Pos, id strtab.ID, ret token.Type) bool {
	if e := tc.syms.Lookup(id, token.Routine, symtab.AllScopes); e != nil {
		tc.diag.Errorf(util.Redeclaration, pos, "illegal redefinition of %s '%s'", e.Type, e.Name)
		return false
	}
	e, err := tc.syms.Install(id, token.Routine, ret)
	if err != nil {
		util.Internal("install routine", err)
	}
	e.Routine = &symtab.RoutineInfo{}
	return true
}

// InstallReturnAlias installs the scalar a function body assigns its result
// to. Procedures have none.
func (tc *TypeChecker) InstallReturnAlias(id strtab.ID, typ token.Type) {
	if typ == token.Undefined {
		return
	}
	if _, err := tc.syms.Install(id, token.Scalar, typ); err != nil {
		util.Internal("install return alias", err)
	}
}

// InstallRoutineArgs installs the parameters of routine id, plus the return
// alias of a function, into the routine's scope and records its signature.
func (tc *TypeChecker) InstallRoutineArgs(id strtab.ID, params []Decl) {
	r := tc.Entry(id, token.Routine)
	tc.InstallReturnAlias(id, r.Type)

	for _, p := range params {
		if p.Class != token.Scalar && p.Class != token.Vector {
			tc.diag.Errorf(util.ClassMismatch, p.Pos, "parameter '%s' in routine '%s' has illegal class %s", tc.name(p.ID), r.Name, p.Class)
			return
		}
		if !p.Type.IsPrimitive() {
			tc.diag.Errorf(util.UndefinedType, p.Pos, "parameter '%s' in routine '%s' has undefined type", tc.name(p.ID), r.Name)
			return
		}
	}

	sig := &symtab.RoutineInfo{Args: make([]symtab.Entry, 0, len(params))}
	for _, p := range params {
		e, err := tc.syms.Install(p.ID, p.Class, p.Type)
		if err != nil {
			tc.diag.Errorf(util.DuplicateSymbol, p.Pos, "duplicate parameter %s '%s' in routine '%s'", p.Type, tc.name(p.ID), r.Name)
			sig.Args = append(sig.Args, symtab.Entry{ID: p.ID, Name: tc.name(p.ID), Class: p.Class, Type: p.Type, Initialized: true})
			continue
		}
		e.Initialized = true
		if p.Vector != nil {
			v := *p.Vector
			e.Vector = &v
		}
		sig.Args = append(sig.Args, symtab.CopyForSignature(e))
	}
	// Entries are allocated one by one, so r survives the installs above.
	r.Routine = sig
}

// EnterRoutine opens the scope of a routine body.
func (tc *TypeChecker) EnterRoutine() {
	if err := tc.syms.EnterScope(); err != nil {
		util.Internal("enter routine", err)
	}
}

// LeaveRoutine drops the scope of the routine body.
func (tc *TypeChecker) LeaveRoutine() {
	if err := tc.syms.LeaveScope(); err != nil {
		util.Internal("leave routine", err)
	}
}

// Signature returns the recorded parameters of routine id.
func (tc *TypeChecker) Signature(id strtab.ID) []symtab.Entry {
	return tc.Entry(id, token.Routine).Routine.Args
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// VerifyRoutineArgs checks the arguments of a call to routine id. It
// reports whether the call is well formed enough to be emitted.
//
// Arity must match exactly unless lenient-arity is enabled, in which case
// the declared count is an upper bound.
func (tc *TypeChecker) VerifyRoutineArgs(pos token.Pos, id strtab.ID, args []Value) bool {
	r := tc.Entry(id, token.Routine)
	want, got := r.Routine.Argc(), len(args)

	arityOK := got == want
	if tc.cfg.IsFeatureEnabled(config.FeatLenientArity) {
		arityOK = got <= want
	}
	if !arityOK {
		tc.diag.Errorf(util.ArityMismatch, pos, "'%s' requires %d argument%s, not %d", r.Name, want, plural(want), got)
		return false
	}

	ok := true
	for i, a := range args {
		p := r.Routine.Args[i]
		if IsUndefined(a) {
			ok = false
			continue
		}
		if a.Class() != p.Class {
			tc.diag.Errorf(util.ClassMismatch, pos, "parameter %d of routine '%s' expects class %s but got %s", i+1, r.Name, p.Class, a.Class())
			ok = false
			continue
		}
		if a.Type() > p.Type {
			tc.diag.Warnf(config.WarnTruncation, util.TruncationOrPromotion, pos, "argument %d of routine '%s' will be truncated", i+1, r.Name)
		}
	}
	return ok
}

// ResolveCall resolves a call to id. A procedure has no value; asValue
// reports its use inside an expression. The second result reports whether
// the call can be emitted.
func (tc *TypeChecker) ResolveCall(pos token.Pos, id strtab.ID, args []Value, asValue bool) (Value, bool) {
	if !tc.RequireExists(pos, id, token.Routine) {
		return undefinedScalar, false
	}
	r := tc.Entry(id, token.Routine)
	ok := tc.VerifyRoutineArgs(pos, id, args)
	if asValue && r.Type == token.Undefined {
		tc.diag.Errorf(util.UndefinedType, pos, "procedure '%s' does not return a value", r.Name)
		return undefinedScalar, false
	}
	return Result{Cls: token.Scalar, Typ: r.Type, Index: numtab.None}, ok
}

// VerifyFunctionReturn checks that function id assigned its return alias.
// It must run before the function's scope is left.
func (tc *TypeChecker) VerifyFunctionReturn(pos token.Pos, id strtab.ID) {
	e := tc.syms.Current(id, token.Scalar)
	if e == nil {
		util.Internalf("verify function return", "return variable '%s' not in function scope", tc.name(id))
	}
	if !e.Initialized {
		tc.diag.Errorf(util.UninitializedUse, pos, "return value for function '%s' is uninitialized", e.Name)
	}
}

// VerifyReadArgs checks the targets of readln and marks them initialized.
func (tc *TypeChecker) VerifyReadArgs(pos token.Pos, args []Value) bool {
	ok := true
	for i, a := range args {
		if IsUndefined(a) {
			ok = false
			continue
		}
		var e *symtab.Entry
		if id := a.Ident(); id != strtab.NoID && a.Class() == token.Scalar {
			e = tc.syms.Lookup(id, token.Scalar, symtab.AllScopes)
		}
		if e == nil {
			tc.diag.Errorf(util.ClassMismatch, pos, "argument %d does not exist or is not of required class %s in readln", i+1, token.Scalar)
			ok = false
			continue
		}
		e.Initialized = true
	}
	return ok
}

// VerifyWriteArgs checks the values of writeln.
func (tc *TypeChecker) VerifyWriteArgs(pos token.Pos, args []Value) bool {
	ok := true
	for i, a := range args {
		if IsUndefined(a) {
			ok = false
			continue
		}
		if a.Class() != token.Scalar {
			tc.diag.Errorf(util.ClassMismatch, pos, "argument %d in writeln is not of required class %s", i+1, token.Scalar)
			ok = false
			continue
		}
		id := a.Ident()
		if id == strtab.NoID {
			continue
		}
		e := tc.Entry(id, token.Scalar)
		if !e.Initialized {
			tc.diag.Warnf(config.WarnUninitialized, util.UninitializedUse, pos, "argument %d in writeln (%s '%s') is not initialized", i+1, e.Type, e.Name)
		}
	}
	return ok
}
