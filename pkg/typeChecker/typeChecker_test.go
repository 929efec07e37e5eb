package typeChecker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/numtab"
	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/symtab"
	"github.com/xplshn/mpc/pkg/token"
	"github.com/xplshn/mpc/pkg/util"
)

type fixture struct {
	tc    *TypeChecker
	names *strtab.Table
	nums  *numtab.Table
	syms  *symtab.Table
	diag  *util.Reporter
	cfg   *config.Config
}

func newFixture() *fixture {
	f := &fixture{names: strtab.New(), nums: numtab.New(), cfg: config.NewConfig()}
	f.syms = symtab.New(f.names, symtab.DefaultLevels)
	f.diag = util.NewReporter(f.cfg, nil)
	f.tc = NewTypeChecker(f.names, f.nums, f.syms, f.cfg, f.diag)
	return f
}

var at = token.Pos{Line: 3, Column: 7}

func (f *fixture) constOf(t *testing.T, v Value) float64 {
	t.Helper()
	got, ok := f.nums.Get(v.Const())
	require.True(t, ok, "value carries no constant")
	return got
}

func (f *fixture) scalar(t *testing.T, name string, typ token.Type) strtab.ID {
	t.Helper()
	id := f.names.Intern(name)
	f.tc.InstallVarList([]Decl{{ID: id, Class: token.Scalar, Type: typ, Pos: at}})
	return id
}

func (f *fixture) errors() []util.Code { return f.diag.Codes(util.SevError) }
func (f *fixture) warnings() []util.Code { return f.diag.Codes(util.SevWarning) }

func TestFoldArith(t *testing.T) {
	tests := []struct {
		op   token.Op
		a, b Literal
		want float64
		typ  token.Type
	}{
		{token.Add, Literal{Typ: token.Integer}, Literal{Typ: token.Integer}, 5, token.Integer},
		{token.Sub, Literal{Typ: token.Integer}, Literal{Typ: token.Integer}, -1, token.Integer},
		{token.Mul, Literal{Typ: token.Real}, Literal{Typ: token.Integer}, 6, token.Real},
		{token.Div, Literal{Typ: token.Integer}, Literal{Typ: token.Real}, 2.0 / 3.0, token.Real},
		{token.Mod, Literal{Typ: token.Integer}, Literal{Typ: token.Integer}, 2, token.Integer},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			f := newFixture()
			a := f.tc.Literal(tt.a.Typ, 2)
			b := f.tc.Literal(tt.b.Typ, 3)
			v := f.tc.ResolveArith(at, tt.op, a, b)
			require.Equal(t, token.Scalar, v.Class())
			require.Equal(t, tt.typ, v.Type())
			require.InDelta(t, tt.want, f.constOf(t, v), 1e-12)
			require.Empty(t, f.errors())
		})
	}
}

func TestModTruncatesOperands(t *testing.T) {
	f := newFixture()
	v := f.tc.ResolveArith(at, token.Mod, f.tc.Literal(token.Real, 7.9), f.tc.Literal(token.Real, 2.5))
	require.Equal(t, 1.0, f.constOf(t, v))
	require.Equal(t, []util.Code{util.TruncationOrPromotion}, f.warnings())
}

func TestModByTruncatedZero(t *testing.T) {
	f := newFixture()
	v := f.tc.ResolveArith(at, token.Mod, f.tc.Literal(token.Integer, 5), f.tc.Literal(token.Real, 0.5))
	require.True(t, IsUndefined(v))
	require.Equal(t, []util.Code{util.DivisionByZero}, f.errors())

	// Plain division by 0.5 is fine.
	f = newFixture()
	v = f.tc.ResolveArith(at, token.Div, f.tc.Literal(token.Integer, 5), f.tc.Literal(token.Real, 0.5))
	require.Equal(t, 10.0, f.constOf(t, v))
	require.Empty(t, f.errors())
}

func TestIntegerModDoesNotWarn(t *testing.T) {
	f := newFixture()
	i := f.scalar(t, "i", token.Integer)
	f.tc.ResolveArith(at, token.Mod, f.tc.Variable(i, token.Scalar), f.tc.Literal(token.Integer, 3))
	require.Empty(t, f.warnings())
}

func TestDivisionByConstantZero(t *testing.T) {
	for _, op := range []token.Op{token.Div, token.Mod} {
		f := newFixture()
		v := f.tc.ResolveArith(at, op, f.tc.Literal(token.Integer, 4), f.tc.Literal(token.Integer, 0))
		require.True(t, IsUndefined(v))
		require.Equal(t, []util.Code{util.DivisionByZero}, f.errors())
	}

	// A runtime divisor is never checked.
	f := newFixture()
	y := f.scalar(t, "y", token.Integer)
	v := f.tc.ResolveArith(at, token.Div, f.tc.Literal(token.Integer, 4), f.tc.Variable(y, token.Scalar))
	require.False(t, IsUndefined(v))
	require.Equal(t, numtab.None, v.Const())
	require.Empty(t, f.errors())
}

func TestPromotionWithoutConstants(t *testing.T) {
	f := newFixture()
	i := f.scalar(t, "i", token.Integer)
	r := f.scalar(t, "r", token.Real)

	v := f.tc.ResolveArith(at, token.Add, f.tc.Variable(i, token.Scalar), f.tc.Variable(r, token.Scalar))
	require.Equal(t, token.Real, v.Type())
	require.Equal(t, numtab.None, v.Const())
	require.Equal(t, strtab.NoID, v.Ident())
}

func TestArithOperandChecks(t *testing.T) {
	f := newFixture()
	vec := f.names.Intern("v")
	f.tc.InstallVarList([]Decl{{ID: vec, Class: token.Vector, Type: token.Integer, Vector: &symtab.VectorInfo{Length: 2}}})

	v := f.tc.ResolveArith(at, token.Add, f.tc.Variable(vec, token.Vector), f.tc.Literal(token.Integer, 1))
	require.True(t, IsUndefined(v))
	v = f.tc.ResolveArith(at, token.Add, undefinedScalar, f.tc.Literal(token.Integer, 1))
	require.True(t, IsUndefined(v))
	require.Equal(t, []util.Code{util.ClassMismatch, util.UndefinedType}, f.errors())

	require.Panics(t, func() { f.tc.ResolveArith(at, token.Lt, undefinedScalar, undefinedScalar) })
}

func TestResolveBool(t *testing.T) {
	f := newFixture()
	tests := []struct {
		op   token.Op
		x, y float64
		want float64
	}{
		{token.Lt, 1, 2, 1},
		{token.Le, 2, 2, 1},
		{token.Eq, 2, 3, 0},
		{token.Ge, 1, 2, 0},
		{token.Gt, 3, 2, 1},
		{token.Ne, 2, 2, 0},
	}
	for _, tt := range tests {
		v := f.tc.ResolveBool(at, tt.op, f.tc.Literal(token.Real, tt.x), f.tc.Literal(token.Integer, tt.y))
		c, ok := v.(Comparison)
		require.True(t, ok)
		require.Equal(t, tt.op, c.Op)
		require.Equal(t, token.Integer, v.Type())
		require.Equal(t, tt.want, f.constOf(t, v), "%v %s %v", tt.x, tt.op, tt.y)
	}

	r := f.scalar(t, "r", token.Real)
	v := f.tc.ResolveBool(at, token.Lt, f.tc.Variable(r, token.Scalar), f.tc.Literal(token.Integer, 1))
	require.Equal(t, token.Integer, v.Type())
	require.Equal(t, numtab.None, v.Const())
	require.Empty(t, f.errors())
}

func TestApplySign(t *testing.T) {
	f := newFixture()
	lit := f.tc.Literal(token.Real, 2.5)

	neg := f.tc.ApplySign(token.Sub, lit)
	require.Equal(t, -2.5, f.constOf(t, neg))
	require.Equal(t, token.Real, neg.Type())
	require.NotEqual(t, lit.Const(), neg.Const())

	pos := f.tc.ApplySign(token.Add, lit)
	require.Equal(t, 2.5, f.constOf(t, pos))

	x := f.scalar(t, "x", token.Integer)
	ref := f.tc.Variable(x, token.Scalar)
	require.Equal(t, Value(ref), f.tc.ApplySign(token.Sub, ref))
}

func TestVerifyGuard(t *testing.T) {
	f := newFixture()
	f.tc.VerifyGuard(at, f.tc.Literal(token.Integer, 1))
	require.Empty(t, f.diag.Diagnostics())

	f.tc.VerifyGuard(at, f.tc.Literal(token.Real, 1))
	require.Equal(t, []util.Code{util.TruncationOrPromotion}, f.warnings())

	f.tc.VerifyGuard(at, undefinedValue)
	require.Equal(t, []util.Code{util.ClassMismatch}, f.errors())
}

func TestVerifyAssignment(t *testing.T) {
	f := newFixture()
	x := f.scalar(t, "x", token.Integer)
	y := f.scalar(t, "y", token.Integer)
	r := f.scalar(t, "r", token.Real)

	// y is uninitialized: a warning, never an error.
	f.tc.VerifyAssignment(at, f.tc.Variable(x, token.Scalar), f.tc.Variable(y, token.Scalar))
	require.True(t, f.syms.Current(x, token.Scalar).Initialized)
	require.False(t, f.syms.Current(y, token.Scalar).Initialized)
	require.Equal(t, []util.Code{util.UninitializedUse}, f.warnings())
	require.Empty(t, f.errors())

	f.tc.VerifyAssignment(at, f.tc.Variable(r, token.Scalar), f.tc.Variable(x, token.Scalar))
	require.Len(t, f.warnings(), 1)

	f.tc.VerifyAssignment(at, f.tc.Variable(x, token.Scalar), f.tc.Variable(r, token.Scalar))
	require.Equal(t, []util.Code{util.UninitializedUse, util.TruncationOrPromotion}, f.warnings())

	f.tc.VerifyAssignment(at, f.tc.Variable(x, token.Scalar), undefinedValue)
	require.Equal(t, []util.Code{util.TypeMismatch}, f.errors())
}

func TestAssignToRoutineIsRejected(t *testing.T) {
	f := newFixture()
	p := f.names.Intern("p")
	require.True(t, f.tc.InstallRoutine(at, p, token.Undefined))
	f.tc.VerifyAssignment(at, f.tc.Variable(p, token.Routine), f.tc.Literal(token.Integer, 1))
	require.Equal(t, []util.Code{util.ClassMismatch}, f.errors())
}

func TestCheckInitializedOnlyCurrentScope(t *testing.T) {
	f := newFixture()
	g := f.scalar(t, "g", token.Integer)
	f.tc.EnterRoutine()
	f.tc.CheckInitialized(at, g, token.Scalar)
	require.Empty(t, f.warnings())
	f.tc.LeaveRoutine()

	f.tc.CheckInitialized(at, g, token.Scalar)
	require.Equal(t, []util.Code{util.UninitializedUse}, f.warnings())
}

func TestInstallVarList(t *testing.T) {
	f := newFixture()
	x := f.names.Intern("x")
	decls := []Decl{
		{ID: x, Class: token.Scalar, Type: token.Integer},
		{ID: x, Class: token.Scalar, Type: token.Real},
		{ID: x, Class: token.Vector, Type: token.Real, Vector: &symtab.VectorInfo{Lower: 1, Length: 4}},
		{ID: f.names.Intern("u"), Class: token.Scalar, Type: token.Undefined},
	}
	installed := f.tc.InstallVarList(decls)
	require.Len(t, installed, 2)
	require.Equal(t, []util.Code{util.Redeclaration, util.UndefinedType}, f.errors())
	require.Equal(t, 1, f.syms.Current(x, token.Vector).Vector.Lower)

	// Shadowing a global inside a routine is legal.
	f.tc.EnterRoutine()
	require.Len(t, f.tc.InstallVarList(decls[:1]), 1)
	require.Len(t, f.errors(), 2)
}

func TestRoutineSignature(t *testing.T) {
	f := newFixture()
	fn := f.names.Intern("f")
	a, b := f.names.Intern("a"), f.names.Intern("b")

	require.True(t, f.tc.InstallRoutine(at, fn, token.Real))
	require.False(t, f.tc.InstallRoutine(at, fn, token.Integer))
	require.Equal(t, []util.Code{util.Redeclaration}, f.errors())

	f.tc.EnterRoutine()
	f.tc.InstallRoutineArgs(fn, []Decl{
		{ID: a, Class: token.Scalar, Type: token.Integer},
		{ID: b, Class: token.Vector, Type: token.Real, Vector: &symtab.VectorInfo{Lower: 0, Length: 3}},
	})

	alias := f.syms.Current(fn, token.Scalar)
	require.NotNil(t, alias)
	require.Equal(t, token.Real, alias.Type)
	require.True(t, f.syms.Current(a, token.Scalar).Initialized)

	f.tc.VerifyFunctionReturn(at, fn)
	require.Equal(t, []util.Code{util.Redeclaration, util.UninitializedUse}, f.errors())
	f.tc.LeaveRoutine()

	sig := f.tc.Signature(fn)
	require.Len(t, sig, 2)
	require.Equal(t, "a", sig[0].Name)
	require.True(t, sig[0].Initialized)
	require.Equal(t, token.Vector, sig[1].Class)
	require.Equal(t, 3, sig[1].Vector.Length)
	require.Nil(t, f.syms.Lookup(a, token.Scalar, symtab.AllScopes))
}

func TestIllegalParameterClass(t *testing.T) {
	f := newFixture()
	p := f.names.Intern("p")
	require.True(t, f.tc.InstallRoutine(at, p, token.Undefined))
	f.tc.EnterRoutine()
	f.tc.InstallRoutineArgs(p, []Decl{{ID: f.names.Intern("q"), Class: token.Routine, Type: token.Integer}})
	require.Equal(t, []util.Code{util.ClassMismatch}, f.errors())
	require.Empty(t, f.tc.Signature(p))
}

func installTwoArg(t *testing.T, f *fixture) strtab.ID {
	t.Helper()
	p := f.names.Intern("p")
	require.True(t, f.tc.InstallRoutine(at, p, token.Undefined))
	f.tc.EnterRoutine()
	f.tc.InstallRoutineArgs(p, []Decl{
		{ID: f.names.Intern("a"), Class: token.Scalar, Type: token.Integer},
		{ID: f.names.Intern("b"), Class: token.Scalar, Type: token.Integer},
	})
	f.tc.LeaveRoutine()
	return p
}

func TestVerifyRoutineArgs(t *testing.T) {
	one := func(f *fixture) Value { return f.tc.Literal(token.Integer, 1) }
	tests := []struct {
		name    string
		lenient bool
		args    func(f *fixture) []Value
		ok      bool
		errors  []util.Code
		warns   []util.Code
	}{
		{"exact", false, func(f *fixture) []Value { return []Value{one(f), one(f)} }, true, nil, nil},
		{"too many", false, func(f *fixture) []Value { return []Value{one(f), one(f), one(f)} }, false, []util.Code{util.ArityMismatch}, nil},
		{"too few", false, func(f *fixture) []Value { return []Value{one(f)} }, false, []util.Code{util.ArityMismatch}, nil},
		{"lenient fewer", true, func(f *fixture) []Value { return []Value{one(f)} }, true, nil, nil},
		{"lenient too many", true, func(f *fixture) []Value { return []Value{one(f), one(f), one(f)} }, false, []util.Code{util.ArityMismatch}, nil},
		{
			"truncated", false,
			func(f *fixture) []Value { return []Value{one(f), f.tc.Literal(token.Real, 1.5)} },
			true, nil, []util.Code{util.TruncationOrPromotion},
		},
		{
			"class", false,
			func(f *fixture) []Value { return []Value{one(f), Variable{Cls: token.Vector, Typ: token.Integer, ID: 0}} },
			false, []util.Code{util.ClassMismatch}, nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.cfg.SetFeature(config.FeatLenientArity, tt.lenient)
			p := installTwoArg(t, f)
			require.Equal(t, tt.ok, f.tc.VerifyRoutineArgs(at, p, tt.args(f)))
			require.Equal(t, tt.errors, f.errors())
			require.Equal(t, tt.warns, f.warnings())
		})
	}
}

func TestResolveCall(t *testing.T) {
	f := newFixture()
	p := installTwoArg(t, f)
	args := []Value{f.tc.Literal(token.Integer, 1), f.tc.Literal(token.Integer, 2)}

	_, ok := f.tc.ResolveCall(at, p, args, false)
	require.True(t, ok)

	v, ok := f.tc.ResolveCall(at, p, args, true)
	require.False(t, ok)
	require.True(t, IsUndefined(v))

	_, ok = f.tc.ResolveCall(at, f.names.Intern("missing"), nil, false)
	require.False(t, ok)
	require.Equal(t, []util.Code{util.UndefinedType, util.UndefinedSymbol}, f.errors())
}

func TestMissingSignatureIsInternal(t *testing.T) {
	f := newFixture()
	ghost := f.names.Intern("ghost")
	require.PanicsWithError(t, "internal error: entry: no Routine entry for 'ghost'", func() {
		f.tc.VerifyRoutineArgs(at, ghost, nil)
	})
}

func TestReadWriteArgs(t *testing.T) {
	f := newFixture()
	x := f.scalar(t, "x", token.Integer)
	y := f.scalar(t, "y", token.Real)

	require.True(t, f.tc.VerifyWriteArgs(at, []Value{f.tc.Variable(x, token.Scalar), f.tc.Literal(token.Integer, 1)}))
	require.Equal(t, []util.Code{util.UninitializedUse}, f.warnings())

	require.True(t, f.tc.VerifyReadArgs(at, []Value{f.tc.Variable(x, token.Scalar), f.tc.Variable(y, token.Scalar)}))
	require.True(t, f.syms.Current(x, token.Scalar).Initialized)
	require.True(t, f.syms.Current(y, token.Scalar).Initialized)

	require.False(t, f.tc.VerifyReadArgs(at, []Value{f.tc.Literal(token.Integer, 1)}))
	require.False(t, f.tc.VerifyWriteArgs(at, []Value{Variable{Cls: token.Vector, Typ: token.Integer, ID: x}}))
	require.Equal(t, []util.Code{util.ClassMismatch, util.ClassMismatch}, f.errors())

	// Placeholders were already reported where they were made.
	require.False(t, f.tc.VerifyWriteArgs(at, []Value{undefinedValue}))
	require.Len(t, f.errors(), 2)
}

func TestReferenceAndIndex(t *testing.T) {
	f := newFixture()
	x := f.scalar(t, "x", token.Integer)
	v := f.names.Intern("v")
	f.tc.InstallVarList([]Decl{{ID: v, Class: token.Vector, Type: token.Real, Vector: &symtab.VectorInfo{Lower: 1, Length: 2}}})

	require.Equal(t, Value(Variable{Cls: token.Scalar, Typ: token.Integer, ID: x}), f.tc.Reference(at, x))
	require.Equal(t, token.Vector, f.tc.Reference(at, v).Class())

	elem := f.tc.ResolveIndex(at, v, f.tc.Literal(token.Integer, 1))
	require.Equal(t, token.Scalar, elem.Class())
	require.Equal(t, token.Real, elem.Type())
	require.Empty(t, f.diag.Diagnostics())

	f.tc.ResolveIndex(at, v, f.tc.Literal(token.Real, 1))
	require.Equal(t, []util.Code{util.TruncationOrPromotion}, f.warnings())

	require.True(t, IsUndefined(f.tc.Reference(at, f.names.Intern("nope"))))
	require.True(t, IsUndefined(f.tc.ResolveIndex(at, x, f.tc.Literal(token.Integer, 1))))
	require.Equal(t, []util.Code{util.UndefinedSymbol, util.ClassMismatch}, f.errors())
}
