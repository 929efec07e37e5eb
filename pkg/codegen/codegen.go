// Package codegen writes the intermediate representation: a linear,
// goto-based subset of C where every expression step computes into a fresh
// temporary t<k> and every jump target is a label Lab<k>.
//
// The generator never consults the symbol table. Callers pass in the type,
// class and name of everything it writes.
package codegen

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/mpc/pkg/token"
)

// Temp numbers the result of one emitted expression instruction.
type Temp int

// Label numbers a jump target.
type Label int

func (t Temp) String() string  { return fmt.Sprintf("t%d", int(t)) }
func (l Label) String() string { return fmt.Sprintf("Lab%d", int(l)) }

// Arg is a value passed to a call or an I/O routine, or a routine parameter.
// A value without a Name refers to its temporary.
type Arg struct {
	Type  token.Type
	Class token.Class
	Name  string
	Temp  Temp
}

func (a Arg) ref() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Temp.String()
}

func (a Arg) param() string {
	if a.Class == token.Vector {
		return a.Type.CType() + " " + a.Name + "[]"
	}
	return a.Type.CType() + " " + a.Name
}

// Generator appends text to an output stream. The first write error sticks
// and suppresses every later write.
type Generator struct {
	out     io.Writer
	t       Temp
	l       Label
	written int64
	err     error
}

func NewGenerator(out io.Writer) *Generator { return &Generator{out: out} }

func (g *Generator) printf(format string, args ...any) {
	if g.err != nil {
		return
	}
	n, err := fmt.Fprintf(g.out, format, args...)
	g.written += int64(n)
	g.err = err
}

func (g *Generator) next() Temp {
	t := g.t
	g.t++
	return t
}

// Err returns the first error the output stream reported.
func (g *Generator) Err() error { return g.err }

// Written returns the number of bytes emitted so far.
func (g *Generator) Written() int64 { return g.written }

// NextTemp returns the temporary the next expression instruction will use.
func (g *Generator) NextTemp() Temp { return g.t }

// Expression emission. Every emitter returns the temporary it computed into.

func (g *Generator) EmitConst(typ token.Type, v float64) Temp {
	t := g.next()
	if typ == token.Real {
		g.printf("double %s = %s;\n", t, realLiteral(v))
	} else {
		g.printf("int %s = %d;\n", t, int64(v))
	}
	return t
}

// realLiteral spells v as a C double literal that reads back to the same value.
func realLiteral(v float64) string {
	switch {
	case math.IsNaN(v):
		return "(0.0 / 0.0)"
	case math.IsInf(v, 1):
		return "1e999"
	case math.IsInf(v, -1):
		return "-1e999"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// EmitIdentRef loads a named location. A vector decays to a pointer.
func (g *Generator) EmitIdentRef(class token.Class, typ token.Type, name string) Temp {
	t := g.next()
	if class == token.Vector {
		g.printf("%s *%s = %s;\n", typ.CType(), t, name)
	} else {
		g.printf("%s %s = %s;\n", typ.CType(), t, name)
	}
	return t
}

// EmitVectorIndex loads name[index] of a vector whose first index is lower.
func (g *Generator) EmitVectorIndex(typ token.Type, name string, index Temp, lower int) Temp {
	adj := g.next()
	g.printf("int %s = %s - %d;\n", adj, index, lower)
	t := g.next()
	g.printf("%s %s = %s[%s];\n", typ.CType(), t, name, adj)
	return t
}

func (g *Generator) EmitUnary(typ token.Type, op token.Op, x Temp) Temp {
	t := g.next()
	g.printf("%s %s = %s%s;\n", typ.CType(), t, op.C(), x)
	return t
}

// EmitArith computes x op y. C has no % on doubles, so a real mod works on
// the truncated operands.
func (g *Generator) EmitArith(typ token.Type, op token.Op, x, y Temp) Temp {
	t := g.next()
	if op == token.Mod && typ == token.Real {
		g.printf("double %s = (int)%s %% (int)%s;\n", t, x, y)
		return t
	}
	g.printf("%s %s = %s %s %s;\n", typ.CType(), t, x, op.C(), y)
	return t
}

// EmitBoolCompare computes x - y in the operands' promoted type. The sign of
// the result against zero decides the comparison.
func (g *Generator) EmitBoolCompare(typ token.Type, x, y Temp) Temp {
	t := g.next()
	g.printf("%s %s = %s - %s;\n", typ.CType(), t, x, y)
	return t
}

// EmitBoolValue turns a difference from EmitBoolCompare into 0 or 1.
func (g *Generator) EmitBoolValue(op token.Op, diff Temp) Temp {
	t := g.next()
	g.printf("int %s = %s %s 0;\n", t, diff, op.C())
	return t
}

func join(args []Arg, f func(Arg) string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = f(a)
	}
	return strings.Join(parts, ", ")
}

// EmitCall calls a function and keeps its result.
func (g *Generator) EmitCall(typ token.Type, name string, args []Arg) Temp {
	t := g.next()
	g.printf("%s %s = %s(%s);\n", typ.CType(), t, name, join(args, Arg.ref))
	return t
}

// EmitProcCall calls a routine for its effect only.
func (g *Generator) EmitProcCall(name string, args []Arg) {
	g.printf("%s(%s);\n", name, join(args, Arg.ref))
}

// Stores.

func (g *Generator) EmitScalarStore(name string, v Temp) {
	g.printf("%s = %s;\n", name, v)
}

func (g *Generator) EmitVectorStore(name string, index Temp, lower int, v Temp) {
	adj := g.next()
	g.printf("int %s = %s - %d;\n", adj, index, lower)
	g.printf("%s[%s] = %s;\n", name, adj, v)
}

// Control flow.

// NextControlLabel returns the label the next reservation will start at.
func (g *Generator) NextControlLabel() Label { return g.l }

// ReserveLabels claims n consecutive labels without emitting anything and
// returns the first one.
func (g *Generator) ReserveLabels(n int) Label {
	base := g.l
	g.l += Label(n)
	return base
}

func (g *Generator) EmitLabel(l Label) { g.printf("%s: ;\n", l) }

func (g *Generator) EmitGoto(l Label) { g.printf("goto %s;\n", l) }

// EmitBranch starts a conditional that fires when c op 0 is false. The
// guarded statement, usually a goto, is written next on the same line.
func (g *Generator) EmitBranch(c Temp, op token.Op) {
	g.printf("if (%s %s 0) ", c, op.Invert().C())
}

// Declarations and framing.

func (g *Generator) EmitPrologue() { g.printf("#include <stdio.h>\n\n") }

func (g *Generator) EmitScalarDecl(typ token.Type, name string) {
	g.printf("%s %s;\n", typ.CType(), name)
}

func (g *Generator) EmitVectorDecl(typ token.Type, name string, n int) {
	g.printf("%s %s[%d];\n", typ.CType(), name, n)
}

func routineHead(typ token.Type, name string, params []Arg) string {
	return fmt.Sprintf("%s %s(%s)", typ.CType(), name, join(params, Arg.param))
}

// EmitRoutinePrototype declares a routine ahead of its definition.
func (g *Generator) EmitRoutinePrototype(typ token.Type, name string, params []Arg) {
	g.printf("%s;\n", routineHead(typ, name, params))
}

// EmitRoutineHeader starts a routine definition. The body follows EmitBlockOpen.
func (g *Generator) EmitRoutineHeader(typ token.Type, name string, params []Arg) {
	g.printf("%s", routineHead(typ, name, params))
}

// EmitReturn returns from a procedure, or returns the named alias of a function.
func (g *Generator) EmitReturn(typ token.Type, name string) {
	if typ == token.Undefined {
		g.printf("return;\n")
		return
	}
	g.printf("return %s;\n", name)
}

func (g *Generator) EmitProgramEntry() { g.printf("int main () {\n") }
func (g *Generator) EmitProgramExit()  { g.printf("return 0;\n}\n") }
func (g *Generator) EmitBlockOpen()    { g.printf("\n{\n") }
func (g *Generator) EmitBlockClose()   { g.printf("}\n") }

// I/O.

func format(args []Arg, integer, real string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Type == token.Integer {
			parts[i] = integer
		} else {
			parts[i] = real
		}
	}
	return strings.Join(parts, " ")
}

// EmitRead scans every argument by reference.
func (g *Generator) EmitRead(args []Arg) {
	refs := join(args, func(a Arg) string { return "&" + a.ref() })
	g.printf("scanf(\"%s\", %s);\n", format(args, "%d", "%lf"), refs)
}

// EmitWrite prints every argument followed by a newline.
func (g *Generator) EmitWrite(args []Arg) {
	if len(args) == 0 {
		g.printf("printf(\"\\n\");\n")
		return
	}
	g.printf("printf(\"%s\\n\", %s);\n", format(args, "%d", "%f"), join(args, Arg.ref))
}
