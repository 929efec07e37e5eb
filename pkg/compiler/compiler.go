// Package compiler drives one compilation: it walks a parsed program in
// source order, resolves every construct with the typeChecker and hands the
// approved values to the code generator.
package compiler

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/xplshn/mpc/pkg/ast"
	"github.com/xplshn/mpc/pkg/codegen"
	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/numtab"
	"github.com/xplshn/mpc/pkg/strtab"
	"github.com/xplshn/mpc/pkg/symtab"
	"github.com/xplshn/mpc/pkg/typeChecker"
	"github.com/xplshn/mpc/pkg/util"
)

// Context owns the tables of one compilation.
type Context struct {
	Names  *strtab.Table
	Consts *numtab.Table
	Syms   *symtab.Table
}

func NewContext(cfg *config.Config) *Context {
	levels := symtab.DefaultLevels
	if cfg != nil && cfg.ScopeLevels > 0 {
		levels = cfg.ScopeLevels
	}
	names := strtab.New()
	return &Context{Names: names, Consts: numtab.New(), Syms: symtab.New(names, levels)}
}

// Snapshot is a JSON-encodable dump of the tables.
type Snapshot struct {
	Identifiers []string               `json:"identifiers"`
	Constants   []float64              `json:"constants"`
	Symbols     []symtab.LevelSnapshot `json:"symbols"`
}

func (c *Context) Snapshot() Snapshot {
	return Snapshot{
		Identifiers: c.Names.Snapshot(),
		Constants:   c.Consts.Snapshot(),
		Symbols:     c.Syms.Snapshot(),
	}
}

// Options configures Compile. Nil fields get quiet defaults.
type Options struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	Reporter *util.Reporter
	Output   io.Writer
}

// Result summarises a finished compilation. A program with errors still
// produces a Result; check Errors.
type Result struct {
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Written  int64         `json:"written"`
	Temps    codegen.Temp  `json:"temps"`
	Labels   codegen.Label `json:"labels"`
}

type driver struct {
	cc   *Context
	tc   *typeChecker.TypeChecker
	gen  *codegen.Generator
	diag *util.Reporter
	log  zerolog.Logger
}

// Compile checks prog and writes its translation to opts.Output. Problems in
// the program are reported to opts.Reporter and never fail the call. The
// returned error is a broken compiler invariant or a failed write.
func Compile(cc *Context, prog *ast.Program, opts Options) (res Result, err error) {
	if opts.Config == nil {
		opts.Config = config.NewConfig()
	}
	if opts.Reporter == nil {
		opts.Reporter = util.NewReporter(opts.Config, nil)
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}

	d := &driver{
		cc:   cc,
		tc:   typeChecker.NewTypeChecker(cc.Names, cc.Consts, cc.Syms, opts.Config, opts.Reporter),
		gen:  codegen.NewGenerator(opts.Output),
		diag: opts.Reporter,
		log:  opts.Logger.With().Str("program", prog.Name).Logger(),
	}

	defer func() {
		res = Result{
			Errors:   d.diag.ErrorCount(),
			Warnings: d.diag.WarningCount(),
			Written:  d.gen.Written(),
			Temps:    d.gen.NextTemp(),
			Labels:   d.gen.NextControlLabel(),
		}
	}()
	defer util.RecoverInternal(&err)

	d.program(prog)

	if werr := d.gen.Err(); werr != nil {
		return res, fmt.Errorf("compiler: write output: %w", werr)
	}
	return res, nil
}

func (d *driver) program(p *ast.Program) {
	d.gen.EmitPrologue()

	d.declare(p.Vars)
	d.log.Debug().Int("decls", len(p.Vars)).Int("symbols", d.cc.Names.Len()).Msg("globals declared")

	for i := range p.Routines {
		d.routine(&p.Routines[i])
	}

	d.gen.EmitProgramEntry()
	d.stmts(p.Body)
	d.gen.EmitProgramExit()
	d.log.Debug().
		Int("temps", int(d.gen.NextTemp())).
		Int("labels", int(d.gen.NextControlLabel())).
		Int("errors", d.diag.ErrorCount()).
		Msg("main compiled")
}
