package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/token"
)

type Severity int

const (
	SevError Severity = iota
	SevWarning
)

func (s Severity) String() string {
	if s == SevWarning {
		return "warning"
	}
	return "error"
}

// Code classifies a diagnostic.
type Code int

const (
	UndefinedSymbol Code = iota
	ClassMismatch
	TypeMismatch
	UndefinedType
	DivisionByZero
	Redeclaration
	DuplicateSymbol
	ArityMismatch
	UninitializedUse
	TruncationOrPromotion
)

var codeNames = [...]string{
	UndefinedSymbol:       "UndefinedSymbol",
	ClassMismatch:         "ClassMismatch",
	TypeMismatch:          "TypeMismatch",
	UndefinedType:         "UndefinedType",
	DivisionByZero:        "DivisionByZero",
	Redeclaration:         "Redeclaration",
	DuplicateSymbol:       "DuplicateSymbol",
	ArityMismatch:         "ArityMismatch",
	UninitializedUse:      "UninitializedUse",
	TruncationOrPromotion: "TruncationOrPromotion",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Pos      token.Pos
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Reporter collects the diagnostics of one compilation. Errors never stop
// the pass; they are counted so the caller can decide the exit status.
type Reporter struct {
	cfg      *config.Config
	out      io.Writer
	color    bool
	filename string
	lines    []string
	diags    []Diagnostic
	errors   int
	warnings int
}

// NewReporter prints to out as diagnostics arrive. A nil out only records them.
func NewReporter(cfg *config.Config, out io.Writer) *Reporter {
	r := &Reporter{cfg: cfg, out: out, filename: "<input>"}
	if f, ok := out.(*os.File); ok {
		r.color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

// SetSource names the input in locations. With content, diagnostics also
// quote the offending line.
func (r *Reporter) SetSource(filename string, content []byte) {
	r.filename = filename
	r.lines = nil
	if content != nil {
		r.lines = strings.Split(string(content), "\n")
	}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (r *Reporter) printLine(pos token.Pos) {
	if !pos.IsValid() || pos.Line > len(r.lines) {
		return
	}
	line := r.lines[pos.Line-1]
	fmt.Fprintf(r.out, "  %s\n", line)
	if pos.Column < 1 {
		return
	}
	caret := "^"
	if pos.Len > 1 {
		caret += strings.Repeat("~", pos.Len-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", pos.Column-1), r.paint("32", caret))
}

func (r *Reporter) location(pos token.Pos) string {
	if !pos.IsValid() {
		return r.filename
	}
	return r.filename + ":" + pos.String()
}

// Errorf records an error at pos.
func (r *Reporter) Errorf(code Code, pos token.Pos, format string, args ...any) {
	d := Diagnostic{Severity: SevError, Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	r.errors++
	if r.out == nil {
		return
	}
	fmt.Fprintf(r.out, "%s: %s %s\n", r.location(pos), r.paint("31", "error:"), d.Message)
	r.printLine(pos)
}

// Warnf records a warning of class wt unless that class is disabled.
func (r *Reporter) Warnf(wt config.Warning, code Code, pos token.Pos, format string, args ...any) {
	if r.cfg != nil && !r.cfg.IsWarningEnabled(wt) {
		return
	}
	d := Diagnostic{Severity: SevWarning, Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	r.warnings++
	if r.out == nil {
		return
	}
	name := "extra"
	if r.cfg != nil {
		name = r.cfg.WarningName(wt)
	}
	fmt.Fprintf(r.out, "%s: %s %s [-W%s]\n", r.location(pos), r.paint("33", "warning:"), d.Message, name)
	r.printLine(pos)
}

func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }
func (r *Reporter) ErrorCount() int           { return r.errors }
func (r *Reporter) WarningCount() int         { return r.warnings }
func (r *Reporter) HasErrors() bool           { return r.errors > 0 }

// Codes lists the codes of every recorded diagnostic of severity sev, in order.
func (r *Reporter) Codes(sev Severity) []Code {
	var out []Code
	for _, d := range r.diags {
		if d.Severity == sev {
			out = append(out, d.Code)
		}
	}
	return out
}
