package util

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/token"
)

func TestReporterFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.NewConfig()
	r := NewReporter(cfg, &buf)
	r.SetSource("prog.mp", []byte("program p;\n  x := y;\n"))

	r.Errorf(UndefinedSymbol, token.Pos{Line: 2, Column: 8, Len: 1}, "'%s' is undefined", "y")
	r.Warnf(config.WarnTruncation, TruncationOrPromotion, token.Pos{Line: 2, Column: 3}, "value will be truncated")

	want := "prog.mp:2:8: error: 'y' is undefined\n" +
		"    x := y;\n" +
		"         ^\n" +
		"prog.mp:2:3: warning: value will be truncated [-Wtruncation]\n" +
		"    x := y;\n" +
		"    ^\n"
	require.Equal(t, want, buf.String())
	require.Equal(t, 1, r.ErrorCount())
	require.Equal(t, 1, r.WarningCount())
	require.True(t, r.HasErrors())
	require.Equal(t, []Code{UndefinedSymbol}, r.Codes(SevError))
}

func TestReporterSuppressesWarnings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnGuard, false)
	r := NewReporter(cfg, nil)

	r.Warnf(config.WarnGuard, TruncationOrPromotion, token.Pos{}, "guard")
	require.Zero(t, r.WarningCount())

	cfg.Quiet = true
	r.Warnf(config.WarnUninitialized, UninitializedUse, token.Pos{}, "x")
	require.Zero(t, r.WarningCount())

	r.Errorf(ArityMismatch, token.Pos{Line: 9}, "bad call")
	require.Equal(t, "9: error: bad call", r.Diagnostics()[0].String())
}

func TestRecoverInternal(t *testing.T) {
	sentinel := errors.New("scope overflow")
	run := func(f func()) (err error) {
		defer RecoverInternal(&err)
		f()
		return nil
	}

	err := run(func() { Internal("enter", sentinel) })
	var ie *InternalError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, "enter", ie.Op)
	require.ErrorIs(t, err, sentinel)

	err = run(func() { Internalf("label", "label %d out of range", 4) })
	require.EqualError(t, err, "internal error: label: label 4 out of range")

	err = run(func() { panic(sentinel) })
	require.ErrorIs(t, err, sentinel)

	require.Panics(t, func() { _ = run(func() { panic("not an error") }) })
	require.NoError(t, run(func() {}))
}
