package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	var out, std string
	var quiet, verbose bool
	var n int
	fs := NewFlagSet("mpc")
	fs.String(&out, "output", "o", "-", "Output file", "file")
	fs.String(&std, "std", "", "mp", "Standard", "std")
	fs.Bool(&quiet, "quiet", "q", false, "Quiet")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose")
	fs.Int(&n, "levels", "", 2, "Levels", "n")

	require.NoError(t, fs.Parse([]string{"-q", "--std=mp-lenient", "-oout.c", "--levels", "3", "in.json", "--", "-v"}))
	require.Equal(t, "out.c", out)
	require.Equal(t, "mp-lenient", std)
	require.True(t, quiet)
	require.False(t, verbose)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"in.json", "-v"}, fs.Args())

	require.NoError(t, fs.Parse([]string{"-o=x.c", "-", "--verbose=false"}))
	require.Equal(t, "x.c", out)
	require.Equal(t, []string{"-"}, fs.Args())
	require.False(t, verbose)
}

func TestParseErrors(t *testing.T) {
	var out string
	var n int
	fs := NewFlagSet("mpc")
	fs.String(&out, "output", "o", "-", "Output file", "file")
	fs.Int(&n, "levels", "", 2, "Levels", "n")

	require.ErrorContains(t, fs.Parse([]string{"--nope"}), "unknown flag")
	require.ErrorContains(t, fs.Parse([]string{"-o"}), "needs an argument")
	require.ErrorContains(t, fs.Parse([]string{"--levels=two"}), "invalid integer")
}

func TestFlagGroup(t *testing.T) {
	on, off := true, false
	fs := NewFlagSet("mpc")
	fs.AddFlagGroup("Warning Flags", "", "warning flag", "Available Warnings:", []FlagGroupEntry{
		{Name: "guard", Prefix: "W", Usage: "guard", Enabled: &on, Disabled: &off},
	})
	require.NotNil(t, fs.Lookup("Wguard"))
	require.NoError(t, fs.Parse([]string{"-Wno-guard"}))
	require.True(t, off)
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp("mpc")
	app.Synopsis = "[options] <program.json>"
	app.Description = "Compiles a parsed program."
	app.Stdout, app.Stderr = &stdout, &stderr
	called := false
	app.Action = func([]string) error { called = true; return nil }

	require.NoError(t, app.Run([]string{"--help"}))
	require.False(t, called)
	require.Contains(t, stdout.String(), "mpc")
	require.Contains(t, stdout.String(), "--help")

	app = NewApp("mpc")
	app.Stdout, app.Stderr = &stdout, &stderr
	var got []string
	app.Action = func(args []string) error { got = args; return nil }
	require.NoError(t, app.Run([]string{"a.json"}))
	require.Equal(t, []string{"a.json"}, got)

	app = NewApp("mpc")
	app.Stdout, app.Stderr = &stdout, &stderr
	require.Error(t, app.Run([]string{"--bogus"}))
	require.Contains(t, stderr.String(), "unknown flag: --bogus")
}
