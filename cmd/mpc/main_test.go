package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/mpc/pkg/compiler"
	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/symtab"
)

func testdata(name string) string { return filepath.Join("..", "..", "testdata", name) }

func compileFile(t *testing.T, input string, dump, keepGoing bool) (string, string, error) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.c")
	var stderr bytes.Buffer
	logger := zerolog.Nop()
	err := run(testdata(input), out, "", dump, keepGoing, config.NewConfig(), &logger, &stderr)
	data, rerr := os.ReadFile(out)
	if rerr != nil {
		return "", stderr.String(), err
	}
	return string(data), stderr.String(), err
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"fold", "function_vector", "if_else", "while"} {
		t.Run(name, func(t *testing.T) {
			want, err := os.ReadFile(testdata(name + ".c"))
			require.NoError(t, err)

			got, stderr, err := compileFile(t, name+".json", false, false)
			require.NoError(t, err)
			require.Empty(t, stderr)
			if diff := cmp.Diff(string(want), got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRejectedProgramWritesNothing(t *testing.T) {
	got, stderr, err := compileFile(t, "undefined.json", false, false)
	require.ErrorIs(t, err, errFailed)
	require.Empty(t, got)
	require.Contains(t, stderr, "undefined.json:3:11: error: ")
}

func TestKeepGoing(t *testing.T) {
	got, stderr, err := compileFile(t, "arity.json", false, true)
	require.ErrorIs(t, err, errFailed)
	require.Contains(t, stderr, "'p' requires 2 arguments, not 3")
	require.Contains(t, got, "void p(int a, int b);\n")
	require.Contains(t, got, "int main () {\nreturn 0;\n}\n")
}

func TestDumpTables(t *testing.T) {
	_, stderr, err := compileFile(t, "fold.json", true, false)
	require.NoError(t, err)

	var snap compiler.Snapshot
	require.NoError(t, json.Unmarshal([]byte(stderr), &snap))
	require.Equal(t, []string{"x"}, snap.Identifiers)
	require.Equal(t, []float64{2, 3, 5}, snap.Constants)
}

func TestBadInput(t *testing.T) {
	var stderr bytes.Buffer
	logger := zerolog.Nop()
	err := run(testdata("missing.json"), "-", "", false, false, config.NewConfig(), &logger, &stderr)
	require.Error(t, err)
	require.NotErrorIs(t, err, errFailed)
}

func TestScopeLevels(t *testing.T) {
	cfg := config.NewConfig()
	require.Error(t, setScopeLevels(cfg, 0))
	require.Equal(t, symtab.DefaultLevels, cfg.ScopeLevels)

	// A program with routines needs a second level.
	require.NoError(t, setScopeLevels(cfg, 1))
	logger := zerolog.Nop()
	out := filepath.Join(t.TempDir(), "out.c")
	err := run(testdata("function_vector.json"), out, "", false, false, cfg, &logger, &bytes.Buffer{})
	require.ErrorIs(t, err, symtab.ErrScopeOverflow)
	require.NoFileExists(t, out)
}
