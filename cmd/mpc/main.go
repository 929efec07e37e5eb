package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/xplshn/mpc/pkg/ast"
	"github.com/xplshn/mpc/pkg/cli"
	"github.com/xplshn/mpc/pkg/compiler"
	"github.com/xplshn/mpc/pkg/config"
	"github.com/xplshn/mpc/pkg/symtab"
	"github.com/xplshn/mpc/pkg/util"
)

var errFailed = errors.New("compilation failed")

func main() {
	app := cli.NewApp("mpc")
	app.Synopsis = "[options] <program.json>"
	app.Description = "Checks a parsed MiniPascal program and translates it to C. Reads the parser's JSON from <program.json>, or from stdin when it is '-' or missing."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/mpc>"
	app.Since = 2025

	var (
		outFile    string
		sourceFile string
		std        string
		quiet      bool
		verbose    bool
		dumpTables bool
		keepGoing  bool
		wall       bool
		wnoAll     bool
		levels     int
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the C output into <file>.", "file")
	fs.String(&sourceFile, "source", "s", "", "MiniPascal source the program was parsed from, for diagnostic context.", "file")
	fs.String(&std, "std", "", "mp", "Specify language standard (mp, mp-lenient)", "std")
	fs.Bool(&quiet, "quiet", "q", false, "Suppress warnings and progress output.")
	fs.Bool(&verbose, "verbose", "v", false, "Log every compilation phase.")
	fs.Bool(&dumpTables, "dump-tables", "", false, "Write the identifier, constant and symbol tables to stderr as JSON.")
	fs.Bool(&keepGoing, "keep-going", "k", false, "Write the output even when the program has errors.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoAll, "Wno-all", "", false, "Disable all warnings.")
	fs.Int(&levels, "scope-levels", "", symtab.DefaultLevels, "Maximum scope nesting depth, the global scope included.", "n")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		logger := newLogger(app.Stderr, quiet, verbose)

		if err := cfg.ApplyStd(std); err != nil {
			fmt.Fprintf(app.Stderr, "mpc: %v\n", err)
			return err
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if wall {
			cfg.ApplyFlag("-Wall")
		}
		if wnoAll {
			cfg.ApplyFlag("-Wno-all")
		}
		cfg.Quiet = quiet
		if err := setScopeLevels(cfg, levels); err != nil {
			fmt.Fprintf(app.Stderr, "mpc: %v\n", err)
			return err
		}

		if len(args) > 1 {
			err := fmt.Errorf("expected one input, got %d", len(args))
			fmt.Fprintf(app.Stderr, "mpc: %v\n", err)
			return err
		}
		input := "-"
		if len(args) == 1 {
			input = args[0]
		}

		err := run(input, outFile, sourceFile, dumpTables, keepGoing, cfg, &logger, app.Stderr)
		if err != nil && !errors.Is(err, errFailed) {
			fmt.Fprintf(app.Stderr, "mpc: %v\n", err)
		}
		return err
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func setScopeLevels(cfg *config.Config, n int) error {
	if n < 1 {
		return fmt.Errorf("--scope-levels must be at least 1, got %d", n)
	}
	cfg.ScopeLevels = n
	return nil
}

func newLogger(w io.Writer, quiet, verbose bool) zerolog.Logger {
	if quiet {
		return zerolog.Nop()
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func run(input, outFile, sourceFile string, dumpTables, keepGoing bool, cfg *config.Config, logger *zerolog.Logger, stderr io.Writer) error {
	start := time.Now()

	data, err := readInput(input)
	if err != nil {
		return fmt.Errorf("could not read '%s': %w", input, err)
	}
	prog, err := ast.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	logger.Debug().Str("input", input).Str("program", prog.Name).Int("routines", len(prog.Routines)).Msg("program decoded")

	diag := util.NewReporter(cfg, stderr)
	if sourceFile != "" {
		src, err := os.ReadFile(sourceFile)
		if err != nil {
			return fmt.Errorf("could not read source '%s': %w", sourceFile, err)
		}
		diag.SetSource(sourceFile, src)
	} else if input != "-" {
		diag.SetSource(input, nil)
	}

	// The output goes through a buffer so a failed program leaves no file behind.
	var buf bytes.Buffer
	cc := compiler.NewContext(cfg)
	res, err := compiler.Compile(cc, prog, compiler.Options{
		Config:   cfg,
		Logger:   logger,
		Reporter: diag,
		Output:   &buf,
	})
	if err != nil {
		return err
	}

	if dumpTables {
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cc.Snapshot()); err != nil {
			return fmt.Errorf("dump tables: %w", err)
		}
	}

	if res.Errors > 0 && !keepGoing {
		logger.Info().Int("errors", res.Errors).Int("warnings", res.Warnings).Msg("no output written")
		return errFailed
	}
	if err := writeOutput(outFile, buf.Bytes()); err != nil {
		return err
	}

	logger.Info().
		Str("output", outFile).
		Int64("bytes", res.Written).
		Int("errors", res.Errors).
		Int("warnings", res.Warnings).
		Dur("took", time.Since(start)).
		Msg("done")
	if res.Errors > 0 {
		return errFailed
	}
	return nil
}

func writeOutput(name string, data []byte) error {
	if name == "-" {
		w := bufio.NewWriter(os.Stdout)
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return w.Flush()
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
