// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/ezrec/sjasm/asm"
	"github.com/ezrec/sjasm/translate"
)

var f = translate.From

const BANNER = "SjASM Z80 Assembler v0.39h"

// Exit codes.
const (
	EXIT_OK       = 0
	EXIT_COMPILE  = 1 // Source contains errors.
	EXIT_FILE     = 2 // A file could not be opened.
	EXIT_FATAL    = 3 // Resource limit or cancellation.
	EXIT_NO_INPUT = 4
	EXIT_USAGE    = 5 // Unknown option.
)

var (
	ErrNoInput = errors.New(f("no input file"))
	ErrUsage   = errors.New(f("invalid command line"))
)

type config struct {
	compass    bool
	reversePop bool
	stderr     bool
	vs         bool
	listing    bool
	symbols    bool
	include    []string
	define     []string
	trace      int
	lang       string
}

// exitCode maps an assembly error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return EXIT_OK
	case errors.Is(err, asm.ErrResourceLimit), errors.Is(err, asm.ErrCancelled):
		return EXIT_FATAL
	case errors.Is(err, asm.ErrFileAccess):
		return EXIT_FILE
	case errors.Is(err, asm.ErrCompile):
		return EXIT_COMPILE
	case errors.Is(err, ErrNoInput):
		return EXIT_NO_INPUT
	case errors.Is(err, ErrUsage):
		return EXIT_USAGE
	}
	return EXIT_FATAL
}

// predefine parses a -D name[=value] definition. The value defaults to 1.
func predefine(assembler *asm.Assembler, def string) (err error) {
	name, text, ok := strings.Cut(def, "=")
	value := int64(1)
	if ok {
		value, err = strconv.ParseInt(text, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: -D %v", ErrUsage, def)
		}
	}
	if name == "" {
		return fmt.Errorf("%w: -D %v", ErrUsage, def)
	}
	assembler.Predefine(name, value)
	return
}

// trace routes glog verbosity to stderr.
func trace(level int) {
	if level <= 0 {
		return
	}
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(level))
}

func writeFile(name string, write func(w io.Writer) error) (err error) {
	ouf, err := os.Create(name)
	if err != nil {
		return &asm.ErrFile{Name: name, Err: err}
	}
	defer func() {
		cerr := ouf.Close()
		if err == nil && cerr != nil {
			err = &asm.ErrFile{Name: name, Err: cerr}
		}
	}()

	err = write(ouf)
	if err != nil {
		err = &asm.ErrFile{Name: name, Err: err}
	}
	return
}

// assemble runs the assembler on the source named by args, writing the
// output files on success or on compile errors.
func assemble(ctx context.Context, cfg *config, args []string, out io.Writer, stderr io.Writer) (code int) {
	if len(args) == 0 {
		translate.Fprintf(out, "Error: %v\n", ErrNoInput)
		return EXIT_NO_INPUT
	}

	source := args[0]
	base := strings.TrimSuffix(source, filepath.Ext(source))
	target := base + ".out"
	if len(args) > 1 {
		target = args[1]
	}
	listing := base + ".lst"
	if len(args) > 2 {
		listing = args[2]
		cfg.listing = true
	}

	assembler := &asm.Assembler{
		Options: asm.Options{
			ReversePop:  cfg.reversePop,
			IncludePath: cfg.include,
			Listing:     cfg.listing,
		},
	}
	if cfg.compass {
		assembler.Dialect = asm.DIALECT_COMPASS
	}
	for _, def := range cfg.define {
		err := predefine(assembler, def)
		if err != nil {
			translate.Fprintf(out, "Error: %v\n", err)
			return exitCode(err)
		}
	}

	result, err := assembler.AssembleFile(ctx, source)
	glog.V(1).Infof("%v: %v after %d passes", source, result.State, result.Passes)
	if glog.V(3) {
		printer := pp.New()
		printer.SetOutput(stderr)
		printer.SetColoringEnabled(false)
		printer.Println(maps.Collect(result.Symbols.Defined()))
	}

	format := asm.FORMAT_PLAIN
	if cfg.vs {
		format = asm.FORMAT_VS
	}
	perr := result.Diagnostics.Print(out, format)
	if perr != nil {
		glog.Errorf("diagnostics: %v", perr)
	}

	code = exitCode(err)
	if code != EXIT_OK && code != EXIT_COMPILE {
		return
	}

	err = writeFile(target, func(w io.Writer) error {
		_, err := w.Write(result.Code)
		return err
	})
	if err == nil && cfg.listing {
		err = writeFile(listing, func(w io.Writer) error {
			return asm.WriteListing(w, result.Listing, result.Symbols)
		})
	}
	if err == nil && cfg.symbols {
		err = writeFile(base+".sym", func(w io.Writer) error {
			return asm.WriteSymbols(w, result.Symbols)
		})
	}
	if err != nil {
		translate.Fprintf(out, "Error: %v\n", err)
		code = exitCode(err)
	}
	return
}

func newCommand(cfg *config, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sjasm [options] sourcefile [targetfile [listfile]]",
		Short: f("Z80 cross assembler"),
		Long: f(`Sjasm assembles Z80 source into a binary file, resolving forward
references over as many passes as needed. The Compass compatible
dialect is selected by -c.`),
		Args:          cobra.MaximumNArgs(3),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	flags := cmd.Flags()
	flags.BoolVarP(&cfg.compass, "compass", "c", false, f("Compass compatibility mode"))
	flags.BoolVarP(&cfg.reversePop, "reverse-pop", "r", false, f("Reverse multi-register pop order (with -c)"))
	flags.BoolVarP(&cfg.stderr, "stderr", "e", false, f("Print diagnostics to stderr"))
	flags.BoolVarP(&cfg.vs, "vs", "v", false, f("Visual Studio diagnostic format"))
	flags.BoolVarP(&cfg.listing, "listing", "l", false, f("Write a listing file"))
	flags.BoolVarP(&cfg.symbols, "symbols", "s", false, f("Write a symbol file"))
	flags.StringArrayVarP(&cfg.include, "include", "i", nil, f("Include file search directory"))
	flags.StringArrayVarP(&cfg.define, "define", "D", nil, f("Predefine a constant, name[=value]"))
	flags.IntVar(&cfg.trace, "trace", 0, f("Pass trace verbosity"))
	flags.StringVar(&cfg.lang, "lang", "", f("Message language"))
	_ = flags.MarkHidden("lang")

	return cmd
}

// run executes the command line, returning the exit code.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) (code int) {
	fmt.Fprintln(stdout, BANNER)

	cfg := &config{}
	cmd := newCommand(cfg, func(cmd *cobra.Command, args []string) error {
		if cfg.lang != "" {
			translate.Use(cfg.lang)
		}
		trace(cfg.trace)

		out := stdout
		if cfg.stderr {
			out = stderr
		}
		code = assemble(cmd.Context(), cfg, args, out, stderr)
		return nil
	})
	// A nil slice would select os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		if !errors.Is(err, ErrUsage) {
			err = fmt.Errorf("%w: %w", ErrUsage, err)
		}
		out := stdout
		if cfg.stderr {
			out = stderr
		}
		translate.Fprintf(out, "Error: %v\n", err)
		fmt.Fprintln(out, cmd.UseLine())
		return exitCode(err)
	}

	return
}

func main() {
	// glog reads its configuration from the standard flag set.
	_ = flag.CommandLine.Parse(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	glog.Flush()
	os.Exit(code)
}
