// Package main provides the linen command line tool.
//
// It initializes the variables of a model described in YAML, stores them as
// .born checkpoints or in a SQLite database, and inspects stored checkpoints.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const version = "v0.1.0-dev"

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(outW io.Writer, args []string) error
}

func commands() []command {
	return []command{
		{"init", "Initialize model variables from a YAML model file", runInit},
		{"apply", "Run a sample batch through a model with stored variables", runApply},
		{"inspect", "Describe a stored checkpoint", runInspect},
		{"list", "List the checkpoints in a SQLite store", runList},
		{"version", "Show version", runVersion},
	}
}

// run dispatches args to a subcommand.
func run(outW io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(outW)
		return nil
	}
	for _, c := range commands() {
		if c.name == args[0] {
			return c.run(outW, args[1:])
		}
	}
	usage(outW)
	return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", args[0])}
}

func usage(outW io.Writer) {
	fmt.Fprintf(outW, "linen %s - declarative modules bound to variable scopes\n\n", version)
	fmt.Fprintln(outW, "Usage:")
	fmt.Fprintln(outW, "  linen <command> [options]")
	fmt.Fprintln(outW)
	fmt.Fprintln(outW, "Commands:")
	for _, c := range commands() {
		fmt.Fprintf(outW, "  %-10s %s\n", c.name, c.summary)
	}
}

// newFlagSet returns a flag set whose parse errors become ExitErrors.
func newFlagSet(outW io.Writer, name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(outW)
	fs.Usage = func() {
		fmt.Fprintf(outW, "Usage:\n  linen %s [options] %s\n\nOptions:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args into fs. It reports help=true when -h was given.
func parse(fs *flag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	return false, nil
}
