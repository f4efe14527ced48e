// Command tagscan inspects how templates scan: the raw event stream, the
// element tree, canonical digests, and a watch mode that rescans on save.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opal-lang/tagscan/runtime/dialect"
	"github.com/opal-lang/tagscan/runtime/scanner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(a.noColor, os.Stderr))
		os.Exit(1)
	}
}

// app carries the streams and global flags shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	debug      bool
	legacy     bool
	noColor    bool

	dialect *dialect.Dialect
	logger  *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tagscan",
		Short:         "Scan hybrid HTML and concise templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Dialect file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Trace scanner state transitions to stderr")
	rootCmd.PersistentFlags().BoolVar(&a.legacy, "legacy", false, "Downgrade concise comma and semicolon rules to warnings")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newEventsCmd(a),
		newTreeCmd(a),
		newDigestCmd(a),
		newDecodeCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	a.logger = newLogger(a.stderr, a.debug)

	a.dialect = dialect.Default()
	if a.configPath != "" {
		d, err := dialect.LoadFile(a.configPath)
		if err != nil {
			return &CLIError{
				Type:    "config",
				Message: "cannot load dialect",
				Details: err.Error(),
				Hint:    "check the file against the dialect schema (version, voidElements, optionalEndTags, bodyModes)",
			}
		}
		a.dialect = d
	}
	a.logger.Debug("dialect loaded", "name", a.dialect.Name, "version", a.dialect.Version)
	return nil
}

// scannerOptions combines the dialect with the command-line switches.
func (a *app) scannerOptions(filename string) []scanner.Option {
	opts := a.dialect.ScannerOptions()
	opts = append(opts, scanner.WithFilename(filename), scanner.WithLogger(a.logger))
	if a.legacy {
		opts = append(opts, scanner.WithLegacyCompatibility())
	}
	if a.debug {
		opts = append(opts, scanner.WithDebugPaths())
	}
	return opts
}

// newLogger writes to w without timestamps or levels, at Debug when debug is
// set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// scanError turns a latched scan error into a CLI error showing the source
// line.
func scanError(res *scanner.Result) error {
	if len(res.Errors) == 0 {
		return nil
	}
	e := res.Errors[0]
	return &CLIError{
		Type:    "scan",
		Message: e.Error(),
		Details: e.Snippet(res.Source),
	}
}

func warn(w io.Writer, res *scanner.Result, useColor bool) {
	for _, wn := range res.Warnings {
		_, _ = fmt.Fprintf(w, "%s:%s\n", res.Source.Name, Colorize(wn.String(), ColorYellow, useColor))
	}
}
