package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/opal-lang/tagscan/runtime/eventfmt"
	"github.com/opal-lang/tagscan/runtime/scanner"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch file...",
		Short: "Rescan templates whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args)
		},
	}
}

// watch reports every file once, then again after each write, until ctx is
// done. Directories are watched instead of files so editors that replace
// the file on save keep being followed.
func (a *app) watch(ctx context.Context, paths []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	tracked := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		tracked[abs] = true
		if dir := filepath.Dir(abs); !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
		a.report(abs)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !tracked[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			a.logger.Debug("change", "file", ev.Name, "op", ev.Op.String())
			a.report(filepath.Clean(ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		}
	}
}

// report prints one status line for path: its digest when it scans cleanly,
// the error otherwise.
func (a *app) report(path string) {
	useColor := ShouldUseColor(a.noColor, a.stdout)
	data, err := os.ReadFile(path)
	if err != nil {
		_, _ = fmt.Fprintf(a.stdout, "%s %s: %v\n", Colorize("FAIL", ColorRed, useColor), path, err)
		return
	}

	res := scanner.Parse(string(data), a.scannerOptions(path)...)
	if e := res.Err(); e != nil {
		_, _ = fmt.Fprintf(a.stdout, "%s %v\n", Colorize("FAIL", ColorRed, useColor), e)
		return
	}
	sum, err := eventfmt.Digest(res.Events)
	if err != nil {
		_, _ = fmt.Fprintf(a.stdout, "%s %s: %v\n", Colorize("FAIL", ColorRed, useColor), path, err)
		return
	}
	_, _ = fmt.Fprintf(a.stdout, "%s %s %d events %x\n", Colorize("ok", ColorGreen, useColor), path, len(res.Events), sum[:8])
}
