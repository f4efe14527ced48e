package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opal-lang/tagscan/runtime/eventfmt"
	"github.com/opal-lang/tagscan/runtime/scanner"
	"github.com/opal-lang/tagscan/runtime/tree"
)

func newEventsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "events [file|-]",
		Short: "Print the event stream of a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "cbor":
			default:
				return &CLIError{Type: "input", Message: fmt.Sprintf("unknown format %q", format), Hint: "use text, json or cbor"}
			}

			name, text, err := a.readInput(args)
			if err != nil {
				return err
			}
			res := scanner.Parse(text, a.scannerOptions(name)...)

			switch format {
			case "text":
				writeEvents(a.stdout, res.Events, func(offset int) string {
					return res.Source.PositionAt(offset).String()
				})
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(eventfmt.Canonicalize(res.Events)); err != nil {
					return err
				}
			case "cbor":
				if _, err := eventfmt.Write(a.stdout, res.Events); err != nil {
					return err
				}
			}
			warn(a.stderr, res, ShouldUseColor(a.noColor, a.stderr))
			return scanError(res)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, json or cbor")
	return cmd
}

func newTreeCmd(a *app) *cobra.Command {
	var (
		dropWhitespace bool
		noComments     bool
		find           string
	)
	cmd := &cobra.Command{
		Use:   "tree [file|-]",
		Short: "Print the element tree of a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, text, err := a.readInput(args)
			if err != nil {
				return err
			}

			opts := []tree.Option{
				tree.WithScannerOptions(a.scannerOptions(name)...),
				tree.WithRequiresClosingTag(a.dialect.RequiresClosingTag),
				tree.WithLogger(a.logger),
			}
			if dropWhitespace {
				opts = append(opts, tree.WithDropWhitespace())
			}
			if noComments {
				opts = append(opts, tree.WithoutComments())
			}
			doc := tree.Parse(text, opts...)

			root := doc.Root
			if find != "" {
				n, err := doc.Find(find)
				if err != nil {
					return &CLIError{Type: "tree", Message: err.Error()}
				}
				root = n
			}
			_, _ = io.WriteString(a.stdout, root.String())

			if doc.ScanErr != nil {
				return &CLIError{Type: "scan", Message: doc.ScanErr.Error(), Details: doc.ScanErr.Snippet(doc.Source)}
			}
			if len(doc.Errors) > 0 {
				details := make([]string, 0, len(doc.Errors))
				for _, e := range doc.Errors {
					details = append(details, "  "+e.Error())
				}
				return &CLIError{
					Type:    "tree",
					Message: fmt.Sprintf("%s: %d tree error(s)", name, len(doc.Errors)),
					Details: strings.Join(details, "\n"),
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropWhitespace, "drop-whitespace", false, "Leave whitespace-only text out")
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "Leave comments out")
	cmd.Flags().StringVar(&find, "find", "", "Print only the first element with this name")
	return cmd
}

func newDigestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "digest [file...]",
		Short: "Print the BLAKE2b-256 digest of each template's event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			for _, arg := range args {
				name, text, err := a.readInput([]string{arg})
				if err != nil {
					return err
				}
				sum, err := eventfmt.Digest(scanner.Parse(text, a.scannerOptions(name)...).Events)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(a.stdout, "%x  %s\n", sum, name)
			}
			return nil
		},
	}
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Print a binary event stream written by \"events -o cbor\"",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFunc, err := a.openInput(args)
			if err != nil {
				return err
			}
			defer func() { _ = closeFunc() }()

			events, sum, err := eventfmt.Read(r)
			if err != nil {
				return &CLIError{Type: "decode", Message: "cannot decode event stream", Details: err.Error()}
			}
			writeEvents(a.stdout, events, func(offset int) string {
				return "@" + strconv.Itoa(offset)
			})
			_, _ = fmt.Fprintf(a.stdout, "digest %x\n", sum)
			return nil
		},
	}
}

// writeEvents prints one line per event: where it starts, its kind, and a
// short description.
func writeEvents(w io.Writer, events []scanner.Event, locate func(offset int) string) {
	for i := range events {
		ev := &events[i]
		_, _ = fmt.Fprintf(w, "%-8s %-13s %s\n", locate(ev.Range.Start), ev.Kind, describeEvent(ev))
	}
}

func describeEvent(ev *scanner.Event) string {
	switch ev.Kind {
	case scanner.EventOpenTagName:
		return ev.Tag.Name
	case scanner.EventOpenTag:
		return describeTag(ev.Tag)
	case scanner.EventCloseTag:
		if !ev.Explicit {
			return ev.Tag.Name + " (implicit)"
		}
		return ev.Tag.Name
	case scanner.EventPlaceholder:
		if !ev.Escape {
			return strconv.Quote(ev.Value) + " (unescaped)"
		}
	case scanner.EventError:
		return fmt.Sprintf("%s %s", ev.Err.Code, ev.Err.Message)
	}
	return strconv.Quote(ev.Value)
}

func describeTag(t *scanner.Tag) string {
	parts := []string{t.Name}
	if t.ShorthandID != nil {
		parts = append(parts, "#"+t.ShorthandID.Value)
	}
	for _, c := range t.ShorthandClasses {
		parts = append(parts, "."+c.Value)
	}
	if t.Var != nil {
		parts = append(parts, "var="+t.Var.Value)
	}
	if t.Args != nil {
		parts = append(parts, "args="+t.Args.Value)
	}
	if t.Params != nil {
		parts = append(parts, "params="+t.Params.Value)
	}
	for _, attr := range t.Attributes {
		switch {
		case attr.Spread && attr.Value != nil:
			parts = append(parts, "..."+attr.Value.Value)
		case attr.Value != nil:
			parts = append(parts, attr.Name+"="+attr.Value.Value)
		default:
			parts = append(parts, attr.Name)
		}
	}
	switch {
	case t.SelfClosed:
		parts = append(parts, "(self-closed)")
	case t.OpenTagOnly:
		parts = append(parts, "(void)")
	}
	if t.BodyMode != scanner.BodyHTML {
		parts = append(parts, "body="+t.BodyMode.String())
	}
	return strings.Join(parts, " ")
}
