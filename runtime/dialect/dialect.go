// Package dialect loads host dialect files: YAML documents that configure the
// scanner for one template language (void elements, optional end tags, body
// modes, compatibility switches).
//
// Example:
//
//	version: 1.0.0
//	name: my-host
//	standardBodyModes: true
//	voidElements:
//	  names: [include]
//	bodyModes:
//	  markdown: static-text
package dialect

import (
	"fmt"
	"os"
	"slices"

	"github.com/opal-lang/tagscan/runtime/scanner"
	"github.com/opal-lang/tagscan/runtime/tree"
)

// Set modes
const (
	ModeExtend  = "extend"  // Add names to the built-in set
	ModeReplace = "replace" // Use exactly the listed names
)

// ElementSet adjusts one of the built-in element tables.
type ElementSet struct {
	Mode  string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Names []string `json:"names,omitempty" yaml:"names,omitempty"`
}

func (s ElementSet) contains(name string, builtin func(string) bool) bool {
	if slices.Contains(s.Names, name) {
		return true
	}
	return s.Mode != ModeReplace && builtin(name)
}

// Dialect configures the scanner for one host language.
type Dialect struct {
	Version string `json:"version" yaml:"version"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`

	LegacyCompatibility                 bool `json:"legacyCompatibility,omitempty" yaml:"legacyCompatibility,omitempty"`
	IgnorePlaceholders                  bool `json:"ignorePlaceholders,omitempty" yaml:"ignorePlaceholders,omitempty"`
	IgnoreNonstandardStringPlaceholders bool `json:"ignoreNonstandardStringPlaceholders,omitempty" yaml:"ignoreNonstandardStringPlaceholders,omitempty"`

	VoidElements    ElementSet `json:"voidElements,omitzero" yaml:"voidElements,omitempty"`
	OptionalEndTags ElementSet `json:"optionalEndTags,omitzero" yaml:"optionalEndTags,omitempty"`

	// StandardBodyModes starts from the HTML body modes (script, style,
	// textarea, title, xmp, plaintext); BodyModes entries override it.
	StandardBodyModes bool              `json:"standardBodyModes,omitempty" yaml:"standardBodyModes,omitempty"`
	BodyModes         map[string]string `json:"bodyModes,omitempty" yaml:"bodyModes,omitempty"`
}

// Default is plain HTML.
func Default() *Dialect {
	return &Dialect{
		Version:           "1.0.0",
		Name:              "html",
		StandardBodyModes: true,
	}
}

// LoadFile reads and validates a dialect file.
func LoadFile(path string) (*Dialect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialect: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// IsVoid reports whether name is open-tag-only in this dialect.
func (d *Dialect) IsVoid(name string) bool {
	return d.VoidElements.contains(name, scanner.IsVoidElement)
}

// RequiresClosingTag reports whether name must be closed explicitly.
func (d *Dialect) RequiresClosingTag(name string) bool {
	optional := func(n string) bool { return !scanner.RequiresClosingTag(n) }
	return !d.OptionalEndTags.contains(name, optional)
}

// BodyMode returns how the body of name is scanned.
func (d *Dialect) BodyMode(name string) scanner.BodyMode {
	if s, ok := d.BodyModes[name]; ok {
		if mode, ok := scanner.ParseBodyMode(s); ok {
			return mode
		}
	}
	if d.StandardBodyModes {
		return scanner.StandardBodyMode(name)
	}
	return scanner.BodyHTML
}

// ScannerOptions translates the dialect into scanner options.
func (d *Dialect) ScannerOptions() []scanner.Option {
	opts := []scanner.Option{
		scanner.WithVoidElements(d.IsVoid),
		scanner.WithRequiresClosingTag(d.RequiresClosingTag),
		scanner.WithBodyMode(d.BodyMode),
	}
	if d.LegacyCompatibility {
		opts = append(opts, scanner.WithLegacyCompatibility())
	}
	if d.IgnorePlaceholders {
		opts = append(opts, scanner.WithIgnorePlaceholders())
	}
	if d.IgnoreNonstandardStringPlaceholders {
		opts = append(opts, scanner.WithIgnoreNonstandardStringPlaceholders())
	}
	return opts
}

// TreeOptions configures a tree builder, and the scanner behind it, for the
// dialect.
func (d *Dialect) TreeOptions() []tree.Option {
	return []tree.Option{
		tree.WithScannerOptions(d.ScannerOptions()...),
		tree.WithRequiresClosingTag(d.RequiresClosingTag),
	}
}
