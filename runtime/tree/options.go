package tree

import (
	"log/slog"

	"github.com/opal-lang/tagscan/runtime/scanner"
)

// Option configures a Builder.
type Option func(*config)

type config struct {
	scannerOpts    []scanner.Option
	requiresClose  func(name string) bool
	dropWhitespace bool
	dropComments   bool
	logger         *slog.Logger
}

func defaultConfig() config {
	return config{
		requiresClose: scanner.RequiresClosingTag,
		logger:        scanner.DiscardLogger(),
	}
}

// WithScannerOptions passes options through to the scanner used by Parse.
func WithScannerOptions(opts ...scanner.Option) Option {
	return func(c *config) {
		c.scannerOpts = append(c.scannerOpts, opts...)
	}
}

// WithRequiresClosingTag replaces the predicate deciding which implicitly
// closed elements are reported.
func WithRequiresClosingTag(requires func(name string) bool) Option {
	return func(c *config) {
		c.requiresClose = requires
	}
}

// WithDropWhitespace leaves whitespace-only text out of the tree.
func WithDropWhitespace() Option {
	return func(c *config) {
		c.dropWhitespace = true
	}
}

// WithoutComments leaves comments out of the tree.
func WithoutComments() Option {
	return func(c *config) {
		c.dropComments = true
	}
}

// WithLogger logs implicit closes at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
