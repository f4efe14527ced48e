package scanner

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Option configures a Parser.
type Option func(*Config)

// TelemetryMode controls telemetry collection (production-safe)
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Counts only
	TelemetryTiming                      // Counts + scan time
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // State enter/exit tracing
	DebugDetailed                   // State tracing plus every emitted event
)

// BodyMode selects how the body of an open tag is scanned.
type BodyMode int

const (
	BodyHTML       BodyMode = iota // Markup: tags, placeholders, comments
	BodyScript                     // Host script: text that skips strings and comments
	BodyParsedText                 // Text with placeholders only
	BodyStaticText                 // Text, nothing recognized
)

func (m BodyMode) String() string {
	switch m {
	case BodyHTML:
		return "html"
	case BodyScript:
		return "script"
	case BodyParsedText:
		return "parsed-text"
	case BodyStaticText:
		return "static-text"
	default:
		return "unknown"
	}
}

// ParseBodyMode is the inverse of BodyMode.String.
func ParseBodyMode(s string) (BodyMode, bool) {
	switch s {
	case "html":
		return BodyHTML, true
	case "script":
		return BodyScript, true
	case "parsed-text":
		return BodyParsedText, true
	case "static-text":
		return BodyStaticText, true
	}
	return BodyHTML, false
}

// Config holds parser configuration
type Config struct {
	legacy                bool
	ignorePlaceholders    bool
	ignoreStringTemplates bool

	isVoid        func(name string) bool
	requiresClose func(name string) bool
	bodyMode      func(name string) BodyMode

	filename  string
	logger    *slog.Logger
	telemetry TelemetryMode
	debug     DebugLevel
}

func defaultConfig() Config {
	return Config{
		isVoid:        IsVoidElement,
		requiresClose: RequiresClosingTag,
	}
}

// WithLegacyCompatibility downgrades the concise comma and semicolon rules to warnings.
func WithLegacyCompatibility() Option {
	return func(c *Config) {
		c.legacy = true
	}
}

// WithIgnorePlaceholders treats ${...} and $!{...} in content as plain text.
func WithIgnorePlaceholders() Option {
	return func(c *Config) {
		c.ignorePlaceholders = true
	}
}

// WithIgnoreNonstandardStringPlaceholders stops ${...} inside quoted
// attribute strings from being folded into concatenation expressions.
func WithIgnoreNonstandardStringPlaceholders() Option {
	return func(c *Config) {
		c.ignoreStringTemplates = true
	}
}

// WithVoidElements replaces the void-element predicate.
func WithVoidElements(isVoid func(name string) bool) Option {
	return func(c *Config) {
		c.isVoid = isVoid
	}
}

// WithRequiresClosingTag replaces the required-closing-tag predicate.
func WithRequiresClosingTag(requires func(name string) bool) Option {
	return func(c *Config) {
		c.requiresClose = requires
	}
}

// WithBodyMode installs a predicate choosing the body mode for each open tag.
// Handlers may still override it through the Enter*Content methods.
func WithBodyMode(mode func(name string) BodyMode) Option {
	return func(c *Config) {
		c.bodyMode = mode
	}
}

// WithFilename names the source in errors.
func WithFilename(name string) Option {
	return func(c *Config) {
		c.filename = name
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithTelemetryBasic enables basic telemetry (counts only)
func WithTelemetryBasic() Option {
	return func(c *Config) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + scan time)
func WithTelemetryTiming() Option {
	return func(c *Config) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugPaths enables state transition tracing (development only)
func WithDebugPaths() Option {
	return func(c *Config) {
		c.debug = DebugPaths
	}
}

// WithDebugDetailed enables state and event tracing (development only)
func WithDebugDetailed() Option {
	return func(c *Config) {
		c.debug = DebugDetailed
	}
}

// Telemetry holds scan metrics (production-safe)
type Telemetry struct {
	EventCount       int           // Events delivered to the handler
	ErrorCount       int           // 0 or 1, errors latch
	WarningCount     int           // Legacy compatibility warnings
	StateTransitions int           // Enter + exit calls
	MaxStateDepth    int           // Deepest state stack
	MaxBlockDepth    int           // Deepest open-tag stack
	ScanTime         time.Duration // Only with TelemetryTiming
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_openTag", "exit_openTag", "emit_text", ...
	Pos       int    // Cursor when the event was recorded
	Context   string // Additional context
}

// defaultLogger writes to stderr at Debug level when TAGSCAN_DEBUG is set.
func defaultLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("TAGSCAN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
