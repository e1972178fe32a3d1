// Package debug provides category-based debug logging for argus.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via ARGUS_DEBUG env or config
//   - Levels (HOW MUCH detail): controlled via ARGUS_LOG_LEVEL env or config
//
// Usage:
//
//	debug.Log("discovery", "fetch", "provider", id, "url", url)
//	if debug.Enabled("streaming") { /* expensive formatting */ }
//
// Categories: providers, discovery, registry, streaming, tools, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug for maximum verbosity. At TRACE,
// full untruncated wire payloads are logged via Raw.
const LevelTrace = slog.LevelDebug - 4

// categories holds the enabled debug categories. Written only by init and
// Init, read everywhere else.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("ARGUS_DEBUG"))
}

// Init configures the debug system from config values. The ARGUS_DEBUG and
// ARGUS_LOG_LEVEL environment variables take precedence over config.
func Init(configCategories, configLevel string) {
	cats := os.Getenv("ARGUS_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("ARGUS_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}
	if level == "" {
		level = "INFO"
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category. A no-op when the
// category is not enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category. Only visible
// when the log level is TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE output is active for the category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(nil, LevelTrace)
}

// Raw writes plain text to stderr without slog formatting, for
// copy-paste-ready output such as full HTTP bodies. Emitted only when the
// category is enabled and the level is TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate returns s cut to maxLen characters, with "..." appended when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
