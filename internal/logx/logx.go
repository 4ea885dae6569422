// Package logx provides the ambient diagnostic logging used by both the
// indexer and the processor: leveled stderr output, colorized the way
// eutils/utils.go colorizes its own diagnostics, plus a small pluralizing
// helper for summary lines.
package logx

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/gedex/inflector"
)

// Level controls how much is printed. Higher is noisier.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps the CLI -log-level flag to a Level. Unknown values
// fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	default:
		return LevelInfo
	}
}

var (
	mu      sync.Mutex
	current = LevelInfo
	base    = log.New(os.Stderr, "", log.LstdFlags)

	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

// SetLevel sets the process-wide log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l <= current
}

func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		base.Output(2, fmt.Sprintf("DEBUG "+format, args...))
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		base.Output(2, fmt.Sprintf("INFO  "+format, args...))
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		base.Output(2, warnColor.Sprintf("WARN  "+format, args...))
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(LevelError) {
		base.Output(2, errorColor.Sprintf("ERROR "+format, args...))
	}
}

// Count renders "N noun" with proper pluralization for indexer/processor
// summary lines: Count(12, "file") is "12 files", Count(1, "file") is
// "1 file".
func Count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", inflector.Singularize(noun))
	}
	return fmt.Sprintf("%d %s", n, inflector.Pluralize(noun))
}
