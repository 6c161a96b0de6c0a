// Package logging configures the process-wide structured logger.
// Components receive children of the root logger tagged with a
// "component" attribute; nothing in the codebase logs through a second
// path.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the root text logger at the given level, installs it as
// the slog default, and returns it. The level string comes from
// MICASA_LOG_LEVEL; "warning" is accepted as an alias for "warn", and
// anything unrecognized (including empty) means info.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
