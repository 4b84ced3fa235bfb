package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hupe1980/docgo"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the collection logger from --log-format and --log-level.
func newLogger(w io.Writer, format, level string) (*docgo.Logger, error) {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return docgo.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return docgo.NewLogger(slog.NewJSONHandler(w, opts)), nil
	case "none":
		return docgo.NoopLogger(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text|json|none)", format)
	}
}
