package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]bool{
	"access_token":  true,
	"api_key":       true,
	"client_secret": true,
	"password":      true,
	"token":         true,
}

const redacted = "[redacted]"

// newJSONHandler writes one record per line using the keys `reelsmith logs`
// filters on: ts, level, msg, component, source.
func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: pipelineAttr,
	})
}

func pipelineAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() == slog.KindTime {
				return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
			}
			attr.Key = "ts"
			return attr
		case slog.LevelKey:
			return slog.String(slog.LevelKey, strings.ToLower(attr.Value.String()))
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	if secretKeys[strings.ToLower(attr.Key)] && attr.Value.String() != "" {
		return slog.String(attr.Key, redacted)
	}
	return attr
}
