// Package logtrace reports extraction engine events through zap.
package logtrace

import (
	"go.uber.org/zap"

	"github.com/markdave123-py/fiscalextract/internal/fiscal"
)

// New returns a fiscal.Trace that logs skipped candidates at warn level and everything
// else at debug level. zap loggers are safe for concurrent use.
func New(logger *zap.Logger, fields ...zap.Field) fiscal.Trace {
	l := logger.With(fields...)
	return func(e fiscal.Event) {
		fs := []zap.Field{
			zap.String("section", string(e.Section)),
			zap.Int("line", e.Line),
		}
		if e.Kind == fiscal.EventSkip {
			l.Warn("extraction candidate skipped", append(fs, zap.String("reason", string(e.Reason)))...)
			return
		}
		l.Debug("extraction "+e.Kind.String(), fs...)
	}
}
