package worker

import (
	"fmt"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// ZapAdapter bridges the Temporal SDK logger onto zap so worker logs land
// in the same stream as everything else.
type ZapAdapter struct {
	logger *zap.Logger
}

func NewZapAdapter(logger *zap.Logger) log.Logger {
	return &ZapAdapter{logger: logger}
}

func (z *ZapAdapter) Debug(msg string, keyvals ...any) {
	z.logger.Debug(msg, fields(keyvals)...)
}

func (z *ZapAdapter) Info(msg string, keyvals ...any) {
	z.logger.Info(msg, fields(keyvals)...)
}

func (z *ZapAdapter) Warn(msg string, keyvals ...any) {
	z.logger.Warn(msg, fields(keyvals)...)
}

func (z *ZapAdapter) Error(msg string, keyvals ...any) {
	z.logger.Error(msg, fields(keyvals)...)
}

func fields(keyvals []any) []zap.Field {
	out := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		out = append(out, zap.Any(key, keyvals[i+1]))
	}
	return out
}
