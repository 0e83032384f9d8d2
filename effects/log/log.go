package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/on-the-ground/effectpipe/effects"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

// LogLevel is the severity of a record sent through the log effect.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

var zapLevels = map[LogLevel]zapcore.Level{
	LogDebug: zapcore.DebugLevel,
	LogInfo:  zapcore.InfoLevel,
	LogWarn:  zapcore.WarnLevel,
	LogError: zapcore.ErrorLevel,
}

type Payload struct {
	Level   LogLevel
	Message string
	Fields  map[string]interface{}
}

// WithZapEffectHandler registers a fire-and-forget log effect handler backed by logger.
// The returned function closes the handler: queued records are written and
// the logger is synced before it returns.
func WithZapEffectHandler(
	ctx context.Context,
	bufferSize int,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	return effects.WithFireAndForgetEffectHandler(
		ctx,
		bufferSize,
		effectmodel.EffectLog,
		func(_ context.Context, payload Payload) {
			write(logger, payload)
		},
		func() {
			_ = logger.Sync()
		},
	)
}

// Effect emits a structured log record through the log effect handler in ctx.
//
// Without a handler the record goes to zap's global logger, which discards
// everything unless the application replaced it.
func Effect(ctx context.Context, level LogLevel, msg string, fields map[string]interface{}) {
	payload := Payload{
		Level:   level,
		Message: msg,
		Fields:  fields,
	}
	// cancellation of the caller must not drop records
	if err := effects.FireAndForgetEffect(context.WithoutCancel(ctx), effectmodel.EffectLog, payload); err != nil {
		write(zap.L(), payload)
	}
}

// write logs payload on logger. Unknown levels are written at info.
func write(logger *zap.Logger, payload Payload) {
	level, ok := zapLevels[payload.Level]
	if !ok {
		level = zapcore.InfoLevel
	}
	ce := logger.Check(level, payload.Message)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(payload.Fields))
	for k, v := range payload.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	ce.Write(fields...)
}
