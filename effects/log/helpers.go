package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// WithTestEffectHandler installs a development console logger at debug level.
func WithTestEffectHandler(
	ctx context.Context,
) (context.Context, func() context.Context) {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
	return WithZapEffectHandler(
		ctx,
		1,
		zap.New(consoleCore),
	)
}

// WithObservedEffectHandler installs a handler that records every entry at
// or above level in memory. Entries are complete once the returned end
// function has been called.
func WithObservedEffectHandler(
	ctx context.Context,
	level zapcore.Level,
) (context.Context, *observer.ObservedLogs, func() context.Context) {
	core, logs := observer.New(level)
	ctx, end := WithZapEffectHandler(ctx, 16, zap.New(core))
	return ctx, logs, end
}
