package effects

import (
	"context"

	"go.uber.org/zap"

	"github.com/on-the-ground/effectpipe/effects/internal/handlers"
	"github.com/on-the-ground/effectpipe/effects/internal/helper"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
	sharedHelper "github.com/on-the-ground/effectpipe/shared/helper"
)

// WithResumablePartitionableEffectHandler registers a resumable effect handler for a given effect enum.
//
// Payloads are hash-partitioned by PartitionKey() over config.NumWorkers workers,
// so payloads sharing a key are handled in order by the same goroutine.
//
// Usage:
//
//	ctx, end := WithResumablePartitionableEffectHandler(ctx, config, MyEffectEnum, handleFn)
//	defer end()
func WithResumablePartitionableEffectHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	handler := handlers.NewPartitionableResumableHandler(ctx, config, handleFn, normalizeTeardown(teardown))
	return register(ctx, enum, handler.EffectId, "resumable", handler.Close, handler)
}

// PerformResumableEffect sends a payload to the resumable effect handler and
// returns the channel the handler answers on.
//
// If no handler is registered the channel yields an error wrapping
// ErrNoEffectHandler.
func PerformResumableEffect[P effectmodel.Partitionable, R any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) <-chan handlers.ResumableResult[R] {
	handler, err := sharedHelper.GetTypedValueOf[handlers.ResumableHandler[P, R]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	if err != nil {
		ch := make(chan handlers.ResumableResult[R], 1)
		var zero R
		ch <- handlers.ResumableResultFrom(zero, err)
		close(ch)
		return ch
	}
	return handler.PerformEffect(ctx, payload)
}

// WithFireAndForgetEffectHandler registers a fire-and-forget effect handler for a given effect enum.
//
// Suitable for one-shot effects like logging or telemetry.
// Closing the handler drains everything already enqueued before teardown runs.
func WithFireAndForgetEffectHandler[P any](
	ctx context.Context,
	bufferSize int,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P),
	teardown ...func(),
) (context.Context, func() context.Context) {
	handler := handlers.NewFireAndForgetHandler(ctx, bufferSize, handleFn, normalizeTeardown(teardown))
	return register(ctx, enum, handler.EffectId, "fire/forget", handler.Close, handler)
}

// FireAndForgetEffect triggers a fire-and-forget effect for the given enum and payload.
//
// Returns an error wrapping ErrNoEffectHandler if no handler is registered,
// or the reason the payload could not be enqueued.
func FireAndForgetEffect[P any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) error {
	handler, err := sharedHelper.GetTypedValueOf[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	if err != nil {
		return err
	}
	return handler.FireAndForgetEffect(ctx, payload)
}

// HasEffectHandler reports whether ctx carries a handler for enum.
func HasEffectHandler(ctx context.Context, enum effectmodel.EffectEnum) bool {
	_, err := helper.GetHandler(ctx, enum)
	return err == nil
}

func register(
	ctx context.Context,
	enum effectmodel.EffectEnum,
	effectId, kind string,
	closeFn func(),
	handler any,
) (context.Context, func() context.Context) {
	ctxWith := context.WithValue(ctx, enum, handler)
	zap.L().Debug("created effect handler",
		zap.String("kind", kind), zap.String("effectId", effectId), zap.String("enum", string(enum)))

	return ctxWith, func() context.Context {
		closeFn()
		zap.L().Debug("closed effect handler",
			zap.String("kind", kind), zap.String("effectId", effectId), zap.String("enum", string(enum)))
		return ctx
	}
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}
