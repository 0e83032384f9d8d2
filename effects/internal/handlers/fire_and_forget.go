package handlers

import (
	"context"
)

func NewFireAndForgetHandler[P any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	ctx, cancelFn := context.WithCancel(ctx)
	return FireAndForgetHandler[P]{
		effectScope: newEffectScope(
			newSingleQueue(ctx, bufferSize, handleFn),
			cancelFn,
			teardown,
		),
	}
}

type FireAndForgetHandler[P any] struct {
	*effectScope[P]
}

// FireAndForgetEffect enqueues payload and returns without waiting for it
// to be handled. The error is non-nil only if the payload was not enqueued.
func (ffh FireAndForgetHandler[P]) FireAndForgetEffect(ctx context.Context, payload P) error {
	return ffh.send(ctx, payload)
}
