package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

// ResumableResult is what a resumable handler answers with.
type ResumableResult[T any] struct {
	Value T
	Err   error
}

func ResumableResultFrom[R any](res R, err error) ResumableResult[R] {
	return ResumableResult[R]{Value: res, Err: err}
}

// request pairs a payload with the channel its answer goes back on. The
// channel has room for exactly one answer, so a worker never blocks on a
// caller that stopped waiting.
type request[P any, R any] struct {
	payload P
	reply   chan ResumableResult[R]
}

var _ effectmodel.Partitionable = request[any, any]{}

// PartitionKey routes by the payload's key; non-partitionable payloads all
// share one partition.
func (r request[P, R]) PartitionKey() string {
	if p, ok := any(r.payload).(effectmodel.Partitionable); ok {
		return p.PartitionKey()
	}
	return ""
}

type ResumableHandler[P any, R any] struct {
	*effectScope[request[P, R]]
}

func NewPartitionableResumableHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	return newResumableHandler(ctx, teardown, func(ctx context.Context) *workerQueue[request[P, R]] {
		return newPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, answer(handleFn))
	})
}

func newResumableHandler[P any, R any](
	ctx context.Context,
	teardown func(),
	newQueue func(context.Context) *workerQueue[request[P, R]],
) ResumableHandler[P, R] {
	ctx, cancelFn := context.WithCancel(ctx)
	return ResumableHandler[P, R]{
		effectScope: newEffectScope(newQueue(ctx), cancelFn, teardown),
	}
}

func answer[P any, R any](
	handleFn func(context.Context, P) (R, error),
) func(context.Context, request[P, R]) {
	return func(ctx context.Context, req request[P, R]) {
		req.reply <- ResumableResultFrom(handleFn(ctx, req.payload))
		close(req.reply)
	}
}

// PerformEffect enqueues payload and returns the channel its result will be
// delivered on. If the payload could not be enqueued the channel already
// holds the failure.
func (rh ResumableHandler[P, R]) PerformEffect(ctx context.Context, payload P) <-chan ResumableResult[R] {
	req := request[P, R]{payload: payload, reply: make(chan ResumableResult[R], 1)}
	if err := rh.send(ctx, req); err != nil {
		var zero R
		req.reply <- ResumableResultFrom(zero, err)
		close(req.reply)
	}
	return req.reply
}
