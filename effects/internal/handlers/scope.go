package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

// effectScope owns a worker queue and the lifecycle around it.
//
// Sends and Close are safe for concurrent use: Close waits for in-progress
// sends, rejects later ones with ErrHandlerClosed, drains every message
// already queued and only then cancels the handler context and tears down.
type effectScope[T any] struct {
	EffectId string
	queue    *workerQueue[T]
	cancelFn context.CancelFunc
	teardown func()

	mu     sync.RWMutex
	closed bool
}

func newEffectScope[T any](
	queue *workerQueue[T],
	cancelFn context.CancelFunc,
	teardown func(),
) *effectScope[T] {
	if teardown == nil {
		teardown = func() {}
	}
	return &effectScope[T]{
		EffectId: uuid.New().String(),
		queue:    queue,
		cancelFn: cancelFn,
		teardown: teardown,
	}
}

func (es *effectScope[T]) send(ctx context.Context, msg T) error {
	es.mu.RLock()
	defer es.mu.RUnlock()
	if es.closed {
		return effectmodel.ErrHandlerClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case es.queue.channelOf(msg) <- msg:
		return nil
	}
}

// Close is idempotent.
func (es *effectScope[T]) Close() {
	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		return
	}
	es.closed = true
	es.mu.Unlock()

	es.queue.close()
	es.cancelFn()
	es.teardown()
}
