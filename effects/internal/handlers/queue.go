package handlers

import (
	"context"
	"sync"

	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

// workerQueue fans messages out to a fixed set of worker goroutines.
// Each worker owns one channel and handles its messages in arrival order.
type workerQueue[T any] struct {
	effectChs []chan T
	indexOf   func(T) int
	wg        sync.WaitGroup
}

func (q *workerQueue[T]) channelOf(msg T) chan T {
	return q.effectChs[q.indexOf(msg)]
}

// close stops intake and blocks until every worker has drained its channel.
// Callers must guarantee no send is in progress.
func (q *workerQueue[T]) close() {
	for _, ch := range q.effectChs {
		close(ch)
	}
	q.wg.Wait()
}

func newSingleQueue[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
) *workerQueue[T] {
	return startWorkers(ctx, 1, bufferSize, handleFn, func(T) int { return 0 })
}

func newPartitionedQueue[T effectmodel.Partitionable](
	ctx context.Context,
	numWorkers, bufferSize int,
	handleFn func(context.Context, T),
) *workerQueue[T] {
	return startWorkers(ctx, numWorkers, bufferSize, handleFn, func(msg T) int {
		return getIndexByHash(msg, numWorkers)
	})
}

func startWorkers[T any](
	ctx context.Context,
	numWorkers, bufferSize int,
	handleFn func(context.Context, T),
	indexOf func(T) int,
) *workerQueue[T] {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	q := &workerQueue[T]{
		effectChs: make([]chan T, numWorkers),
		indexOf:   indexOf,
	}
	for i := range numWorkers {
		ch := make(chan T, bufferSize)
		q.effectChs[i] = ch
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for msg := range ch {
				handleFn(ctx, msg)
			}
		}()
	}
	return q
}
