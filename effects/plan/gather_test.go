package plan_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
)

type flightMeter struct {
	mu      sync.Mutex
	current int
	max     int
}

func (m *flightMeter) enter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current++
	m.max = max(m.max, m.current)
}

func (m *flightMeter) exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current--
}

func sleepy(m *flightMeter, v int, d time.Duration) plan.Plan[int] {
	return func(ctx context.Context) result.Result[int] {
		m.enter()
		defer m.exit()
		select {
		case <-time.After(d):
			return result.Ok(v)
		case <-ctx.Done():
			return result.Err[int](result.FromContext(ctx))
		}
	}
}

func TestGather_BoundsConcurrencyAndKeepsOrder(t *testing.T) {
	m := &flightMeter{}
	var plans []plan.Plan[int]
	for i := range 10 {
		plans = append(plans, sleepy(m, i, time.Duration(10-i)*time.Millisecond))
	}

	r := plan.Gather(plans, 3).Run(context.Background())

	require.True(t, r.IsOk())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, r.Value())
	assert.LessOrEqual(t, m.max, 3)
	assert.Positive(t, m.max)
}

func TestGather_EmptyIsOk(t *testing.T) {
	r := plan.Gather[int](nil, 1).Run(context.Background())
	require.True(t, r.IsOk())
	assert.Empty(t, r.Value())
}

func TestGather_ReturnsEarliestIndexError(t *testing.T) {
	early := result.NewErrInfo(result.CodeTransient, "index 1")
	late := result.NewErrInfo(result.CodeUnexpected, "index 3")
	m := &flightMeter{}

	plans := []plan.Plan[int]{
		sleepy(m, 0, 30*time.Millisecond),
		func(ctx context.Context) result.Result[int] {
			time.Sleep(20 * time.Millisecond)
			return result.Err[int](early)
		},
		sleepy(m, 2, time.Millisecond),
		plan.Fail[int](late),
	}

	r := plan.Gather(plans, 4).Run(context.Background())
	assert.Same(t, early, r.Err())
}

func TestGather_CancelsAndDrainsPendingOnError(t *testing.T) {
	var cancelled, finished atomic.Int32
	slow := func(ctx context.Context) result.Result[int] {
		defer finished.Add(1)
		select {
		case <-ctx.Done():
			cancelled.Add(1)
			return result.Err[int](result.FromContext(ctx))
		case <-time.After(5 * time.Second):
			return result.Ok(1)
		}
	}
	boom := result.NewErrInfo(result.CodeUnexpected, "boom")

	start := time.Now()
	r := plan.Gather([]plan.Plan[int]{plan.Fail[int](boom), slow, slow}, 3).Run(context.Background())

	assert.Same(t, boom, r.Err())
	assert.Less(t, time.Since(start), time.Second)
	// every started plan has returned before Gather did
	assert.Equal(t, finished.Load(), cancelled.Load())
}

func TestGather_DoesNotStartPlansAfterKnownFailure(t *testing.T) {
	var started atomic.Int32
	counting := func(ctx context.Context) result.Result[int] {
		started.Add(1)
		return result.Ok(0)
	}
	boom := result.NewErrInfo(result.CodeUnexpected, "boom")

	r := plan.Gather([]plan.Plan[int]{plan.Fail[int](boom), counting, counting, counting}, 1).Run(context.Background())

	assert.Same(t, boom, r.Err())
	assert.Equal(t, int32(0), started.Load())
}

func TestGather_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &flightMeter{}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	r := plan.Gather([]plan.Plan[int]{sleepy(m, 1, 5*time.Second)}, 1).Run(ctx)
	require.True(t, r.IsErr())
	assert.Equal(t, result.CodeCancelled, r.Err().Code())
}

func TestGather_RejectsInvalidConcurrency(t *testing.T) {
	assert.PanicsWithError(t, "plan: concurrency must be >= 1: got 0", func() {
		plan.Gather([]plan.Plan[int]{plan.Pure(1)}, 0)
	})
}

func TestGather_IsReplayable(t *testing.T) {
	var calls atomic.Int32
	p := plan.FromFunc(func(context.Context) (int32, error) { return calls.Add(1), nil })
	g := plan.Gather([]plan.Plan[int32]{p, p}, 2)

	first := g.Run(context.Background()).Value()
	second := g.Run(context.Background()).Value()
	assert.ElementsMatch(t, []int32{1, 2}, first)
	assert.ElementsMatch(t, []int32{3, 4}, second)
}
