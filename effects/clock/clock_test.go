package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/effectpipe/effects/clock"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeEnv_SleepAdvancesClock(t *testing.T) {
	env, fake := clock.NewFakeEnv(epoch, 1)

	require.NoError(t, env.Sleeper.Sleep(context.Background(), 250*time.Millisecond))
	assert.Equal(t, epoch.Add(250*time.Millisecond), fake.Now())
	assert.Equal(t, epoch.Add(250*time.Millisecond), env.Clock.Now())
}

func TestAdvancingSleeper_RespectsCancellation(t *testing.T) {
	env, fake := clock.NewFakeEnv(epoch, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, env.Sleeper.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, epoch, fake.Now())
}

func TestClockSleeper_WakesOnFakeAdvance(t *testing.T) {
	env, fake := clock.NewFakeEnv(epoch, 1)
	s := clock.ClockSleeper{Clock: env.Clock}

	done := make(chan error, 1)
	go func() { done <- s.Sleep(context.Background(), time.Second) }()

	require.NoError(t, fake.BlockUntilContext(context.Background(), 1))
	fake.Advance(time.Second)
	assert.NoError(t, <-done)
}

func TestWithTimeout_FiresOnClock(t *testing.T) {
	env, fake := clock.NewFakeEnv(epoch, 1)
	ctx, cancel := clock.WithTimeout(context.Background(), env.Clock, 100*time.Millisecond)
	defer cancel()

	fake.Advance(100 * time.Millisecond)
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout context did not fire")
	}
	assert.ErrorIs(t, context.Cause(ctx), context.DeadlineExceeded)
}

func TestWithTimeout_CancelStops(t *testing.T) {
	env, _ := clock.NewFakeEnv(epoch, 1)
	ctx, cancel := clock.WithTimeout(context.Background(), env.Clock, time.Hour)
	cancel()
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestLockedRand_IsDeterministic(t *testing.T) {
	a, b := clock.NewLockedRand(42), clock.NewLockedRand(42)
	for range 5 {
		x := a.Float64()
		assert.Equal(t, x, b.Float64())
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
}

func TestEnv_OrDefault(t *testing.T) {
	env := clock.Env{}.OrDefault()
	assert.NotNil(t, env.Clock)
	assert.NotNil(t, env.Sleeper)
	assert.NotNil(t, env.Rand)
}

func TestSpan(t *testing.T) {
	s := clock.Span(epoch, epoch.Add(time.Minute))
	assert.Equal(t, time.Minute, s.Duration())
	assert.True(t, s.Start().Equal(epoch))
}
