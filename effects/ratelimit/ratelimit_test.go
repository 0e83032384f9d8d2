package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/effectpipe/effects/clock"
	"github.com/on-the-ground/effectpipe/effects/ratelimit"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func emissionTimes(t *testing.T, n int, policy ratelimit.Policy) []time.Time {
	t.Helper()
	env, fake := clock.NewFakeEnv(epoch, 1)
	input := make([]int, n)
	s := ratelimit.RateLimited(stream.FromList(input), policy, env)

	var at []time.Time
	for r := range s.Iter(context.Background()) {
		require.True(t, r.IsOk())
		at = append(at, fake.Now())
	}
	require.Len(t, at, n)
	return at
}

func TestRateLimited_WindowBound(t *testing.T) {
	policy := ratelimit.Policy{TokensPerSecond: 5, BurstTokens: 3}
	at := emissionTimes(t, 40, policy)

	limit := int(policy.TokensPerSecond) + policy.BurstTokens
	for i := range at {
		inWindow := 0
		for j := i; j < len(at) && at[j].Sub(at[i]) < time.Second; j++ {
			inWindow++
		}
		assert.LessOrEqual(t, inWindow, limit, "window starting at item %d", i)
	}
}

func TestRateLimited_BurstIsImmediateThenPaced(t *testing.T) {
	at := emissionTimes(t, 6, ratelimit.Policy{TokensPerSecond: 10, BurstTokens: 3})

	for i := range 3 {
		assert.Equal(t, epoch, at[i], "burst item %d", i)
	}
	assert.InDelta(t, 100*time.Millisecond, at[3].Sub(epoch), float64(time.Millisecond))
	assert.InDelta(t, 100*time.Millisecond, at[5].Sub(at[4]), float64(time.Millisecond))
}

func TestRateLimited_ReplayStartsWithFullBucket(t *testing.T) {
	env, fake := clock.NewFakeEnv(epoch, 1)
	s := ratelimit.RateLimited(stream.FromList([]int{1, 2, 3}), ratelimit.Policy{TokensPerSecond: 1, BurstTokens: 2}, env)

	for range s.Iter(context.Background()) {
	}
	before := fake.Now()
	for range s.Iter(context.Background()) {
	}
	// only the third item waits, as in the first run
	assert.InDelta(t, time.Second, fake.Now().Sub(before), float64(time.Millisecond))
}

func TestRateLimited_CancelledWhileWaiting(t *testing.T) {
	env, _ := clock.NewFakeEnv(epoch, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := ratelimit.RateLimited(stream.FromList([]int{1, 2, 3}), ratelimit.Policy{TokensPerSecond: 1, BurstTokens: 1}, env)

	var out []result.Result[int]
	for r := range s.Iter(ctx) {
		out = append(out, r)
		cancel()
	}
	require.Len(t, out, 2)
	assert.Equal(t, result.CodeCancelled, out[1].Err().Code())
}

func TestRateLimited_RejectsInvalidPolicy(t *testing.T) {
	env, _ := clock.NewFakeEnv(epoch, 1)
	assert.Panics(t, func() {
		ratelimit.RateLimited(stream.FromList([]int{1}), ratelimit.Policy{TokensPerSecond: 0, BurstTokens: 1}, env)
	})
}
