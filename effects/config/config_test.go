package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/effectpipe/effects/binding"
	"github.com/on-the-ground/effectpipe/effects/config"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
	"github.com/on-the-ground/effectpipe/effects/resilience"
	"github.com/on-the-ground/effectpipe/effects/result"
)

func withBindings(t *testing.T, m map[string]any) context.Context {
	t.Helper()
	ctx, end := binding.WithEffectHandler(context.Background(), effectmodel.NewEffectScopeConfig(4, 1), m)
	t.Cleanup(func() { end() })
	return ctx
}

func TestLoad_Defaults(t *testing.T) {
	p, err := config.Load(withBindings(t, nil))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), p)
	assert.Nil(t, p.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	ctx := withBindings(t, map[string]any{
		config.RetryMaxAttempts:            5,
		config.RetryRetriableCodes:         "transient, timeout",
		config.RetryBackoffBase:            "10ms",
		config.RetryIdempotent:             "false",
		config.TimeoutDuration:             250,
		config.BackpressureMaxConcurrent:   "3",
		config.BackpressureOrdered:         false,
		config.FairnessWeights:             "0:1, 1:3",
		config.RateLimitTokensPerSecond:    2.5,
		config.BatchMaxDelay:               time.Second,
		config.EffectPoolHandlerNumWorkers: 2,
	})

	p, err := config.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, p.Retry.MaxAttempts)
	assert.True(t, p.Retry.RetriableCodes.Contains(result.CodeTimeout))
	assert.False(t, p.Retry.RetriableCodes.Contains(result.CodeRateLimit))
	assert.Equal(t, 10*time.Millisecond, p.Retry.BackoffBase)
	assert.False(t, p.Retry.Idempotent)
	assert.Equal(t, &resilience.TimeoutPolicy{Timeout: 250 * time.Millisecond}, p.Timeout)
	assert.Equal(t, 3, p.Backpressure.MaxConcurrent)
	assert.False(t, p.Backpressure.Ordered)
	assert.Equal(t, map[int]int{0: 1, 1: 3}, p.Fairness.Weights)
	assert.InDelta(t, 2.5, p.RateLimit.TokensPerSecond, 1e-9)
	assert.Equal(t, time.Second, p.Batch.MaxDelay)
	assert.Equal(t, 2, p.Pool.NumWorkers)
}

func TestLoad_InheritsFromUpperScope(t *testing.T) {
	upper := withBindings(t, map[string]any{config.BatchMaxUnits: 7})
	lower, end := binding.WithEffectHandler(upper, effectmodel.NewEffectScopeConfig(1, 1), map[string]any{
		config.BatchMaxUnits:    9,
		config.RetryMaxAttempts: 1,
	})
	defer end()

	p, err := config.Load(lower)
	require.NoError(t, err)
	assert.Equal(t, 9, p.Batch.MaxUnits)
	assert.Equal(t, 1, p.Retry.MaxAttempts)

	p, err = config.Load(upper)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Batch.MaxUnits)
}

func TestLoad_ReportsEveryFailure(t *testing.T) {
	ctx := withBindings(t, map[string]any{
		config.RetryMaxAttempts: "many",
		config.BatchMaxDelay:    true,
		config.FairnessWeights:  "0-1",
	})

	_, err := config.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.RetryMaxAttempts)
	assert.Contains(t, err.Error(), config.BatchMaxDelay)
	assert.Contains(t, err.Error(), config.FairnessWeights)
}

func TestLoad_ValidatesPolicies(t *testing.T) {
	ctx := withBindings(t, map[string]any{
		config.BackpressureMaxConcurrent: 0,
		config.RateLimitBurstTokens:      0,
	})

	_, err := config.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max concurrent")
	assert.Contains(t, err.Error(), "burst")
}

func TestLoad_WithoutBindingHandler(t *testing.T) {
	_, err := config.Load(context.Background())
	assert.ErrorIs(t, err, effectmodel.ErrNoEffectHandler)
}
