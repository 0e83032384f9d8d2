// Package config resolves pipeline policies from the binding effect.
// Every key is optional; missing keys keep their defaults.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/on-the-ground/effectpipe/effects/backpressure"
	"github.com/on-the-ground/effectpipe/effects/batch"
	"github.com/on-the-ground/effectpipe/effects/binding"
	"github.com/on-the-ground/effectpipe/effects/fairness"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
	"github.com/on-the-ground/effectpipe/effects/ratelimit"
	"github.com/on-the-ground/effectpipe/effects/resilience"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/shared/helper"
)

type Policies struct {
	Retry        resilience.RetryPolicy
	Timeout      *resilience.TimeoutPolicy
	Backpressure backpressure.Policy
	Fairness     fairness.Policy
	RateLimit    ratelimit.Policy
	Batch        batch.Policy

	Pool          effectmodel.EffectScopeConfig
	LogBufferSize int
}

func Defaults() Policies {
	return Policies{
		Retry:        resilience.DefaultRetryPolicy(),
		Backpressure: backpressure.Policy{MaxConcurrent: 8, Ordered: true},
		Fairness:     fairness.Policy{MaxBufferPerStream: 16},
		RateLimit:    ratelimit.Policy{TokensPerSecond: 100, BurstTokens: 10},
		Batch:        batch.Policy{MaxUnits: 32, MaxDelay: 50 * time.Millisecond},

		Pool:          effectmodel.NewEffectScopeConfig(16, 4),
		LogBufferSize: 64,
	}
}

// Load starts from Defaults and overrides whatever ctx binds. All
// conversion and validation failures are reported together.
func Load(ctx context.Context) (Policies, error) {
	p := Defaults()
	l := loader{ctx: ctx}

	l.int(RetryMaxAttempts, &p.Retry.MaxAttempts)
	l.codes(RetryRetriableCodes, &p.Retry.RetriableCodes)
	l.duration(RetryBackoffBase, &p.Retry.BackoffBase)
	l.duration(RetryMaxBackoff, &p.Retry.MaxBackoff)
	l.float(RetryJitterFactor, &p.Retry.JitterFactor)
	l.bool(RetryIdempotent, &p.Retry.Idempotent)

	var timeout time.Duration
	l.duration(TimeoutDuration, &timeout)
	if timeout > 0 {
		p.Timeout = &resilience.TimeoutPolicy{Timeout: timeout}
	}

	l.int(BackpressureMaxConcurrent, &p.Backpressure.MaxConcurrent)
	l.bool(BackpressureOrdered, &p.Backpressure.Ordered)

	l.weights(FairnessWeights, &p.Fairness.Weights)
	l.int(FairnessMaxBufferPerStream, &p.Fairness.MaxBufferPerStream)

	l.float(RateLimitTokensPerSecond, &p.RateLimit.TokensPerSecond)
	l.int(RateLimitBurstTokens, &p.RateLimit.BurstTokens)

	l.int(BatchMaxUnits, &p.Batch.MaxUnits)
	l.duration(BatchMaxDelay, &p.Batch.MaxDelay)

	l.int(EffectPoolHandlerBufferSize, &p.Pool.BufferSize)
	l.int(EffectPoolHandlerNumWorkers, &p.Pool.NumWorkers)
	l.int(EffectLogHandlerBufferSize, &p.LogBufferSize)

	if l.err != nil {
		return Policies{}, l.err
	}
	if err := p.Validate(); err != nil {
		return Policies{}, err
	}
	return p, nil
}

func (p Policies) Validate() error {
	err := multierr.Combine(
		p.Retry.Validate(),
		p.Backpressure.Validate(),
		p.Fairness.Validate(),
		p.RateLimit.Validate(),
		p.Batch.Validate(),
	)
	if p.Timeout != nil {
		err = multierr.Append(err, p.Timeout.Validate())
	}
	return err
}

type loader struct {
	ctx context.Context
	err error
}

func (l *loader) raw(key string) (any, bool) {
	v, found, err := binding.Lookup(l.ctx, key)
	if err != nil {
		l.err = multierr.Append(l.err, fmt.Errorf("%s: %w", key, err))
		return nil, false
	}
	return v, found
}

func load[T any](l *loader, key string, dst *T, conv func(any) (T, error)) {
	raw, ok := l.raw(key)
	if !ok {
		return
	}
	v, err := conv(raw)
	if err != nil {
		l.err = multierr.Append(l.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = v
}

func (l *loader) int(key string, dst *int) { load(l, key, dst, helper.AsInt) }
func (l *loader) float(key string, dst *float64) { load(l, key, dst, helper.AsFloat) }
func (l *loader) bool(key string, dst *bool) { load(l, key, dst, helper.AsBool) }
func (l *loader) duration(key string, dst *time.Duration) { load(l, key, dst, helper.AsDuration) }
func (l *loader) codes(key string, dst *result.CodeSet) { load(l, key, dst, asCodeSet) }
func (l *loader) weights(key string, dst *map[int]int) { load(l, key, dst, asWeights) }

// asCodeSet accepts a CodeSet, a []string or a comma separated string.
func asCodeSet(raw any) (result.CodeSet, error) {
	var names []string
	switch v := raw.(type) {
	case result.CodeSet:
		return v, nil
	case []string:
		names = v
	case string:
		names = strings.Split(v, ",")
	default:
		return result.CodeSet{}, fmt.Errorf("%w: %T, want codes", helper.ErrUnexpectedType, raw)
	}
	codes := make([]result.Code, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			codes = append(codes, result.Code(strings.ToUpper(n)))
		}
	}
	return result.NewCodeSet(codes...), nil
}

// asWeights accepts a map[int]int or "index:weight" pairs separated by commas.
func asWeights(raw any) (map[int]int, error) {
	switch v := raw.(type) {
	case map[int]int:
		return v, nil
	case string:
		out := make(map[int]int)
		for _, pair := range strings.Split(v, ",") {
			if pair = strings.TrimSpace(pair); pair == "" {
				continue
			}
			idx, w, ok := strings.Cut(pair, ":")
			if !ok {
				return nil, fmt.Errorf("%w: weight %q, want index:weight", helper.ErrUnexpectedType, pair)
			}
			i, err := strconv.Atoi(strings.TrimSpace(idx))
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(strings.TrimSpace(w))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T, want weights", helper.ErrUnexpectedType, raw)
	}
}
