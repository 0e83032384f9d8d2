// Package binding provides scoped key/value lookups as an effect. Scopes
// nest: a key missing from an inner scope is looked up in the enclosing one.
package binding

import (
	"context"
	"errors"
	"fmt"

	"github.com/on-the-ground/effectpipe/effects"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
	"github.com/on-the-ground/effectpipe/shared/helper"
)

// ErrKeyNotFound is returned when no scope in the chain binds a key.
var ErrKeyNotFound = errors.New("key not found")

// Payload is the key being looked up.
type Payload string

func (p Payload) PartitionKey() string {
	return string(p)
}

// WithEffectHandler registers a binding scope over bindingMap.
// The map is copied; later changes to it are not observed.
func WithEffectHandler(
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	bindingMap map[string]any,
) (context.Context, func() context.Context) {
	h := bindingHandler{bindingMap: make(map[string]any, len(bindingMap))}
	for k, v := range bindingMap {
		h.bindingMap[k] = v
	}
	return effects.WithResumablePartitionableEffectHandler[Payload, any](
		ctx,
		config,
		effectmodel.EffectBinding,
		h.handle,
	)
}

// Effect looks key up in the innermost binding scope of ctx.
func Effect(ctx context.Context, key string) (any, error) {
	select {
	case res := <-effects.PerformResumableEffect[Payload, any](ctx, effectmodel.EffectBinding, Payload(key)):
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get fetches key and asserts it to T.
func Get[T any](ctx context.Context, key string) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return Effect(ctx, key)
	})
}

// MustGet is the panic-on-failure variant of Get.
func MustGet[T any](ctx context.Context, key string) T {
	return helper.MustGetTypedValue[T](func() (any, error) {
		return Effect(ctx, key)
	})
}

// Lookup reports whether key is bound anywhere in the scope chain.
// Failures other than a missing key are returned as is.
func Lookup(ctx context.Context, key string) (any, bool, error) {
	v, err := Effect(ctx, key)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, ErrKeyNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

type bindingHandler struct {
	bindingMap map[string]any
}

// handle answers from the local map, then from the scope this one was
// registered in. upperCtx is that enclosing context.
func (bh bindingHandler) handle(upperCtx context.Context, payload Payload) (any, error) {
	key := string(payload)
	if v, ok := bh.bindingMap[key]; ok {
		return v, nil
	}
	if !effects.HasEffectHandler(upperCtx, effectmodel.EffectBinding) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return Effect(upperCtx, key)
}
