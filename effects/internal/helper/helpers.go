package helper

import (
	"context"
	"fmt"

	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

// GetHandler returns the handler registered for enum in ctx.
// Returns an error wrapping ErrNoEffectHandler if none is found.
func GetHandler(ctx context.Context, enum effectmodel.EffectEnum) (any, error) {
	raw := ctx.Value(enum)
	if raw == nil {
		return nil, fmt.Errorf("%w: %v", effectmodel.ErrNoEffectHandler, enum)
	}
	return raw, nil
}
