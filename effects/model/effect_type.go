package effectmodel

import "errors"

// EffectEnum is the context key under which an effect handler is registered.
type EffectEnum string

const (
	EffectLog     EffectEnum = "effectpipe_effect_enum_log"
	EffectBinding EffectEnum = "effectpipe_effect_enum_binding"
	EffectPool    EffectEnum = "effectpipe_effect_enum_pool"
)

// ErrNoEffectHandler is returned when an effect is performed in a context
// that carries no handler for its enum.
var ErrNoEffectHandler = errors.New("no effect handler registered")

// ErrHandlerClosed is returned when an effect is performed after its handler
// scope has been closed.
var ErrHandlerClosed = errors.New("effect handler closed")

type EffectScopeConfig struct {
	BufferSize int // default: 1
	NumWorkers int // default: 1
}

func NewEffectScopeConfig(bufferSize int, numWorkers int) EffectScopeConfig {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return EffectScopeConfig{
		BufferSize: bufferSize,
		NumWorkers: numWorkers,
	}
}

// Partitionable payloads are routed to a worker by hashing PartitionKey.
type Partitionable interface {
	PartitionKey() string
}
