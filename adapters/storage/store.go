// Package storage holds write-once stores for pipeline outputs. Every store
// offers the same atomic "insert unless present" primitive, which makes
// retried writes safe.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
)

// CodeStorage classifies store failures that are not cancellations.
const CodeStorage result.Code = "STORAGE"

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("storage: store closed")

type AtomicStore interface {
	// WriteIfAbsent stores payload under key unless key is already present.
	// It reports whether this call inserted.
	WriteIfAbsent(ctx context.Context, key string, payload []byte) (bool, error)
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// ContentKey derives a stable key from texts. Only the texts contribute, so
// re-running a pipeline over the same input addresses the same records.
func ContentKey(texts ...string) string {
	d := xxhash.New()
	for _, t := range texts {
		_, _ = d.WriteString(t)
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// IdempotentWrite lifts store.WriteIfAbsent into plans. A plan yields true
// when it inserted and false when the key was already there, so running it
// again after a partial failure is harmless.
func IdempotentWrite(store AtomicStore) func(key string, payload []byte) plan.Plan[bool] {
	return func(key string, payload []byte) plan.Plan[bool] {
		return func(ctx context.Context) result.Result[bool] {
			inserted, err := store.WriteIfAbsent(ctx, key, payload)
			if err != nil {
				return result.Err[bool](classify(err, key))
			}
			return result.Ok(inserted)
		}
	}
}

func classify(err error, key string) *result.ErrInfo {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return result.FromError(err)
	}
	return result.NewErrInfo(CodeStorage, "write failed",
		result.WithStage("storage"),
		result.WithCause(err),
		result.WithField("key", key),
	)
}
