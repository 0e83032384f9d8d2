package rag

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/pure"
)

const (
	CodeEmbedDimMismatch   result.Code = "EMBED_DIM_MISMATCH"
	CodeEmbedModelMismatch result.Code = "EMBED_MODEL_MISMATCH"
)

type Embedding struct {
	Vector []float64
	Model  string
}

func (e Embedding) Dim() int { return len(e.Vector) }

// Check rejects embeddings from the wrong model or of the wrong size.
func (e Embedding) Check(model string, dim int) *result.ErrInfo {
	switch {
	case e.Model != model:
		return result.NewErrInfo(CodeEmbedModelMismatch,
			fmt.Sprintf("embedding from model %q, want %q", e.Model, model),
			result.WithStage("embed"))
	case e.Dim() != dim:
		return result.NewErrInfo(CodeEmbedDimMismatch,
			fmt.Sprintf("embedding has %d dimensions, want %d", e.Dim(), dim),
			result.WithStage("embed"),
			result.WithField("dim", e.Dim()))
	}
	return nil
}

type EmbeddedChunk struct {
	Chunk
	Embedding Embedding
}

// MarshalBinary encodes the vector as little-endian float64s.
func (c EmbeddedChunk) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8*len(c.Embedding.Vector))
	for _, v := range c.Embedding.Vector {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf, nil
}

// Embedder derives vectors from text deterministically: component i is the
// xxhash of (model, i, text) scaled into [0,1]. Vectors are memoized per
// (model, text).
type Embedder struct {
	Model string
	Dim   int

	once   sync.Once
	vector func(model, text string) []float64
}

const embedMemoSize = 4096

func NewEmbedder(model string, dim int) *Embedder {
	return &Embedder{Model: model, Dim: dim}
}

func (e *Embedder) Embed(c Chunk) result.Result[EmbeddedChunk] {
	e.once.Do(func() {
		dim := e.Dim
		e.vector = pure.TableizeI2O1(func(model, text string) []float64 {
			return hashVector(model, text, dim)
		}, embedMemoSize)
	})
	emb := Embedding{Vector: e.vector(e.Model, c.Text), Model: e.Model}
	if info := emb.Check(e.Model, e.Dim); info != nil {
		return result.Err[EmbeddedChunk](info)
	}
	return result.Ok(EmbeddedChunk{Chunk: c, Embedding: emb})
}

func hashVector(model, text string, dim int) []float64 {
	v := make([]float64, dim)
	var idx [8]byte
	for i := range v {
		d := xxhash.New()
		_, _ = d.WriteString(model)
		binary.LittleEndian.PutUint64(idx[:], uint64(i))
		_, _ = d.Write(idx[:])
		_, _ = d.WriteString(text)
		v[i] = float64(d.Sum64()) / math.MaxUint64
	}
	return v
}

// Flaky fails each distinct chunk text with TRANSIENT on its first
// failFirst calls, then delegates to embed.
func Flaky(
	embed func(Chunk) result.Result[EmbeddedChunk],
	failFirst int,
) func(Chunk) result.Result[EmbeddedChunk] {
	var (
		mu    sync.Mutex
		calls = make(map[string]int)
	)
	return func(c Chunk) result.Result[EmbeddedChunk] {
		mu.Lock()
		calls[c.Text]++
		n := calls[c.Text]
		mu.Unlock()
		if n <= failFirst {
			return result.Err[EmbeddedChunk](result.NewErrInfo(result.CodeTransient, "embedder unavailable",
				result.WithStage("embed"),
				result.WithField("call", n)))
		}
		return embed(c)
	}
}
