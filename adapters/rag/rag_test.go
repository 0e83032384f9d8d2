package rag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/effectpipe/adapters/rag"
	"github.com/on-the-ground/effectpipe/effects/result"
)

func TestClean(t *testing.T) {
	doc := rag.Clean(rag.Doc{ID: "d", Text: "  Hello\t\nWORLD   again "})
	assert.Equal(t, "hello world again", doc.Text)
}

func texts(chunks []rag.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestChunkDoc_TailPolicies(t *testing.T) {
	doc := rag.Doc{ID: "d", Text: "abcdefg"}

	chunks, err := rag.ChunkDoc(doc, rag.Chunking{Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def", "g"}, texts(chunks))
	assert.Equal(t, 6, chunks[2].Start)
	assert.Equal(t, 7, chunks[2].End)

	chunks, err = rag.ChunkDoc(doc, rag.Chunking{Size: 3, Tail: rag.Drop})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, texts(chunks))

	chunks, err = rag.ChunkDoc(doc, rag.Chunking{Size: 3, Tail: rag.Pad})
	require.NoError(t, err)
	assert.Equal(t, "g\x00\x00", chunks[2].Text)
	assert.Equal(t, 9, chunks[2].End)
}

func TestChunkDoc_Overlap(t *testing.T) {
	chunks, err := rag.ChunkDoc(rag.Doc{ID: "d", Text: "abcdef"}, rag.Chunking{Size: 4, Overlap: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "cdef", "ef"}, texts(chunks))
}

func TestChunkDoc_CoversTextWithoutOverlap(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 20)
	chunks, err := rag.ChunkDoc(rag.Doc{ID: "d", Text: text}, rag.Chunking{Size: 7})
	require.NoError(t, err)
	assert.Equal(t, text, strings.Join(texts(chunks), ""))
}

func TestChunkDoc_Invalid(t *testing.T) {
	_, err := rag.ChunkDoc(rag.Doc{}, rag.Chunking{Size: 2, Overlap: 2})
	assert.ErrorIs(t, err, rag.ErrInvalidChunking)
	_, err = rag.ChunkDoc(rag.Doc{}, rag.Chunking{Size: 0})
	assert.ErrorIs(t, err, rag.ErrInvalidChunking)
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := rag.NewEmbedder("m1", 16)
	c := rag.Chunk{DocID: "d", Text: "some text"}

	a := e.Embed(c)
	b := rag.NewEmbedder("m1", 16).Embed(c)
	require.True(t, a.IsOk())
	assert.Equal(t, a.Value().Embedding, b.Value().Embedding)
	assert.Equal(t, 16, a.Value().Embedding.Dim())
	for _, v := range a.Value().Embedding.Vector {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	other := rag.NewEmbedder("m2", 16).Embed(c)
	assert.NotEqual(t, a.Value().Embedding.Vector, other.Value().Embedding.Vector)

	payload, err := a.Value().MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, payload, 16*8)
}

func TestEmbedding_Check(t *testing.T) {
	e := rag.Embedding{Vector: []float64{0.1, 0.2}, Model: "m1"}
	assert.Nil(t, e.Check("m1", 2))
	assert.Equal(t, rag.CodeEmbedModelMismatch, e.Check("m2", 2).Code())
	assert.Equal(t, rag.CodeEmbedDimMismatch, e.Check("m1", 3).Code())
}

func TestFlaky(t *testing.T) {
	embed := rag.Flaky(rag.NewEmbedder("m", 4).Embed, 2)
	c := rag.Chunk{Text: "x"}

	assert.Equal(t, result.CodeTransient, embed(c).Err().Code())
	assert.Equal(t, result.CodeTransient, embed(c).Err().Code())
	assert.True(t, embed(c).IsOk())

	// failures are counted per text
	assert.True(t, embed(rag.Chunk{Text: "y"}).IsErr())
}
