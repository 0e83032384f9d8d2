// Package rag holds the document types and deterministic stages of a
// retrieval-augmented generation ingest pipeline.
package rag

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidChunking = errors.New("rag: invalid chunking")

type Doc struct {
	ID    string
	Title string
	Text  string
}

// Clean lowercases the text and collapses whitespace runs to single spaces.
func Clean(doc Doc) Doc {
	doc.Text = strings.Join(strings.Fields(strings.ToLower(doc.Text)), " ")
	return doc
}

type TailPolicy int

const (
	// EmitShort keeps a final chunk shorter than Size.
	EmitShort TailPolicy = iota
	// Drop discards a final chunk shorter than Size.
	Drop
	// Pad right-pads a final short chunk with NUL up to Size.
	Pad
)

type Chunking struct {
	Size    int
	Overlap int
	Tail    TailPolicy
}

func (c Chunking) Validate() error {
	switch {
	case c.Size < 1:
		return fmt.Errorf("%w: size %d < 1", ErrInvalidChunking, c.Size)
	case c.Overlap < 0 || c.Overlap >= c.Size:
		return fmt.Errorf("%w: overlap %d outside [0,%d)", ErrInvalidChunking, c.Overlap, c.Size)
	case c.Tail < EmitShort || c.Tail > Pad:
		return fmt.Errorf("%w: tail policy %d", ErrInvalidChunking, c.Tail)
	}
	return nil
}

// Chunk is a slice of a document's text. Start and End are rune offsets;
// under Pad, End may run past the text.
type Chunk struct {
	DocID string
	Text  string
	Start int
	End   int
}

// ChunkDoc splits doc.Text into windows of c.Size runes advancing by
// c.Size-c.Overlap.
func ChunkDoc(doc Doc, c Chunking) ([]Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	text := []rune(doc.Text)
	n := len(text)
	step := c.Size - c.Overlap

	var chunks []Chunk
	for i := 0; i < n; i += step {
		j := i + c.Size
		if j <= n {
			chunks = append(chunks, Chunk{DocID: doc.ID, Text: string(text[i:j]), Start: i, End: j})
			continue
		}
		switch c.Tail {
		case Drop:
			return chunks, nil
		case Pad:
			seg := string(text[i:n]) + strings.Repeat("\x00", j-n)
			chunks = append(chunks, Chunk{DocID: doc.ID, Text: seg, Start: i, End: j})
		default:
			chunks = append(chunks, Chunk{DocID: doc.ID, Text: string(text[i:n]), Start: i, End: n})
		}
	}
	return chunks, nil
}
