package result

import (
	"slices"
	"strings"
)

// Code classifies an ErrInfo. Retry decisions are made on codes only.
type Code string

const (
	CodeTransient  Code = "TRANSIENT"
	CodeRateLimit  Code = "RATE_LIMIT"
	CodeTimeout    Code = "TIMEOUT"
	CodeMaxRetries Code = "MAX_RETRIES"
	CodeUnexpected Code = "UNEXPECTED"
	CodeCancelled  Code = "CANCELLED"
	CodeBreak      Code = "BREAK"
)

// CodeSet is a set of codes, e.g. the codes a retry policy treats as retriable.
// The zero value is an empty set.
type CodeSet struct {
	codes map[Code]struct{}
}

func NewCodeSet(codes ...Code) CodeSet {
	m := make(map[Code]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return CodeSet{codes: m}
}

func (s CodeSet) Contains(c Code) bool {
	_, ok := s.codes[c]
	return ok
}

func (s CodeSet) Len() int { return len(s.codes) }

// Codes returns the members sorted.
func (s CodeSet) Codes() []Code {
	out := make([]Code, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func (s CodeSet) String() string {
	codes := s.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
