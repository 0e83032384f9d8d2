package result

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrInfo is the structured error carried by Err results.
//
// ErrInfo values are immutable: constructors and With* methods copy their
// inputs, and accessors return copies.
type ErrInfo struct {
	code  Code
	msg   string
	stage string
	path  []int
	cause error
	ctx   map[string]any
}

// ErrOption configures an ErrInfo at construction time.
type ErrOption func(*ErrInfo)

func WithStage(stage string) ErrOption {
	return func(e *ErrInfo) { e.stage = stage }
}

func WithPath(path ...int) ErrOption {
	return func(e *ErrInfo) { e.path = slices.Clone(path) }
}

func WithCause(cause error) ErrOption {
	return func(e *ErrInfo) { e.cause = cause }
}

// WithField adds one context entry.
func WithField(key string, value any) ErrOption {
	return func(e *ErrInfo) {
		if e.ctx == nil {
			e.ctx = make(map[string]any)
		}
		e.ctx[key] = value
	}
}

// WithFields merges fields into the context.
func WithFields(fields map[string]any) ErrOption {
	return func(e *ErrInfo) {
		if len(fields) == 0 {
			return
		}
		if e.ctx == nil {
			e.ctx = make(map[string]any, len(fields))
		}
		maps.Copy(e.ctx, fields)
	}
}

func NewErrInfo(code Code, msg string, opts ...ErrOption) *ErrInfo {
	e := &ErrInfo{code: code, msg: msg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ErrInfo) Code() Code      { return e.code }
func (e *ErrInfo) Message() string { return e.msg }
func (e *ErrInfo) Stage() string   { return e.stage }
func (e *ErrInfo) Cause() error    { return e.cause }
func (e *ErrInfo) Path() []int     { return slices.Clone(e.path) }

// Context returns a copy of the context map.
func (e *ErrInfo) Context() map[string]any { return maps.Clone(e.ctx) }

// Field returns one context entry.
func (e *ErrInfo) Field(key string) (any, bool) {
	v, ok := e.ctx[key]
	return v, ok
}

// With returns a copy of e with opts applied.
func (e *ErrInfo) With(opts ...ErrOption) *ErrInfo {
	cp := &ErrInfo{
		code:  e.code,
		msg:   e.msg,
		stage: e.stage,
		path:  slices.Clone(e.path),
		cause: e.cause,
		ctx:   maps.Clone(e.ctx),
	}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

func (e *ErrInfo) Error() string {
	var b strings.Builder
	b.WriteString(string(e.code))
	if e.stage != "" {
		b.WriteString("[")
		b.WriteString(e.stage)
		b.WriteString("]")
	}
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	if len(e.path) > 0 {
		fmt.Fprintf(&b, " at %v", e.path)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ErrInfo) Unwrap() error { return e.cause }

// FromError classifies a Go error.
//
//   - *ErrInfo anywhere in the chain is returned as is.
//   - context.DeadlineExceeded becomes TIMEOUT.
//   - context.Canceled becomes CANCELLED.
//   - anything else becomes UNEXPECTED.
func FromError(err error) *ErrInfo {
	if err == nil {
		return NewErrInfo(CodeUnexpected, "nil error")
	}
	var info *ErrInfo
	if errors.As(err, &info) {
		return info
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrInfo(CodeTimeout, "deadline exceeded", WithCause(err))
	case errors.Is(err, context.Canceled):
		return NewErrInfo(CodeCancelled, "cancelled", WithCause(err))
	default:
		return NewErrInfo(CodeUnexpected, err.Error(), WithCause(err))
	}
}

// FromContext describes why ctx is done, preferring its cancel cause.
func FromContext(ctx context.Context) *ErrInfo {
	if cause := context.Cause(ctx); cause != nil {
		return FromError(cause)
	}
	return NewErrInfo(CodeCancelled, "context not done")
}

// FromPanic converts a recovered panic value into an UNEXPECTED ErrInfo.
func FromPanic(r any) *ErrInfo {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	return NewErrInfo(CodeUnexpected, "panic", WithCause(cause), WithField("panic", fmt.Sprint(r)))
}

// IsCode reports whether err carries an ErrInfo with the given code.
func IsCode(err error, code Code) bool {
	var info *ErrInfo
	return errors.As(err, &info) && info.code == code
}
