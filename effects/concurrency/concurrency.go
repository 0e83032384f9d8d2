package concurrency

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/effectpipe/effects/log"
)

// ErrSupervisorClosed is the cancel cause of a supervisor's context after Close.
var ErrSupervisorClosed = errors.New("supervisor closed")

// Supervisor owns the goroutines of one combinator invocation.
//
// Every child runs under the supervisor's context, which is cancelled when
// the parent is cancelled or when Cancel/Close is called. Panics in children
// are recovered and logged through the log effect of the parent context.
type Supervisor struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
}

func NewSupervisor(parent context.Context) *Supervisor {
	ctx, cancel := context.WithCancelCause(parent)
	return &Supervisor{
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is the context children run under.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Go starts fn as a supervised child.
func (s *Supervisor) Go(fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Effect(s.parent, log.LogError, "panic in supervised routine", map[string]interface{}{
					"error": r,
				})
			}
		}()
		fn(s.ctx)
	}()
}

// Cancel signals every child to stop without waiting for them.
func (s *Supervisor) Cancel() {
	s.cancel(ErrSupervisorClosed)
}

// Wait blocks until every child has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Close cancels the children and waits for them.
func (s *Supervisor) Close() {
	s.Cancel()
	s.Wait()
}
