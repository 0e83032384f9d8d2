// Package clock carries the time and randomness sources every time-dependent
// combinator reads. Nothing in the engine calls time.Now or time.Sleep
// directly, so tests can drive it with a fake clock.
package clock

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// ClockSleeper waits on its clock's timers.
type ClockSleeper struct {
	Clock clockwork.Clock
}

func (s ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.Clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// AdvancingSleeper moves a fake clock forward instead of waiting, so code
// under test observes the full sleep instantly.
type AdvancingSleeper struct {
	Clock *clockwork.FakeClock
}

func (s AdvancingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		s.Clock.Advance(d)
	}
	return nil
}

// Rand yields floats in [0, 1).
type Rand interface {
	Float64() float64
}

// LockedRand is a seeded Rand safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedRand(seed uint64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// ConstRand always yields the same value. 0.5 gives zero jitter.
type ConstRand float64

func (c ConstRand) Float64() float64 { return float64(c) }

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Env bundles the injected time and randomness sources.
type Env struct {
	Clock   clockwork.Clock
	Sleeper Sleeper
	Rand    Rand
}

// RealEnv uses the wall clock and the global random source.
func RealEnv() Env {
	clk := clockwork.NewRealClock()
	return Env{
		Clock:   clk,
		Sleeper: ClockSleeper{Clock: clk},
		Rand:    globalRand{},
	}
}

// NewFakeEnv returns an Env on a fake clock starting at start. Sleeping
// advances the clock; Rand is seeded for reproducibility.
func NewFakeEnv(start time.Time, seed uint64) (Env, *clockwork.FakeClock) {
	fake := clockwork.NewFakeClockAt(start)
	return Env{
		Clock:   fake,
		Sleeper: AdvancingSleeper{Clock: fake},
		Rand:    NewLockedRand(seed),
	}, fake
}

// OrDefault fills unset fields from RealEnv. A custom Clock without a
// Sleeper gets a ClockSleeper on that clock.
func (e Env) OrDefault() Env {
	def := RealEnv()
	if e.Clock == nil {
		e.Clock = def.Clock
	}
	if e.Sleeper == nil {
		e.Sleeper = ClockSleeper{Clock: e.Clock}
	}
	if e.Rand == nil {
		e.Rand = def.Rand
	}
	return e
}

// WithTimeout derives a context that is cancelled with
// context.DeadlineExceeded once d has elapsed on clk.
func WithTimeout(parent context.Context, clk clockwork.Clock, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	timer := clk.NewTimer(d)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-timer.Chan():
			cancel(context.DeadlineExceeded)
		case <-stop:
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		once.Do(func() {
			close(stop)
			timer.Stop()
			cancel(context.Canceled)
		})
	}
}
