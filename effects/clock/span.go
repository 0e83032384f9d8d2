package clock

import (
	"time"

	"github.com/rickb777/date/v2/timespan"
)

type TimeSpan = timespan.TimeSpan

// Span is the interval [from, to].
func Span(from, to time.Time) TimeSpan {
	return timespan.BetweenTimes(from, to)
}

// TimeBounded values know the interval they were produced in.
type TimeBounded interface {
	TimeSpan() TimeSpan
}
