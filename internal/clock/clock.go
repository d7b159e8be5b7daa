// Package clock implements the §6 clock collaborator contract: a
// monotonic tick counter, the ticks-per-second constant, and wall-clock
// seconds, grounded on the teacher's Accnt_t.Now (nanoseconds since the
// Unix epoch, read with time.Now).
package clock

import (
	"sync/atomic"
	"time"
)

// TicksPerSecond is the simulated timer-interrupt frequency.
const TicksPerSecond = 100

// Clock is a monotonic tick source. The zero value counts from tick 0;
// Advance is normally called once per simulated timer interrupt.
type Clock struct {
	ticks int64
}

// Now returns the current wall-clock time, matching the teacher's
// Accnt_t.Now contract.
func (c *Clock) Now() time.Time { return time.Now() }

// Ticks returns the current monotonic tick count.
func (c *Clock) Ticks() int64 { return atomic.LoadInt64(&c.ticks) }

// Advance moves the tick counter forward by one and returns the new
// value; called from the timer-tick handler (spec.md §2 data flow:
// "timer → scheduler").
func (c *Clock) Advance() int64 { return atomic.AddInt64(&c.ticks, 1) }

// Seconds converts a tick count to seconds.
func Seconds(ticks int64) float64 { return float64(ticks) / float64(TicksPerSecond) }

// FromSeconds converts a duration in seconds to a tick count, rounding
// up so "sleep at least this long" semantics hold.
func FromSeconds(secs float64) int64 {
	t := int64(secs * float64(TicksPerSecond))
	if float64(t) < secs*float64(TicksPerSecond) {
		t++
	}
	return t
}
