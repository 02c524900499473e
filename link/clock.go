// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"time"
)

// Clock is a monotonic millisecond counter. It is read from both the ingest
// goroutine and the polling goroutine, so implementations must be safe for
// concurrent use. The counter may wrap; all comparisons use unsigned
// subtraction.
type Clock interface {
	Millis() uint32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) Millis() uint32 { return f() }

// SystemClock counts milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// millis converts a duration to whole milliseconds, rounding a positive
// sub-millisecond value up to 1.
func millis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if ms == 0 {
		return 1
	}
	return uint32(ms)
}
