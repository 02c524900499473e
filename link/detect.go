// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"github.com/ffutop/modbus-link/internal/ring"
	"github.com/ffutop/modbus-link/modbus"
	"github.com/ffutop/modbus-link/modbus/ascii"
	"github.com/ffutop/modbus-link/modbus/crc"
	"github.com/ffutop/modbus-link/modbus/lrc"
	"github.com/ffutop/modbus-link/modbus/rtu"
)

// detector moves bytes from the ingest ring into the assembly buffer and
// decides when the buffer holds a complete, validated frame.
//
// Invariant: started is false whenever n is 0 and the first assembled byte
// is an accepted address (RTU) when started is true.
type detector struct {
	mode modbus.Mode
	ring *ring.Ring

	buf     []byte
	n       int
	started bool

	// accepts reports whether b may start a frame.
	accepts func(b byte) bool
	// expect returns the expected RTU frame length for the assembled head,
	// or 0 when unknown.
	expect func(head []byte) int

	counters *counters
}

func (d *detector) reset() {
	d.n = 0
	d.started = false
}

// detect looks for a complete frame. When idle is set the ring is left
// alone and the assembly buffer is judged as if the line timed out. On
// success it returns the frame without its checksum and the number of
// trailing assembled bytes that belong to the next frame.
func (d *detector) detect(idle bool) (frame []byte, rest int, ok bool) {
	if d.mode == modbus.ModeASCII {
		if idle {
			return nil, 0, false
		}
		frame, ok = d.detectASCII()
		return frame, 0, ok
	}
	return d.detectRTU(idle)
}

func (d *detector) detectRTU(idle bool) ([]byte, int, bool) {
	timeout := idle
	if !idle {
		begin, end, span := d.ring.Snapshot()
		if span == 0 {
			timeout = true
		}
		pos := begin
		if !d.started {
			for i := 0; i < span; i++ {
				b := d.ring.At(pos)
				pos = d.ring.Next(pos)
				if d.accepts(b) {
					d.buf[0] = b
					d.n = 1
					d.started = true
					break
				}
			}
			if !d.started {
				if span > 0 {
					d.counters.add(CntNoise, span)
				}
				d.ring.Release(end)
				d.n = 0
				return nil, 0, false
			}
		}
		d.n += d.ring.Copy(d.buf[d.n:], pos, end)
		d.ring.Release(end)
	}

	if !d.started {
		return nil, 0, false
	}

	expected := d.expect(d.buf[:d.n])
	full := d.n >= len(d.buf)
	if !timeout && !full && (expected == 0 || d.n < expected) {
		return nil, 0, false
	}

	if d.n < rtu.MinSize {
		d.counters.inc(CntNoise)
		d.reset()
		return nil, 0, false
	}
	if crc.Verify(d.buf[:d.n]) {
		d.started = false
		return d.buf[:d.n-2], 0, true
	}
	// A following frame may have been captured behind the expected one.
	if expected >= rtu.MinSize && expected < d.n && crc.Verify(d.buf[:expected]) {
		d.started = false
		return d.buf[:expected-2], d.n - expected, true
	}
	d.counters.inc(CntChecksum)
	d.reset()
	return nil, 0, false
}

func (d *detector) detectASCII() ([]byte, bool) {
	begin, end, span := d.ring.Snapshot()
	if span == 0 {
		return nil, false
	}

	pos, i := begin, 0
	if !d.started {
		for i < span {
			b := d.ring.At(pos)
			pos = d.ring.Next(pos)
			i++
			if b == ascii.Start {
				d.started = true
				d.n = 0
				break
			}
		}
		if !d.started {
			d.counters.add(CntNoise, span)
			d.ring.Release(end)
			d.n = 0
			return nil, false
		}
	}

	for ; i < span; i++ {
		b := d.ring.At(pos)
		if b == ascii.CR {
			break
		}
		if b == ascii.Start {
			// A new start character abandons the partial frame.
			d.counters.inc(CntNoise)
			d.n = 0
		} else {
			if d.n >= len(d.buf) {
				d.counters.inc(CntNoise)
				d.reset()
				d.ring.Release(end)
				return nil, false
			}
			d.buf[d.n] = b
			d.n++
		}
		pos = d.ring.Next(pos)
	}
	if i == span {
		// No CR yet.
		d.ring.Release(end)
		return nil, false
	}
	if i+1 == span {
		// CR is the last byte read: keep it until LF arrives.
		d.ring.Release(pos)
		return nil, false
	}

	pos = d.ring.Next(pos)
	if d.ring.At(pos) != ascii.LF {
		d.counters.inc(CntNoise)
		d.reset()
		d.ring.Release(end)
		return nil, false
	}
	d.ring.Release(d.ring.Next(pos))

	n := ascii.HexToBinary(d.buf[:d.n])
	d.started = false
	d.n = n
	if n < 3 || !d.accepts(d.buf[0]) {
		d.counters.inc(CntNoise)
		d.reset()
		return nil, false
	}
	if !lrc.Verify(d.buf[:n]) {
		d.counters.inc(CntChecksum)
		d.reset()
		return nil, false
	}
	return d.buf[:n-1], true
}

// replay keeps the last rest assembled bytes for the next detection,
// realigned on the first byte that may start a frame.
func (d *detector) replay(rest int) {
	if rest <= 0 || rest > d.n {
		d.reset()
		return
	}
	tail := d.buf[d.n-rest : d.n]
	skip := 0
	for skip < len(tail) && !d.accepts(tail[skip]) {
		skip++
	}
	if skip > 0 {
		d.counters.add(CntNoise, skip)
	}
	d.n = copy(d.buf, tail[skip:])
	d.started = d.n > 0
}
