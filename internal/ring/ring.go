// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ring provides the byte ring shared between the goroutine that reads
// a transport and the goroutine that parses frames.
//
// Exactly one producer calls Put. Exactly one consumer calls everything else.
// The producer only stores end, the consumer only stores begin; each side
// loads the other's cursor into a local before doing arithmetic with it.
package ring

import (
	"go.uber.org/atomic"
)

// Ring is a fixed capacity circular byte buffer. One slot always stays free
// so that begin == end means empty; a ring of capacity C holds C-1 bytes.
type Ring struct {
	buf []byte

	begin atomic.Uint32 // consumer owned
	end   atomic.Uint32 // producer owned

	lastPut  atomic.Uint32
	overruns atomic.Uint64
}

// New allocates a ring. Capacity must be at least 2.
func New(capacity int) *Ring {
	if capacity < 2 {
		panic("ring: capacity must be at least 2")
	}
	return &Ring{buf: make([]byte, capacity)}
}

func (r *Ring) Cap() int {
	return len(r.buf)
}

// Put stores b and stamps the ring with now. When the ring is full the byte is
// retracted: older unread data wins over the newest byte. Put never blocks.
func (r *Ring) Put(b byte, now uint32) bool {
	end := r.end.Load()
	r.buf[end] = b
	r.lastPut.Store(now)

	next := r.Next(end)
	if next == r.begin.Load() {
		r.overruns.Inc()
		return false
	}
	r.end.Store(next)
	return true
}

// LastPut returns the timestamp passed to the most recent Put.
func (r *Ring) LastPut() uint32 {
	return r.lastPut.Load()
}

// Touch sets the last put timestamp. Only call it before the producer starts.
func (r *Ring) Touch(now uint32) {
	r.lastPut.Store(now)
}

// Overruns counts bytes retracted because the ring was full.
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}

// Snapshot returns the consumer cursor, a stable copy of the producer cursor
// and the number of unread bytes between them.
func (r *Ring) Snapshot() (begin, end uint32, n int) {
	begin = r.begin.Load()
	end = r.end.Load()
	return begin, end, r.span(begin, end)
}

func (r *Ring) span(begin, end uint32) int {
	if end >= begin {
		return int(end - begin)
	}
	return len(r.buf) - int(begin-end)
}

// Len is the number of unread bytes.
func (r *Ring) Len() int {
	_, _, n := r.Snapshot()
	return n
}

// Next returns the position following pos.
func (r *Ring) Next(pos uint32) uint32 {
	pos++
	if int(pos) >= len(r.buf) {
		pos = 0
	}
	return pos
}

// At returns the byte at pos. The consumer must only read positions inside
// the span of its latest snapshot.
func (r *Ring) At(pos uint32) byte {
	return r.buf[pos]
}

// Copy copies the bytes in [from, to) into dst, following the wrap, and
// returns how many were copied. It stops early when dst is full.
func (r *Ring) Copy(dst []byte, from, to uint32) int {
	if from <= to {
		return copy(dst, r.buf[from:to])
	}
	n := copy(dst, r.buf[from:])
	n += copy(dst[n:], r.buf[:to])
	return n
}

// Release marks everything before pos as consumed.
func (r *Ring) Release(pos uint32) {
	r.begin.Store(pos)
}

// Flush discards all bytes written up to now. Bytes the producer adds
// concurrently are kept.
func (r *Ring) Flush() {
	r.begin.Store(r.end.Load())
}

// Read drains up to len(p) unread bytes into p.
func (r *Ring) Read(p []byte) int {
	begin, end, n := r.Snapshot()
	if n == 0 {
		return 0
	}
	if n > len(p) {
		n = len(p)
		end = uint32((int(begin) + n) % len(r.buf))
	}
	r.Copy(p[:n], begin, end)
	r.Release(end)
	return n
}
