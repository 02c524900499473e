// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lrc implements the longitudinal redundancy check of Modbus ASCII.
package lrc

// LRC is a running byte sum.
type LRC struct {
	sum byte
}

func (lrc *LRC) Reset() *LRC {
	lrc.sum = 0
	return lrc
}

func (lrc *LRC) PushBytes(bs []byte) *LRC {
	for _, b := range bs {
		lrc.sum += b
	}
	return lrc
}

// Value returns the two's complement of the sum.
func (lrc *LRC) Value() byte {
	return -lrc.sum
}

// Append stores the LRC of buf[:n] at buf[n] and returns the new length, or 0
// if buf has no room.
func Append(buf []byte, n int) int {
	if n+1 > len(buf) {
		return 0
	}
	var l LRC
	buf[n] = l.Reset().PushBytes(buf[:n]).Value()
	return n + 1
}

// Verify reports whether the last byte of frame is the LRC of the bytes before it.
func Verify(frame []byte) bool {
	n := len(frame)
	if n < 1 {
		return false
	}
	var l LRC
	return l.Reset().PushBytes(frame[:n-1]).Value() == frame[n-1]
}
