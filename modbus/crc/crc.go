// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the CRC16 check used by Modbus RTU frames.
package crc

const (
	initial    = 0xFFFF
	polynomial = 0xA001
)

// CRC is a running CRC16/MODBUS checksum.
type CRC struct {
	value uint16
}

// Reset restores the initial value and returns the receiver for chaining.
func (crc *CRC) Reset() *CRC {
	crc.value = initial
	return crc
}

// PushBytes feeds bytes LSB-first through the reflected polynomial.
func (crc *CRC) PushBytes(bs []byte) *CRC {
	v := crc.value
	for _, b := range bs {
		v ^= uint16(b)
		for i := 0; i < 8; i++ {
			if v&0x0001 != 0 {
				v = v>>1 ^ polynomial
			} else {
				v >>= 1
			}
		}
	}
	crc.value = v
	return crc
}

func (crc *CRC) Value() uint16 {
	return crc.value
}

// Append computes the checksum of buf[:n] and stores it low byte first at
// buf[n:n+2]. It returns the new length, or 0 if buf has no room.
func Append(buf []byte, n int) int {
	if n+2 > len(buf) {
		return 0
	}
	var c CRC
	sum := c.Reset().PushBytes(buf[:n]).Value()
	buf[n] = byte(sum)
	buf[n+1] = byte(sum >> 8)
	return n + 2
}

// Verify reports whether the last two bytes of frame hold the checksum of the
// bytes before them.
func Verify(frame []byte) bool {
	n := len(frame)
	if n < 2 {
		return false
	}
	var c CRC
	sum := c.Reset().PushBytes(frame[:n-2]).Value()
	return frame[n-2] == byte(sum) && frame[n-1] == byte(sum>>8)
}
