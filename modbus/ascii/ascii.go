// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ascii implements Modbus ASCII framing:
//
//	Start           : ':'
//	Address         : 2 chars
//	Function        : 2 chars
//	Data            : 0 up to 2x252 chars
//	LRC             : 2 chars
//	End             : "\r\n"
package ascii

import (
	"fmt"

	"github.com/ffutop/modbus-link/modbus"
	"github.com/ffutop/modbus-link/modbus/lrc"
)

const (
	Start = ':'
	CR    = '\r'
	LF    = '\n'

	// PayloadOffset is where the binary payload is placed before sealing.
	PayloadOffset = 1
)

// Seal turns the binary payload buf[1:1+n] into a complete ASCII frame in
// place: LRC appended, payload and LRC hex encoded, start and end delimiters
// added. It returns the frame length.
func Seal(buf []byte, n int) (int, error) {
	// ':' + 2 chars per byte (payload and LRC) + "\r\n"
	need := 1 + 2*(n+1) + 2
	if need > len(buf) {
		return 0, fmt.Errorf("%w: ascii frame of %d bytes, limit %d", modbus.ErrFrameTooLarge, need, len(buf))
	}
	buf[0] = Start
	body := buf[PayloadOffset:]
	m := lrc.Append(body, n)
	h, err := BinaryToHex(body[:len(body)-2], m)
	if err != nil {
		return 0, err
	}
	body[h] = CR
	body[h+1] = LF
	return PayloadOffset + h + 2, nil
}

// ReadResponseLength is the character count of a read holding registers
// response carrying count registers.
func ReadResponseLength(count uint16) int {
	return 11 + 4*int(count)
}

// WriteResponseLength is the character count of a write single or write
// multiple registers response.
func WriteResponseLength() int {
	return 17
}
