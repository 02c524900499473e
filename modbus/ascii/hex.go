// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package ascii

import (
	"fmt"

	"github.com/ffutop/modbus-link/modbus"
)

const hexDigits = "0123456789ABCDEF"

// HexToBinary decodes pairs of hex characters in place, high nibble first, and
// returns the number of bytes produced. Characters outside 0-9 and A-F decode
// as zero; a trailing odd character is ignored.
func HexToBinary(buf []byte) int {
	n := 0
	for i := 0; i+1 < len(buf); i += 2 {
		buf[n] = nibble(buf[i])<<4 | nibble(buf[i+1])
		n++
	}
	return n
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0x0A
	default:
		return 0
	}
}

// BinaryToHex expands buf[:n] in place into 2n uppercase hex characters. The
// length of buf is the limit; exceeding it returns modbus.ErrFrameTooLarge.
func BinaryToHex(buf []byte, n int) (int, error) {
	if 2*n > len(buf) {
		return 0, fmt.Errorf("%w: %d hex characters, limit %d", modbus.ErrFrameTooLarge, 2*n, len(buf))
	}
	// Walk backwards so no source byte is overwritten before it is read.
	for i := n - 1; i >= 0; i-- {
		b := buf[i]
		buf[2*i] = hexDigits[b>>4]
		buf[2*i+1] = hexDigits[b&0x0F]
	}
	return 2 * n, nil
}
