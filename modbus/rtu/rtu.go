// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu implements Modbus RTU framing:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 0 up to 252 bytes
//	CRC             : 2 bytes
package rtu

import (
	"fmt"

	"github.com/ffutop/modbus-link/modbus"
	"github.com/ffutop/modbus-link/modbus/crc"
)

// Seal appends the CRC to the payload buf[:n] and returns the frame length.
func Seal(buf []byte, n int) (int, error) {
	size := crc.Append(buf, n)
	if size == 0 {
		return 0, fmt.Errorf("%w: rtu frame of %d bytes, limit %d", modbus.ErrFrameTooLarge, n+2, len(buf))
	}
	return size, nil
}

// ReadResponseLength is the byte count of a read holding registers response
// carrying count registers.
func ReadResponseLength(count uint16) int {
	return 5 + 2*int(count)
}

// WriteResponseLength is the byte count of a write single or write multiple
// registers response.
func WriteResponseLength() int {
	return 8
}

// CalculateRequestLength returns the expected total length of a request frame
// based on its header. A write multiple request needs HeaderSize bytes before
// its length is known.
func CalculateRequestLength(funcCode byte, header []byte) (int, error) {
	switch funcCode {
	case modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeWriteSingleRegister:
		// Fixed 8 bytes: [SlaveID, Func, Addr(2), Val(2), CRC(2)]
		return 8, nil
	case modbus.FuncCodeWriteMultipleRegisters:
		// [SlaveID, Func, Addr(2), Quant(2), ByteCount(1), Data(N), CRC(2)]
		if len(header) < HeaderSize {
			return 0, fmt.Errorf("need %d bytes to determine length for 0x%02X, got %d", HeaderSize, funcCode, len(header))
		}
		byteCount := int(header[6])
		return HeaderSize + byteCount + 2, nil
	default:
		return 0, fmt.Errorf("unsupported function code: 0x%02X", funcCode)
	}
}
