// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/modbus-link/modbus"
	"github.com/ffutop/modbus-link/modbus/ascii"
	"github.com/ffutop/modbus-link/modbus/rtu"
)

// encoder builds frames for one transmission mode into caller owned buffers.
// The binary payload is written where the framing expects it and sealed in
// place, so no builder allocates.
type encoder struct {
	mode modbus.Mode
}

func (e encoder) payload(buf []byte) []byte {
	if e.mode == modbus.ModeASCII {
		return buf[ascii.PayloadOffset:]
	}
	return buf
}

func (e encoder) seal(buf []byte, n int) (int, error) {
	if e.mode == modbus.ModeASCII {
		return ascii.Seal(buf, n)
	}
	return rtu.Seal(buf, n)
}

// responseLength is the expected size of the reply to a request.
func (e encoder) responseLength(funcCode byte, count uint16) int {
	switch {
	case funcCode == modbus.FuncCodeReadHoldingRegisters && e.mode == modbus.ModeASCII:
		return ascii.ReadResponseLength(count)
	case funcCode == modbus.FuncCodeReadHoldingRegisters:
		return rtu.ReadResponseLength(count)
	case e.mode == modbus.ModeASCII:
		return ascii.WriteResponseLength()
	default:
		return rtu.WriteResponseLength()
	}
}

// fixed writes the six byte layout shared by read requests, write single
// requests and replies, and write multiple replies:
// [slave][func][a hi][a lo][b hi][b lo].
func (e encoder) fixed(buf []byte, slave, funcCode byte, a, b uint16) (int, error) {
	p := e.payload(buf)
	if len(p) < 6 {
		return 0, fmt.Errorf("%w: %d byte buffer", modbus.ErrFrameTooLarge, len(buf))
	}
	p[0] = slave
	p[1] = funcCode
	binary.BigEndian.PutUint16(p[2:], a)
	binary.BigEndian.PutUint16(p[4:], b)
	return e.seal(buf, 6)
}

func (e encoder) readRequest(buf []byte, slave byte, address, count uint16) (int, error) {
	return e.fixed(buf, slave, modbus.FuncCodeReadHoldingRegisters, address, count)
}

func (e encoder) writeSingle(buf []byte, slave byte, address, value uint16) (int, error) {
	return e.fixed(buf, slave, modbus.FuncCodeWriteSingleRegister, address, value)
}

func (e encoder) writeMultipleReply(buf []byte, slave byte, address, count uint16) (int, error) {
	return e.fixed(buf, slave, modbus.FuncCodeWriteMultipleRegisters, address, count)
}

// writeMultipleRequest encodes
// [slave][0x10][addr hi][addr lo][cnt hi][cnt lo][byte count][data...].
func (e encoder) writeMultipleRequest(buf []byte, slave byte, address uint16, values []uint16) (int, error) {
	p := e.payload(buf)
	n := 7 + 2*len(values)
	if len(p) < n || len(values) > modbus.MaxRegisterLimit {
		return 0, fmt.Errorf("%w: write of %d registers", modbus.ErrFrameTooLarge, len(values))
	}
	p[0] = slave
	p[1] = modbus.FuncCodeWriteMultipleRegisters
	binary.BigEndian.PutUint16(p[2:], address)
	binary.BigEndian.PutUint16(p[4:], uint16(len(values)))
	p[6] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(p[7+2*i:], v)
	}
	return e.seal(buf, n)
}

// readReply encodes [slave][0x03][byte count][data...].
func (e encoder) readReply(buf []byte, slave byte, values []uint16) (int, error) {
	p := e.payload(buf)
	n := 3 + 2*len(values)
	if len(p) < n || len(values) > modbus.MaxRegisterLimit {
		return 0, fmt.Errorf("%w: reply of %d registers", modbus.ErrFrameTooLarge, len(values))
	}
	p[0] = slave
	p[1] = modbus.FuncCodeReadHoldingRegisters
	p[2] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(p[3+2*i:], v)
	}
	return e.seal(buf, n)
}
