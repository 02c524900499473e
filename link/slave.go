// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"encoding/binary"

	"github.com/ffutop/modbus-link/modbus"
	"github.com/ffutop/modbus-link/modbus/rtu"
)

// Registers is the register storage served by the slave role. Both methods
// return how many registers were actually transferred; SetRegisters reports
// failure with 0.
type Registers interface {
	GetRegisters(address uint16, out []uint16) int
	SetRegisters(address uint16, in []uint16) int
}

type noRegisters struct{}

func (noRegisters) GetRegisters(uint16, []uint16) int { return 0 }
func (noRegisters) SetRegisters(uint16, []uint16) int { return 0 }

// AttachRegisters sets the storage answered by the slave role. A nil value
// detaches it: reads then return no registers and writes fail.
func (l *Link) AttachRegisters(r Registers) {
	if r == nil {
		r = noRegisters{}
	}
	l.regs = r
}

// expectedLength returns the length the RTU frame starting with head will
// have, or 0 when it cannot be told yet.
func (l *Link) expectedLength(head []byte) int {
	if len(head) == 0 {
		return 0
	}
	if l.cfg.Role.Has(RoleMaster) && l.awaiting && head[0] == l.cfg.PeerAddress {
		if l.orphaned {
			return l.orphanLen
		}
		if r := l.queue.front(); r != nil {
			return r.respLen
		}
	}
	if l.cfg.Role.Has(RoleSlave) && head[0] == l.cfg.Address && len(head) >= 2 {
		if n, err := rtu.CalculateRequestLength(head[1], head); err == nil {
			return n
		}
	}
	return 0
}

// handleRequest serves a request addressed to this station and sends the
// reply.
func (l *Link) handleRequest(frame []byte) {
	if len(frame) < 6 {
		l.counters.inc(CntNoise)
		return
	}
	address := binary.BigEndian.Uint16(frame[2:])
	arg := binary.BigEndian.Uint16(frame[4:])

	var (
		size int
		err  error
	)
	switch frame[1] {
	case modbus.FuncCodeReadHoldingRegisters:
		count := int(arg)
		if count > l.limit {
			count = 0
		}
		n := l.clamp(l.regs.GetRegisters(address, l.scratch[:count]), count)
		size, err = l.enc.readReply(l.reply, l.cfg.Address, l.scratch[:n])

	case modbus.FuncCodeWriteSingleRegister:
		l.scratch[0] = arg
		value := arg
		if l.regs.SetRegisters(address, l.scratch[:1]) == 0 {
			value = ^arg
		}
		size, err = l.enc.writeSingle(l.reply, l.cfg.Address, address, value)

	case modbus.FuncCodeWriteMultipleRegisters:
		count := int(arg)
		if count > l.limit {
			count = 0
		}
		if len(frame) < 7+2*count {
			l.counters.inc(CntNoise)
			l.log.Debug("Discarding short write request", "count", count, "len", len(frame))
			return
		}
		for i := 0; i < count; i++ {
			l.scratch[i] = binary.BigEndian.Uint16(frame[7+2*i:])
		}
		n := l.clamp(l.regs.SetRegisters(address, l.scratch[:count]), count)
		size, err = l.enc.writeMultipleReply(l.reply, l.cfg.Address, address, uint16(n))

	default:
		l.counters.inc(CntMismatch)
		l.log.Warn("Discarding request with unsupported function", "func", frame[1])
		return
	}
	if err != nil {
		l.log.Warn("Encoding reply failed", "func", frame[1], "err", err)
		return
	}

	l.counters.inc(CntServed)
	l.sink.Send(l.reply[:size])
}

func (l *Link) clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		l.log.Warn("Register accessor reported more registers than requested", "got", n, "max", max)
		return max
	}
	return n
}
