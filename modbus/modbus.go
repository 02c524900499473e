// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the wire vocabulary shared by the serial framings and
// the link engine: transmission modes, function codes and buffer sizing.
package modbus

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the serial framing of a link.
type Mode uint8

const (
	ModeRTU Mode = iota
	ModeASCII
)

func (m Mode) String() string {
	switch m {
	case ModeRTU:
		return "rtu"
	case ModeASCII:
		return "ascii"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts "rtu" or "ascii", case insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rtu", "":
		return ModeRTU, nil
	case "ascii":
		return ModeASCII, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Function Codes
const (
	FuncCodeReadHoldingRegisters   = 0x03
	FuncCodeWriteSingleRegister    = 0x06
	FuncCodeWriteMultipleRegisters = 0x10
)

const (
	// MaxRegisterLimit caps how many registers one request may carry.
	MaxRegisterLimit = 123
	// DefaultQueueSize is the number of master requests kept pending.
	DefaultQueueSize = 5
	// DefaultBaudRate is assumed when no line speed is configured.
	DefaultBaudRate = 9600
)

var (
	ErrInvalidMode   = errors.New("modbus: invalid transmission mode")
	ErrFrameTooLarge = errors.New("modbus: frame exceeds buffer capacity")
)

// FrameCapacity returns the buffer size needed for the largest frame a link
// with the given register limit sends or receives. ASCII doubles every payload
// byte, so a write-multiple request of n registers takes 4n+19 characters.
func FrameCapacity(registerLimit int) int {
	return registerLimit*4 + 20
}
