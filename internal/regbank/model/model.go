// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"fmt"
	"sync"
)

const (
	MaxAddress = 65535
)

// Bank holds a contiguous block of holding registers starting at address 0.
// It is shared between the link's polling goroutine and whoever inspects or
// seeds the registers, so every access is guarded.
type Bank struct {
	mu sync.RWMutex

	// Registers is the backing store. Persistence backends may point it at a
	// file mapping.
	Registers []uint16

	onWrite func(address, quantity uint16)
}

// NewBank creates a zeroed bank of size registers, capped at the 16-bit
// address space.
func NewBank(size int) *Bank {
	return FromSlice(make([]uint16, clampSize(size)))
}

// FromSlice creates a bank backed by regs.
func FromSlice(regs []uint16) *Bank {
	return &Bank{Registers: regs}
}

func clampSize(size int) int {
	if size <= 0 || size > MaxAddress+1 {
		return MaxAddress + 1
	}
	return size
}

// OnWrite installs a hook called after every successful write with the
// written range. It runs with the bank locked.
func (b *Bank) OnWrite(fn func(address, quantity uint16)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onWrite = fn
}

func (b *Bank) Size() int {
	return len(b.Registers)
}

// GetRegisters copies the registers starting at address into out and
// returns how many exist. Reading past the end of the bank yields fewer
// registers, starting past it yields none.
func (b *Bank) GetRegisters(address uint16, out []uint16) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if int(address) >= len(b.Registers) {
		return 0
	}
	return copy(out, b.Registers[address:])
}

// SetRegisters stores in starting at address and returns how many registers
// were written. Writes past the end of the bank are truncated.
func (b *Bank) SetRegisters(address uint16, in []uint16) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if int(address) >= len(b.Registers) {
		return 0
	}
	n := copy(b.Registers[address:], in)
	if n > 0 && b.onWrite != nil {
		b.onWrite(address, uint16(n))
	}
	return n
}

// ReadHoldingRegisters returns a copy of an exact range.
func (b *Bank) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.validateRange(address, quantity); err != nil {
		return nil, err
	}
	result := make([]uint16, quantity)
	copy(result, b.Registers[address:])
	return result, nil
}

// WriteHoldingRegisters stores an exact range, failing rather than
// truncating.
func (b *Bank) WriteHoldingRegisters(address uint16, values []uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	copy(b.Registers[address:], values)
	if b.onWrite != nil {
		b.onWrite(address, uint16(len(values)))
	}
	return nil
}

func (b *Bank) validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}
	// address is 0-based.
	if int(address)+int(quantity) > len(b.Registers) {
		return fmt.Errorf("address range %d+%d out of bounds (size %d)", address, quantity, len(b.Registers))
	}
	return nil
}
