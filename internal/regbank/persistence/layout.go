// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"unsafe"

	"github.com/ffutop/modbus-link/internal/regbank/model"
)

// A bank file holds the registers back to back, two bytes each, from
// address 0.
func bankBytes(size int) int {
	if size <= 0 || size > model.MaxAddress+1 {
		size = model.MaxAddress + 1
	}
	return size * 2
}

// mapBytesToBank constructs a Bank backed by the provided data slice.
// Warning: This function uses unsafe pointers to cast byte slices to uint16 slices.
// The resulting Bank relies on the host's endianness for register values.
// This provides zero-copy access but sacrifices portability across architectures
// with different endianness.
func mapBytesToBank(data []byte) *model.Bank {
	regs := unsafe.Slice((*uint16)(unsafe.Pointer(&data[0])), len(data)/2)
	return model.FromSlice(regs)
}
