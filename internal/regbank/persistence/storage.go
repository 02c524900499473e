// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"errors"
	"fmt"

	"github.com/ffutop/modbus-link/internal/regbank/model"
)

var ErrUnknownType = errors.New("persistence: unknown storage type")

// Storage defines the interface for persisting a register bank.
type Storage interface {
	// Load returns the bank, restored from storage when data exists.
	Load() (*model.Bank, error)

	// Save saves the current bank to storage.
	Save(b *model.Bank) error

	// OnWrite is a hook called whenever registers are modified.
	// It allows the storage to perform real-time persistence.
	OnWrite(address, quantity uint16)

	Close() error
}

// New returns the storage of the given type for a bank of size registers.
// An empty type selects memory.
func New(typ, path string, size int) (Storage, error) {
	switch typ {
	case "", "memory":
		return NewMemoryStorage(size), nil
	case "file":
		return NewFileStorage(path, size), nil
	case "mmap":
		return NewMmapStorage(path, size), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// Open loads the bank and hooks its writes to the storage.
func Open(s Storage) (*model.Bank, error) {
	b, err := s.Load()
	if err != nil {
		return nil, err
	}
	b.OnWrite(s.OnWrite)
	return b, nil
}
