// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import "github.com/ffutop/modbus-link/internal/regbank/model"

// MemoryStorage is a no-op storage (non-persistent).
type MemoryStorage struct {
	size int
}

func NewMemoryStorage(size int) *MemoryStorage {
	return &MemoryStorage{size: size}
}

func (ms *MemoryStorage) Load() (*model.Bank, error) {
	return model.NewBank(ms.size), nil
}

func (ms *MemoryStorage) Save(b *model.Bank) error {
	return nil
}

func (ms *MemoryStorage) OnWrite(address, quantity uint16) {
	// No-op
}

func (ms *MemoryStorage) Close() error {
	return nil
}
