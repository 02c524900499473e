// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/multierr"

	"github.com/ffutop/modbus-link/internal/regbank/model"
)

// FileStorage implements persistence using file operations. Every write
// rewrites the touched range and syncs the file.
type FileStorage struct {
	path string
	size int
	file *os.File
	data []byte
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string, size int) *FileStorage {
	return &FileStorage{
		path: path,
		size: bankBytes(size),
	}
}

// Load reads the bank from the file, creating or resizing it as needed.
func (ms *FileStorage) Load() (*model.Bank, error) {
	// Open file, creating if necessary
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	ms.file = f

	// Ensure file size
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if fi.Size() != int64(ms.size) {
		if err := f.Truncate(int64(ms.size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	ms.data = data

	// Construct the Bank backed by the file data slice
	return mapBytesToBank(data), nil
}

// Save flushes the data to disk.
func (ms *FileStorage) Save(b *model.Bank) error {
	return ms.sync(0, len(ms.data))
}

// OnWrite persists the written range.
func (ms *FileStorage) OnWrite(address, quantity uint16) {
	from := int(address) * 2
	if err := ms.sync(from, from+int(quantity)*2); err != nil {
		slog.Error("Failed to sync file", "path", ms.path, "err", err)
	}
}

func (ms *FileStorage) sync(from, to int) error {
	if ms.data == nil || ms.file == nil {
		return nil
	}
	if to > len(ms.data) {
		to = len(ms.data)
	}
	if _, err := ms.file.WriteAt(ms.data[from:to], int64(from)); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := ms.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

// Close writes the whole bank and closes the file.
func (ms *FileStorage) Close() error {
	if ms.file == nil {
		return nil
	}
	err := multierr.Append(ms.sync(0, len(ms.data)), ms.file.Close())
	ms.file = nil
	ms.data = nil
	return err
}
