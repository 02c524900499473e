// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStorage_SurvivesReopen(t *testing.T) {
	for _, typ := range []string{"file", "mmap"} {
		t.Run(typ, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bank.bin")

			s, err := New(typ, path, 16)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			b, err := Open(s)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if b.Size() != 16 {
				t.Fatalf("Size() = %d, want 16", b.Size())
			}
			if n := b.SetRegisters(14, []uint16{0x1234, 0xABCD, 0xFFFF}); n != 2 {
				t.Fatalf("SetRegisters() = %d, want 2", n)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			fi, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if fi.Size() != 32 {
				t.Errorf("file size = %d, want 32", fi.Size())
			}

			s, err = New(typ, path, 16)
			if err != nil {
				t.Fatal(err)
			}
			b, err = Open(s)
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			defer s.Close()
			out := make([]uint16, 4)
			n := b.GetRegisters(12, out)
			if diff := cmp.Diff([]uint16{0, 0, 0x1234, 0xABCD}, out[:n]); diff != "" {
				t.Errorf("reloaded registers (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryStorage(t *testing.T) {
	s, err := New("", "", 8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(s)
	if err != nil {
		t.Fatal(err)
	}
	b.SetRegisters(0, []uint16{1})
	if err := s.Save(b); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if b.Size() != 8 {
		t.Errorf("Size() = %d", b.Size())
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New("sql", "", 8); !errors.Is(err, ErrUnknownType) {
		t.Errorf("New() error = %v, want ErrUnknownType", err)
	}
}
