// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBank_GetRegisters(t *testing.T) {
	b := FromSlice([]uint16{10, 11, 12, 13})
	tests := []struct {
		name    string
		address uint16
		count   int
		want    []uint16
	}{
		{"inside", 1, 2, []uint16{11, 12}},
		{"truncated at end", 2, 5, []uint16{12, 13}},
		{"past end", 4, 1, []uint16{}},
		{"zero count", 0, 0, []uint16{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]uint16, tt.count)
			n := b.GetRegisters(tt.address, out)
			if diff := cmp.Diff(tt.want, out[:n]); diff != "" {
				t.Errorf("GetRegisters() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBank_SetRegistersHook(t *testing.T) {
	b := NewBank(4)
	var calls [][2]uint16
	b.OnWrite(func(address, quantity uint16) {
		calls = append(calls, [2]uint16{address, quantity})
	})

	if n := b.SetRegisters(2, []uint16{7, 8, 9}); n != 2 {
		t.Errorf("SetRegisters() = %d, want 2", n)
	}
	if n := b.SetRegisters(4, []uint16{1}); n != 0 {
		t.Errorf("SetRegisters() past end = %d, want 0", n)
	}
	if diff := cmp.Diff([]uint16{0, 0, 7, 8}, b.Registers); diff != "" {
		t.Errorf("registers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]uint16{{2, 2}}, calls); diff != "" {
		t.Errorf("hook calls (-want +got):\n%s", diff)
	}
}

func TestBank_ExactRange(t *testing.T) {
	b := NewBank(8)
	if err := b.WriteHoldingRegisters(6, []uint16{1, 2, 3}); err == nil {
		t.Errorf("WriteHoldingRegisters() past end succeeded")
	}
	if err := b.WriteHoldingRegisters(6, []uint16{1, 2}); err != nil {
		t.Fatalf("WriteHoldingRegisters() error = %v", err)
	}
	got, err := b.ReadHoldingRegisters(5, 3)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters() error = %v", err)
	}
	if diff := cmp.Diff([]uint16{0, 1, 2}, got); diff != "" {
		t.Errorf("ReadHoldingRegisters() (-want +got):\n%s", diff)
	}
	if _, err := b.ReadHoldingRegisters(0, 0); err == nil {
		t.Errorf("ReadHoldingRegisters() with zero quantity succeeded")
	}
}

func TestNewBank_Size(t *testing.T) {
	if got := NewBank(0).Size(); got != MaxAddress+1 {
		t.Errorf("NewBank(0).Size() = %d", got)
	}
	if got := NewBank(100).Size(); got != 100 {
		t.Errorf("NewBank(100).Size() = %d", got)
	}
}
