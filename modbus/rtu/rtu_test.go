// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ffutop/modbus-link/modbus"
)

func TestCalculateRequestLength(t *testing.T) {
	tests := []struct {
		name     string
		funcCode byte
		header   []byte
		want     int
		wantErr  bool
	}{
		{"ReadHoldingRegisters", 0x03, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, 8, false},
		{"WriteSingleRegister", 0x06, []byte{0x01, 0x06, 0x00, 0x00, 0xAA, 0xBB}, 8, false},
		{"WriteMultipleRegisters_ShortHeader", 0x10, []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x01}, 0, true},
		{"WriteMultipleRegisters_Valid", 0x10, []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x01, 0x02}, 7 + 2 + 2, false},
		{"ReadCoils", 0x01, []byte{0x01, 0x01}, 0, true},
		{"UnknownFunction", 0x99, []byte{0x01, 0x99}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateRequestLength(tt.funcCode, tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("CalculateRequestLength() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("CalculateRequestLength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeal(t *testing.T) {
	buf := make([]byte, 8)
	copy(buf, []byte{0x01, 0x06, 0x00, 0x02, 0x00, 0x05})
	n, err := Seal(buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x06, 0x00, 0x02, 0x00, 0x05, 0xE8, 0x09}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("Seal() = %X, want %X", buf[:n], want)
	}

	if _, err := Seal(make([]byte, 7), 6); !errors.Is(err, modbus.ErrFrameTooLarge) {
		t.Errorf("Seal() into short buffer error = %v, want ErrFrameTooLarge", err)
	}
}

func TestResponseLength(t *testing.T) {
	if got := ReadResponseLength(5); got != 15 {
		t.Errorf("ReadResponseLength(5) = %d, want 15", got)
	}
	if got := WriteResponseLength(); got != 8 {
		t.Errorf("WriteResponseLength() = %d, want 8", got)
	}
}
