// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package ascii

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/modbus-link/modbus"
)

func TestHexRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for n := 0; n < 128; n++ {
		orig := make([]byte, n)
		rnd.Read(orig)

		buf := make([]byte, 2*n)
		copy(buf, orig)
		h, err := BinaryToHex(buf, n)
		if err != nil {
			t.Fatalf("BinaryToHex(%d bytes) error = %v", n, err)
		}
		if h != 2*n {
			t.Fatalf("BinaryToHex() = %d, want %d", h, 2*n)
		}
		for _, c := range buf {
			if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
				t.Fatalf("BinaryToHex() produced %q", c)
			}
		}

		b := HexToBinary(buf)
		if diff := cmp.Diff(orig, buf[:b]); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestBinaryToHex(t *testing.T) {
	buf := make([]byte, 6)
	copy(buf, []byte{0x01, 0xAB, 0xF0})
	n, err := BinaryToHex(buf, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "01ABF0" {
		t.Errorf("BinaryToHex() = %q, want %q", got, "01ABF0")
	}

	_, err = BinaryToHex(make([]byte, 5), 3)
	if !errors.Is(err, modbus.ErrFrameTooLarge) {
		t.Errorf("BinaryToHex() over limit error = %v, want ErrFrameTooLarge", err)
	}
}

// Malformed characters are not rejected: they decode as zero nibbles.
func TestHexToBinaryPermissive(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"Upper", "0A1F", []byte{0x0A, 0x1F}},
		{"Lowercase", "0a", []byte{0x00}},
		{"Garbage", "G1Z9", []byte{0x01, 0x09}},
		{"OddTrailing", "ABC", []byte{0xAB}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := []byte(tt.in)
			n := HexToBinary(buf)
			if diff := cmp.Diff(tt.want, buf[:n]); diff != "" {
				t.Errorf("HexToBinary(%q) (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestSeal(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf[PayloadOffset:], []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})

	n, err := Seal(buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(buf[:n]), ":010300000001FB\r\n"; got != want {
		t.Errorf("Seal() = %q, want %q", got, want)
	}

	if _, err := Seal(make([]byte, 16), 6); !errors.Is(err, modbus.ErrFrameTooLarge) {
		t.Errorf("Seal() into short buffer error = %v, want ErrFrameTooLarge", err)
	}
}

func TestResponseLength(t *testing.T) {
	// ":" + 2*(addr, func, byte count, 2n data, lrc) + CRLF
	if got := ReadResponseLength(5); got != 1+2*(3+10+1)+2 {
		t.Errorf("ReadResponseLength(5) = %d", got)
	}
	if got := WriteResponseLength(); got != 1+2*(6+1)+2 {
		t.Errorf("WriteResponseLength() = %d", got)
	}
}
