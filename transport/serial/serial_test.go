// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	gridx "github.com/grid-x/serial"
	bugst "go.bug.st/serial"

	"github.com/ffutop/modbus-link/internal/config"
)

func TestBugstMode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SerialConfig
		want    *bugst.Mode
		wantErr error
	}{
		{
			name: "8N1",
			cfg:  config.SerialConfig{BaudRate: 9600, DataBits: 8, Parity: "N", StopBits: 1},
			want: &bugst.Mode{BaudRate: 9600, DataBits: 8, Parity: bugst.NoParity, StopBits: bugst.OneStopBit},
		},
		{
			name: "7E2",
			cfg:  config.SerialConfig{BaudRate: 19200, DataBits: 7, Parity: "E", StopBits: 2},
			want: &bugst.Mode{BaudRate: 19200, DataBits: 7, Parity: bugst.EvenParity, StopBits: bugst.TwoStopBits},
		},
		{
			name: "odd",
			cfg:  config.SerialConfig{BaudRate: 4800, DataBits: 8, Parity: "O"},
			want: &bugst.Mode{BaudRate: 4800, DataBits: 8, Parity: bugst.OddParity, StopBits: bugst.OneStopBit},
		},
		{
			name:    "bad parity",
			cfg:     config.SerialConfig{Parity: "X"},
			wantErr: ErrInvalidParity,
		},
		{
			name:    "bad stop bits",
			cfg:     config.SerialConfig{StopBits: 3},
			wantErr: ErrInvalidStopBits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bugstMode(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("bugstMode() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("bugstMode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SerialConfig
		wantErr error
	}{
		{name: "unknown driver", cfg: config.SerialConfig{Device: "/dev/null", Driver: "termios"}, wantErr: ErrUnknownDriver},
		{name: "bugst rs485", cfg: config.SerialConfig{Device: "/dev/null", Driver: "bugst", RS485: true}, wantErr: ErrRS485Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	for _, driver := range []string{"gridx", "bugst"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.SerialConfig{Device: "/nonexistent/ttyX", Driver: driver, BaudRate: 9600, DataBits: 8, Parity: "N", StopBits: 1}
			if _, err := Open(cfg); err == nil {
				t.Error("Open() error = nil, want error")
			}
		})
	}
}

type mockPort struct {
	io.Reader
	io.Writer
}

func (mockPort) Close() error { return nil }

type timeoutReader struct{}

func (timeoutReader) Read([]byte) (int, error) { return 0, gridx.ErrTimeout }

func TestGridxPort_MasksTimeout(t *testing.T) {
	p := gridxPort{mockPort{Reader: timeoutReader{}}}
	n, err := p.Read(make([]byte, 8))
	if n != 0 || err != nil {
		t.Errorf("Read() = %d, %v; want 0, nil", n, err)
	}
}
