// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serial opens serial lines through one of two drivers:
// github.com/grid-x/serial ("gridx", with RS485 support) or
// go.bug.st/serial ("bugst", with port enumeration).
package serial

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	gridx "github.com/grid-x/serial"
	bugst "go.bug.st/serial"

	"github.com/ffutop/modbus-link/internal/config"
)

var (
	ErrUnknownDriver    = errors.New("serial: unknown driver")
	ErrRS485Unsupported = errors.New("serial: rs485 needs the gridx driver")
	ErrInvalidParity    = errors.New("serial: invalid parity")
	ErrInvalidStopBits  = errors.New("serial: invalid stop bits")
)

// Open opens the configured device. Reads that time out return no data
// and no error, so a reader can poll the line.
func Open(cfg config.SerialConfig) (io.ReadWriteCloser, error) {
	var (
		port io.ReadWriteCloser
		err  error
	)
	switch cfg.Driver {
	case "", "gridx":
		port, err = openGridx(cfg)
	case "bugst":
		port, err = openBugst(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	slog.Info("Serial port opened", "device", cfg.Device, "driver", cfg.Driver,
		"baud", cfg.BaudRate, "parity", cfg.Parity)
	return port, nil
}

// ListPorts returns the serial ports found on the system.
func ListPorts() ([]string, error) {
	return bugst.GetPortsList()
}

func openGridx(cfg config.SerialConfig) (io.ReadWriteCloser, error) {
	spConfig := &gridx.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout, // Read timeout
	}
	if cfg.RS485 {
		spConfig.RS485 = gridx.RS485Config{
			Enabled:            true,
			DelayRtsBeforeSend: cfg.DelayRtsBeforeSend,
			DelayRtsAfterSend:  cfg.DelayRtsAfterSend,
			RtsHighDuringSend:  cfg.RtsHighDuringSend,
			RtsHighAfterSend:   cfg.RtsHighAfterSend,
			RxDuringTx:         cfg.RxDuringTx,
		}
	}
	port, err := gridx.Open(spConfig)
	if err != nil {
		return nil, err
	}
	return gridxPort{port}, nil
}

type gridxPort struct {
	io.ReadWriteCloser
}

func (p gridxPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if errors.Is(err, gridx.ErrTimeout) {
		err = nil
	}
	return n, err
}

func openBugst(cfg config.SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.RS485 {
		return nil, ErrRS485Unsupported
	}
	mode, err := bugstMode(cfg)
	if err != nil {
		return nil, err
	}
	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		if err := port.SetReadTimeout(cfg.Timeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return port, nil
}

func bugstMode(cfg config.SerialConfig) (*bugst.Mode, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	switch cfg.Parity {
	case "", "N":
		mode.Parity = bugst.NoParity
	case "E":
		mode.Parity = bugst.EvenParity
	case "O":
		mode.Parity = bugst.OddParity
	case "M":
		mode.Parity = bugst.MarkParity
	case "S":
		mode.Parity = bugst.SpaceParity
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidParity, cfg.Parity)
	}
	switch cfg.StopBits {
	case 0, 1:
		mode.StopBits = bugst.OneStopBit
	case 2:
		mode.StopBits = bugst.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidStopBits, cfg.StopBits)
	}
	return mode, nil
}
