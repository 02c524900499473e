// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ffutop/modbus-link/link"
	"github.com/ffutop/modbus-link/modbus"
)

var (
	ErrMissing = errors.New("missing value")
	ErrInvalid = errors.New("invalid value")
)

// FieldError reports a rejected configuration field.
type FieldError struct {
	Link  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Link == "" {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: link %q: %s: %v", e.Link, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fixupLink(l *LinkConfig) error {
	fail := func(field string, err error) error {
		return &FieldError{Link: l.Name, Field: field, Err: err}
	}

	role, err := link.ParseRole(l.Role)
	if err != nil {
		return fail("role", err)
	}
	mode, err := modbus.ParseMode(l.Mode)
	if err != nil {
		return fail("mode", err)
	}
	l.Role, l.Mode = role.String(), mode.String()

	if role.Has(link.RoleSlave) && !validStation(l.Address) {
		return fail("address", fmt.Errorf("%w: %d", ErrInvalid, l.Address))
	}
	if role.Has(link.RoleMaster) && !validStation(l.PeerAddress) {
		return fail("peer_address", fmt.Errorf("%w: %d", ErrInvalid, l.PeerAddress))
	}
	if l.RegisterLimit < 0 || l.RegisterLimit > modbus.MaxRegisterLimit {
		return fail("register_limit", fmt.Errorf("%w: %d", ErrInvalid, l.RegisterLimit))
	}
	if l.QueueSize < 0 {
		return fail("queue_size", fmt.Errorf("%w: %d", ErrInvalid, l.QueueSize))
	}
	if l.ReceiveTimeout < 0 || l.SendTimeout < 0 {
		return fail("timeout", ErrInvalid)
	}
	if l.PollInterval <= 0 {
		l.PollInterval = time.Millisecond
	}

	switch l.Transport.Type {
	case "", "serial":
		l.Transport.Type = "serial"
		fixupSerial(&l.Transport.Serial)
		if l.Transport.Serial.Device == "" {
			return fail("transport.serial.device", ErrMissing)
		}
		if d := l.Transport.Serial.Driver; d != "gridx" && d != "bugst" {
			return fail("transport.serial.driver", fmt.Errorf("%w: %q", ErrInvalid, d))
		}
		if l.BaudRate == 0 {
			l.BaudRate = l.Transport.Serial.BaudRate
		}
	case "tcp", "tcp-listen":
		if l.Transport.Tcp.Address == "" {
			return fail("transport.tcp.address", ErrMissing)
		}
	default:
		return fail("transport.type", fmt.Errorf("%w: %q", ErrInvalid, l.Transport.Type))
	}
	if l.BaudRate < 0 {
		return fail("baud_rate", fmt.Errorf("%w: %d", ErrInvalid, l.BaudRate))
	}

	p := &l.Registers.Persistence
	switch p.Type {
	case "", "memory":
		p.Type = "memory"
	case "file", "mmap":
		if p.Path == "" {
			return fail("registers.persistence.path", ErrMissing)
		}
	default:
		return fail("registers.persistence.type", fmt.Errorf("%w: %q", ErrInvalid, p.Type))
	}
	if l.Registers.Size < 0 || l.Registers.Size > 1<<16 {
		return fail("registers.size", fmt.Errorf("%w: %d", ErrInvalid, l.Registers.Size))
	}

	if len(l.Jobs) > 0 && !role.Has(link.RoleMaster) {
		return fail("jobs", fmt.Errorf("%w: jobs need the master role", ErrInvalid))
	}
	for i := range l.Jobs {
		if err := fixupJob(&l.Jobs[i], i); err != nil {
			return fail(fmt.Sprintf("jobs[%d]", i), err)
		}
	}
	return nil
}

func fixupJob(j *JobConfig, i int) error {
	if j.Name == "" {
		j.Name = fmt.Sprintf("job%d", i)
	}
	if j.Interval < 0 {
		return fmt.Errorf("%w: interval %s", ErrInvalid, j.Interval)
	}
	switch j.Kind {
	case "read":
		if j.Count == 0 || int(j.Count) > modbus.MaxRegisterLimit {
			return fmt.Errorf("%w: count %d", ErrInvalid, j.Count)
		}
	case "write":
		if len(j.Values) == 0 {
			return fmt.Errorf("values: %w", ErrMissing)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalid, j.Kind)
	}
	return nil
}

// Modbus unicast station addresses.
func validStation(a int) bool {
	return a >= 1 && a <= 247
}
