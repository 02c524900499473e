// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package local

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/atomic"

	"github.com/ffutop/modbus-link/internal/regbank/model"
	"github.com/ffutop/modbus-link/link"
	"github.com/ffutop/modbus-link/modbus"
)

// forward lets a sink be bound before its target link exists.
type forward struct {
	to link.Sink
}

func (f *forward) Send(frame []byte) { f.to.Send(frame) }

type cable struct {
	now    atomic.Uint32
	master *link.Link
	slave  *link.Link
	bank   *model.Bank
	toS    *Tap
	toM    *Tap
}

func newCable(t *testing.T, mode modbus.Mode) *cable {
	t.Helper()
	c := &cable{bank: model.FromSlice([]uint16{10, 20, 30, 40, 50, 60, 70, 80})}
	clock := link.ClockFunc(c.now.Load)

	toMaster := &forward{}
	c.toM = &Tap{Next: toMaster}
	slave, err := link.New(link.Config{Role: link.RoleSlave, Mode: mode, Address: 9, BaudRate: 19200},
		c.toM, link.WithClock(clock), link.WithRegisters(c.bank))
	if err != nil {
		t.Fatalf("link.New(slave) error = %v", err)
	}
	c.toS = &Tap{Next: Wire{To: slave}}
	master, err := link.New(link.Config{Role: link.RoleMaster, Mode: mode, PeerAddress: 9, BaudRate: 19200},
		c.toS, link.WithClock(clock))
	if err != nil {
		t.Fatalf("link.New(master) error = %v", err)
	}
	toMaster.to = Wire{To: master}

	c.master, c.slave = master, slave
	return c
}

func (c *cable) run(ms int) {
	for i := 0; i < ms; i++ {
		c.master.Poll()
		c.slave.Poll()
		c.now.Add(1)
	}
}

func TestWire_ReadAndWrite(t *testing.T) {
	for _, mode := range []modbus.Mode{modbus.ModeRTU, modbus.ModeASCII} {
		t.Run(mode.String(), func(t *testing.T) {
			c := newCable(t, mode)

			var got []uint16
			c.master.ReadRegisters(2, 3, func(values []uint16) {
				got = append([]uint16{}, values...)
			})
			c.run(20)
			if diff := cmp.Diff([]uint16{30, 40, 50}, got); diff != "" {
				t.Errorf("ReadRegisters() mismatch (-want +got):\n%s", diff)
			}

			var ackAddr, ackCount uint16
			c.master.WriteRegisters(5, []uint16{0xBEEF, 0xCAFE}, func(address, count uint16) {
				ackAddr, ackCount = address, count
			})
			c.run(20)
			if ackAddr != 5 || ackCount != 2 {
				t.Errorf("WriteRegisters() ack = (%d, %d), want (5, 2)", ackAddr, ackCount)
			}
			want := []uint16{10, 20, 30, 40, 50, 0xBEEF, 0xCAFE, 80}
			if diff := cmp.Diff(want, c.bank.Registers); diff != "" {
				t.Errorf("bank mismatch (-want +got):\n%s", diff)
			}

			if n := len(c.toS.Frames()); n != 2 {
				t.Errorf("requests on the wire = %d, want 2", n)
			}
			if n := len(c.toM.Frames()); n != 2 {
				t.Errorf("responses on the wire = %d, want 2", n)
			}
			if got := c.master.Counters().Get(link.CntCompleted); got != 2 {
				t.Errorf("completed = %d, want 2", got)
			}
		})
	}
}

func TestTap_Reset(t *testing.T) {
	var tap Tap
	frame := []byte{0x01, 0x02}
	tap.Send(frame)
	frame[0] = 0xFF

	if diff := cmp.Diff([][]byte{{0x01, 0x02}}, tap.Frames()); diff != "" {
		t.Errorf("Frames() mismatch (-want +got):\n%s", diff)
	}
	tap.Reset()
	if n := len(tap.Frames()); n != 0 {
		t.Errorf("Frames() after Reset = %d, want 0", n)
	}
}
