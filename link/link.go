// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package link implements a Modbus RTU/ASCII engine for one point-to-point
// serial line. A Link can act as master, slave or both.
//
// Bytes arrive through Ingest, which is safe to call from a dedicated reader
// goroutine. Everything else, including Poll, must be called from a single
// polling goroutine. Callbacks and sink writes happen inside Poll, except
// for an admission rejection which is reported from the issuing call.
package link

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ffutop/modbus-link/internal/ring"
	"github.com/ffutop/modbus-link/modbus"
)

var (
	ErrNoSink      = errors.New("link: no sink")
	ErrInvalidRole = errors.New("link: invalid role")
)

// Role selects which side of the protocol a link plays.
type Role uint8

const (
	RoleMaster Role = 1 << iota
	RoleSlave

	RoleBoth = RoleMaster | RoleSlave
)

func (r Role) Has(o Role) bool {
	return r&o != 0
}

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleSlave:
		return "slave"
	case RoleBoth:
		return "both"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole accepts "master", "slave" or "both".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "master":
		return RoleMaster, nil
	case "slave":
		return RoleSlave, nil
	case "both":
		return RoleBoth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Config describes one link. Zero values select defaults.
type Config struct {
	Role Role
	Mode modbus.Mode

	// Address is the own station address. The slave role only answers
	// requests carrying it.
	Address byte
	// PeerAddress is the station the master role addresses. Only responses
	// from it are accepted.
	PeerAddress byte

	// BaudRate derives the default timeouts.
	BaudRate int
	// ReceiveTimeout is the line idle time that terminates an RTU frame.
	ReceiveTimeout time.Duration
	// SendTimeout is how long a master request waits for its response.
	SendTimeout time.Duration

	RegisterLimit int
	QueueSize     int
	FastMode      bool
}

// Sink transmits an encoded frame. The frame is only valid during the call.
type Sink interface {
	Send(frame []byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame []byte)

func (f SinkFunc) Send(frame []byte) { f(frame) }

// Option customises a Link.
type Option func(*Link)

func WithClock(c Clock) Option {
	return func(l *Link) { l.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Link) { l.log = logger }
}

func WithRegisters(r Registers) Option {
	return func(l *Link) { l.AttachRegisters(r) }
}

// Link is a Modbus engine bound to one serial line.
type Link struct {
	cfg   Config
	limit int
	sink  Sink
	clock Clock
	log   *slog.Logger
	enc   encoder

	ring *ring.Ring
	det  detector

	recvTimeout uint32
	sendTimeout uint32
	fastMode    bool
	idleMark    uint32

	// master
	queue    *commandQueue
	awaiting bool
	// orphaned marks an exchange whose request was evicted while on the
	// wire. The line stays reserved for its reply or its timeout.
	orphaned  bool
	orphanLen int
	lastSent uint32
	cache    []uint16

	// slave
	regs    Registers
	scratch []uint16
	reply   []byte

	counters counters
}

// New builds a link. The sink is required even for a pure master, which
// uses it to transmit requests.
func New(cfg Config, sink Sink, opts ...Option) (*Link, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if cfg.Role == 0 || cfg.Role&^RoleBoth != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, cfg.Role)
	}
	if cfg.Mode != modbus.ModeRTU && cfg.Mode != modbus.ModeASCII {
		return nil, fmt.Errorf("%w: %s", modbus.ErrInvalidMode, cfg.Mode)
	}

	limit := cfg.RegisterLimit
	if limit <= 0 || limit > modbus.MaxRegisterLimit {
		limit = modbus.MaxRegisterLimit
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = modbus.DefaultQueueSize
	}
	capacity := modbus.FrameCapacity(limit)

	l := &Link{
		cfg:      cfg,
		limit:    limit,
		sink:     sink,
		clock:    NewSystemClock(),
		log:      slog.Default(),
		enc:      encoder{mode: cfg.Mode},
		ring:     ring.New(capacity + 2),
		fastMode: cfg.FastMode,
		queue:    newCommandQueue(queueSize, capacity),
		cache:    make([]uint16, limit),
		regs:     noRegisters{},
		scratch:  make([]uint16, limit),
		reply:    make([]byte, capacity),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.SetBaudRate(cfg.BaudRate)
	l.SetTimeouts(cfg.ReceiveTimeout, cfg.SendTimeout)

	l.det = detector{
		mode:     cfg.Mode,
		ring:     l.ring,
		buf:      make([]byte, capacity),
		accepts:  l.acceptsAddress,
		expect:   l.expectedLength,
		counters: &l.counters,
	}

	now := l.clock.Millis()
	l.ring.Touch(now)
	l.idleMark = now - 1
	l.lastSent = now
	return l, nil
}

// Ingest feeds one received byte. It is the only method that may run
// concurrently with the others, and only from a single goroutine.
func (l *Link) Ingest(b byte) {
	l.ring.Put(b, l.clock.Millis())
}

// Write feeds received bytes through Ingest. It never fails.
func (l *Link) Write(p []byte) (int, error) {
	for _, b := range p {
		l.Ingest(b)
	}
	return len(p), nil
}

// Poll runs one step of the engine: parse received bytes, complete a frame
// once the line has been idle for the receive timeout, then drive the
// master transmit schedule.
func (l *Link) Poll() {
	now := l.clock.Millis()

	if l.ring.Len() > 0 {
		l.parse(false)
	}

	if last := l.ring.LastPut(); now-last > l.recvTimeout && last != l.idleMark {
		l.idleMark = last
		l.parse(true)
		l.det.reset()
	}

	if l.cfg.Role.Has(RoleMaster) {
		l.transmit(now)
	}
}

func (l *Link) parse(idle bool) {
	if !l.cfg.Role.Has(RoleSlave) && !l.awaiting {
		// Nothing can be waiting for these bytes.
		if n := l.ring.Len(); n > 0 {
			l.counters.add(CntNoise, n)
			l.ring.Flush()
		}
		l.det.reset()
		return
	}

	frame, rest, ok := l.det.detect(idle)
	if !ok {
		return
	}
	l.counters.inc(CntFrames)

	switch {
	case l.cfg.Role.Has(RoleMaster) && l.awaiting && frame[0] == l.cfg.PeerAddress:
		l.handleResponse(frame)
	case l.cfg.Role.Has(RoleSlave) && frame[0] == l.cfg.Address:
		l.handleRequest(frame)
	default:
		l.counters.inc(CntMismatch)
		l.log.Debug("Discarding unexpected frame", "address", frame[0], "func", frame[1])
	}
	l.det.replay(rest)
}

func (l *Link) acceptsAddress(b byte) bool {
	return (l.cfg.Role.Has(RoleMaster) && b == l.cfg.PeerAddress) ||
		(l.cfg.Role.Has(RoleSlave) && b == l.cfg.Address)
}

func (l *Link) SetFastMode(on bool) {
	l.fastMode = on
}

// SetTimeouts overrides the receive and send timeouts. A zero duration
// leaves the corresponding timeout unchanged.
func (l *Link) SetTimeouts(recv, send time.Duration) {
	if ms := millis(recv); ms > 0 {
		l.recvTimeout = ms
	}
	if ms := millis(send); ms > 0 {
		l.sendTimeout = ms
	}
}

// SetBaudRate recomputes both timeouts from the line speed: 4000 bits of
// idle for reception, and the time to move the largest frame both ways plus
// a fixed turnaround for a response.
func (l *Link) SetBaudRate(baud int) {
	if baud <= 0 {
		baud = modbus.DefaultBaudRate
	}
	b := uint32(baud)
	l.recvTimeout = 4000*8/b + 2
	l.sendTimeout = (uint32(modbus.FrameCapacity(l.limit))*2000+7000)*8/b + 5
}

// Timeouts returns the current receive and send timeouts.
func (l *Link) Timeouts() (recv, send time.Duration) {
	return time.Duration(l.recvTimeout) * time.Millisecond, time.Duration(l.sendTimeout) * time.Millisecond
}

// RegisterLimit is the effective per-request register cap.
func (l *Link) RegisterLimit() int {
	return l.limit
}

// Pending is the number of queued master requests, including the one in
// flight.
func (l *Link) Pending() int {
	return l.queue.Len()
}

// Awaiting reports whether the line is reserved for a reply, including the
// reply to an in-flight request that has since been evicted.
func (l *Link) Awaiting() bool {
	return l.awaiting
}

// Counters returns a snapshot of the link statistics. It may be called from
// any goroutine.
func (l *Link) Counters() Counters {
	var c Counters
	for i := range c {
		c[i] = l.counters.ca[i].Load()
	}
	c[CntOverrun] = l.ring.Overruns()
	return c
}
