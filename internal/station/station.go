// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/ffutop/modbus-link/internal/config"
	"github.com/ffutop/modbus-link/internal/regbank/model"
	"github.com/ffutop/modbus-link/internal/regbank/persistence"
	"github.com/ffutop/modbus-link/link"
	"github.com/ffutop/modbus-link/transport"
	"github.com/ffutop/modbus-link/transport/serial"
	"github.com/ffutop/modbus-link/transport/tcp"
)

const statsInterval = 10 * time.Second

var (
	ErrJobFailed = errors.New("station: job failed")
	ErrStopped   = errors.New("station: stopped")
)

// Result reports the outcome of one master job run.
type Result struct {
	Job     string
	Address uint16
	Count   uint16
	Values  []uint16 // read jobs only
	Err     error
}

// Option customises a Station.
type Option func(*Station)

// WithLine uses an already open line instead of the configured transport.
func WithLine(line io.ReadWriteCloser) Option {
	return func(s *Station) { s.line = line }
}

// WithResults receives every job result on the poll goroutine.
func WithResults(fn func(Result)) Option {
	return func(s *Station) { s.results = fn }
}

// WithClock drives the engine from c instead of the system clock.
func WithClock(c link.Clock) Option {
	return func(s *Station) { s.clock = c }
}

// Station runs one configured link: its line, its register bank and the
// single goroutine polling the engine.
type Station struct {
	Name string

	cfg     config.LinkConfig
	log     *slog.Logger
	clock   link.Clock
	results func(Result)

	line    io.ReadWriteCloser
	storage persistence.Storage
	bank    *model.Bank
	sink    *transport.WriterSink
	link    *link.Link
	jobs    []*job

	updates chan func()
	done    chan struct{}
}

// New opens the transport and the register bank of cfg and builds its link.
func New(ctx context.Context, cfg config.LinkConfig, opts ...Option) (*Station, error) {
	s := &Station{
		Name:    cfg.Name,
		cfg:     cfg,
		log:     slog.Default().With("link", cfg.Name),
		updates: make(chan func()),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.open(ctx); err != nil {
		return nil, multierr.Append(err, s.closeResources())
	}
	return s, nil
}

func (s *Station) open(ctx context.Context) error {
	if s.line == nil {
		line, err := openLine(ctx, s.cfg.Transport)
		if err != nil {
			return err
		}
		s.line = line
	}

	ecfg := s.cfg.Engine()
	var err error
	if ecfg.Role.Has(link.RoleSlave) {
		p := s.cfg.Registers.Persistence
		s.log.Info("Opening register bank", "persistence", p.Type, "path", p.Path, "size", s.cfg.Registers.Size)
		if s.storage, err = persistence.New(p.Type, p.Path, s.cfg.Registers.Size); err != nil {
			return err
		}
		if s.bank, err = persistence.Open(s.storage); err != nil {
			return fmt.Errorf("failed to load register bank: %w", err)
		}
	}

	s.sink = transport.NewWriterSink(s.line, s.log)
	opts := []link.Option{link.WithLogger(s.log)}
	if s.clock != nil {
		opts = append(opts, link.WithClock(s.clock))
	}
	if s.bank != nil {
		opts = append(opts, link.WithRegisters(s.bank))
	}
	if s.link, err = link.New(ecfg, s.sink, opts...); err != nil {
		return err
	}

	for _, jc := range s.cfg.Jobs {
		s.jobs = append(s.jobs, &job{cfg: jc})
	}
	return nil
}

func openLine(ctx context.Context, cfg config.TransportConfig) (io.ReadWriteCloser, error) {
	switch cfg.Type {
	case "serial":
		return serial.Open(cfg.Serial)
	case "tcp":
		return tcp.Dial(ctx, cfg.Tcp.Address)
	case "tcp-listen":
		return tcp.Listen(cfg.Tcp.Address)
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Type)
	}
}

func (s *Station) closeResources() error {
	var err error
	if s.line != nil {
		err = multierr.Append(err, s.line.Close())
	}
	if s.storage != nil {
		err = multierr.Append(err, s.storage.Close())
	}
	return err
}

// Run pumps the line into the link and polls it until ctx is done or the
// line fails, then closes the line and the storage.
func (s *Station) Run(ctx context.Context) error {
	defer close(s.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recv, send := s.link.Timeouts()
	s.log.Info("Starting link", "role", s.cfg.Role, "mode", s.cfg.Mode,
		"address", s.cfg.Address, "peer", s.cfg.PeerAddress,
		"recv_timeout", recv, "send_timeout", send, "limit", s.link.RegisterLimit())

	var (
		wg      conc.WaitGroup
		pumpErr error
	)
	wg.Go(func() {
		pumpErr = transport.Pump(ctx, s.log, s.line, s.link)
		cancel()
	})

	s.pollLoop(ctx)

	// Closing the line unblocks the pump.
	closeErr := s.closeResources()
	wg.Wait()

	s.log.Info("Link stopped", "counters", s.link.Counters(), "tx_failures", s.sink.Failures())
	return multierr.Combine(pumpErr, closeErr)
}

func (s *Station) pollLoop(ctx context.Context) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	stats := time.NewTicker(statsInterval)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.updates:
			fn()
		case <-stats.C:
			s.log.Debug("Link counters", "counters", s.link.Counters())
		case now := <-ticker.C:
			s.runJobs(now)
			s.link.Poll()
		}
	}
}

// Apply hands the hot-reloadable settings of cfg to the running link:
// fast mode, baud rate and timeouts. Other changes need a restart. It waits
// for the poll loop to take the update.
func (s *Station) Apply(ctx context.Context, cfg config.LinkConfig) error {
	fn := func() {
		if cfg.BaudRate > 0 {
			s.link.SetBaudRate(cfg.BaudRate)
		}
		s.link.SetTimeouts(cfg.ReceiveTimeout, cfg.SendTimeout)
		s.link.SetFastMode(cfg.FastMode)
		recv, send := s.link.Timeouts()
		s.log.Info("Link settings updated", "fast_mode", cfg.FastMode,
			"recv_timeout", recv, "send_timeout", send)
	}
	select {
	case s.updates <- fn:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Counters returns the link statistics.
func (s *Station) Counters() link.Counters {
	return s.link.Counters()
}

// Bank is the register bank served by the slave role, nil otherwise.
func (s *Station) Bank() *model.Bank {
	return s.bank
}
