// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/atomic"
)

// ErrNotConnected is returned by lines that currently have no peer.
var ErrNotConnected = errors.New("transport: not connected")

const readBufferSize = 256

// Pump copies bytes read from r into w until ctx is done or a read or
// write fails.
// Reads returning no data are retried. Unblocking a pending Read is the
// caller's job, usually by closing r once ctx is done. Pump returns nil
// when ctx ended it.
func Pump(ctx context.Context, logger *slog.Logger, r io.Reader, w io.Writer) error {
	if logger == nil {
		logger = slog.Default()
	}
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Debug("RX", "data", hex.EncodeToString(buf[:n]))
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("transport: write: %w", werr)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: read: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// WriterSink transmits engine frames on an io.Writer. Failed writes are
// logged and counted, the engine is never told.
type WriterSink struct {
	w        io.Writer
	log      *slog.Logger
	failures atomic.Uint64
}

func NewWriterSink(w io.Writer, logger *slog.Logger) *WriterSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriterSink{w: w, log: logger}
}

func (s *WriterSink) Send(frame []byte) {
	if s.log.Enabled(context.Background(), slog.LevelDebug) {
		s.log.Debug("TX", "data", hex.EncodeToString(frame))
	}
	if _, err := s.w.Write(frame); err != nil {
		s.failures.Inc()
		if errors.Is(err, ErrNotConnected) {
			s.log.Debug("Dropping frame, no peer connected")
			return
		}
		s.log.Warn("Failed to write frame", "err", err)
	}
}

// Failures is the number of frames that could not be written.
func (s *WriterSink) Failures() uint64 {
	return s.failures.Load()
}
