// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// chunkReader returns one chunk per Read and then err.
type chunkReader struct {
	chunks [][]byte
	err    error
	before func()
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.before != nil {
			r.before()
		}
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestPump(t *testing.T) {
	r := &chunkReader{
		chunks: [][]byte{{0x01, 0x03}, {}, {0x02, 0xAA, 0xBB}},
		err:    io.EOF,
	}
	var got bytes.Buffer

	err := Pump(context.Background(), nil, r, &got)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Pump() error = %v, want io.EOF", err)
	}
	if diff := cmp.Diff([]byte{0x01, 0x03, 0x02, 0xAA, 0xBB}, got.Bytes()); diff != "" {
		t.Errorf("pumped bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestPump_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &chunkReader{
		chunks: [][]byte{{0x3A}},
		err:    errors.New("use of closed file"),
		before: cancel,
	}
	var got bytes.Buffer

	if err := Pump(ctx, nil, r, &got); err != nil {
		t.Errorf("Pump() error = %v, want nil", err)
	}
	if got.Len() != 1 {
		t.Errorf("pumped %d bytes, want 1", got.Len())
	}
}

func TestPump_WriteError(t *testing.T) {
	errFull := errors.New("ring full")
	r := &chunkReader{
		chunks: [][]byte{{0x01}, {0x02}},
		err:    io.EOF,
	}

	err := Pump(context.Background(), nil, r, failingWriter{err: errFull})
	if !errors.Is(err, errFull) {
		t.Errorf("Pump() error = %v, want %v", err, errFull)
	}
	if len(r.chunks) != 1 {
		t.Errorf("Pump() kept reading after the write failed, %d chunks left", len(r.chunks))
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, nil)
	s.Send([]byte{0x01, 0x06})
	s.Send([]byte{0x00, 0x0A})

	if diff := cmp.Diff([]byte{0x01, 0x06, 0x00, 0x0A}, buf.Bytes()); diff != "" {
		t.Errorf("written bytes mismatch (-want +got):\n%s", diff)
	}
	if s.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", s.Failures())
	}
}

func TestWriterSink_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "io error", err: io.ErrClosedPipe},
		{name: "no peer", err: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWriterSink(failingWriter{err: tt.err}, nil)
			s.Send([]byte{0x01})
			s.Send([]byte{0x02})
			if s.Failures() != 2 {
				t.Errorf("Failures() = %d, want 2", s.Failures())
			}
		})
	}
}
