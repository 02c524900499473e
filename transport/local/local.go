// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package local

import (
	"sync"

	"github.com/ffutop/modbus-link/link"
)

// Ingester accepts bytes received from the line.
type Ingester interface {
	Ingest(b byte)
}

// Wire is a lossless in-process cable: every byte sent is ingested by To
// before Send returns.
type Wire struct {
	To Ingester
}

func (w Wire) Send(frame []byte) {
	for _, b := range frame {
		w.To.Ingest(b)
	}
}

// Tap records a copy of every frame and passes it on to Next, if set.
type Tap struct {
	Next link.Sink

	mu     sync.Mutex
	frames [][]byte
}

func (t *Tap) Send(frame []byte) {
	t.mu.Lock()
	t.frames = append(t.frames, append([]byte(nil), frame...))
	t.mu.Unlock()
	if t.Next != nil {
		t.Next.Send(frame)
	}
}

// Frames returns the recorded frames.
func (t *Tap) Frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.frames...)
}

func (t *Tap) Reset() {
	t.mu.Lock()
	t.frames = nil
	t.mu.Unlock()
}
