// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package tcp carries a raw serial byte stream over TCP, the way serial
// device servers expose their ports. Frames pass unchanged; this is not
// Modbus TCP.
package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/ffutop/modbus-link/transport"
)

const dialTimeout = 10 * time.Second

// Dial connects to a device server.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	slog.Info("Connected to line", "addr", address)
	return conn, nil
}

// Line is a listening endpoint that carries one peer at a time. A newly
// accepted connection replaces the current peer. Reads block until a peer
// is connected; writes without a peer fail with transport.ErrNotConnected.
type Line struct {
	listener net.Listener

	mu    sync.Mutex
	conn  net.Conn
	ready chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	wg        conc.WaitGroup
}

// Listen starts accepting peers on address.
func Listen(address string) (*Line, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	slog.Info("Line listening", "addr", listener.Addr())

	l := &Line{
		listener: listener,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	l.wg.Go(l.acceptLoop)
	return l, nil
}

// Addr is the listening address.
func (l *Line) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *Line) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				slog.Error("Failed to accept connection", "err", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		slog.Info("Line peer connected", "addr", conn.RemoteAddr())

		l.mu.Lock()
		old := l.conn
		l.conn = conn
		l.mu.Unlock()
		if old != nil {
			slog.Info("Line peer replaced", "addr", old.RemoteAddr())
			old.Close()
		}

		select {
		case l.ready <- struct{}{}:
		default:
		}
	}
}

func (l *Line) current() net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *Line) drop(conn net.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()
	conn.Close()
}

// Read reads from the current peer, waiting for one if necessary. A peer
// that fails is dropped and the read continues with the next one.
func (l *Line) Read(p []byte) (int, error) {
	for {
		conn := l.current()
		if conn == nil {
			select {
			case <-l.ready:
				continue
			case <-l.done:
				return 0, net.ErrClosed
			}
		}

		n, err := conn.Read(p)
		if err != nil {
			slog.Info("Line peer disconnected", "addr", conn.RemoteAddr(), "err", err)
			l.drop(conn)
		}
		if n > 0 {
			return n, nil
		}
		select {
		case <-l.done:
			return 0, net.ErrClosed
		default:
		}
	}
}

func (l *Line) Write(p []byte) (int, error) {
	conn := l.current()
	if conn == nil {
		return 0, transport.ErrNotConnected
	}
	n, err := conn.Write(p)
	if err != nil {
		l.drop(conn)
	}
	return n, err
}

// Close stops accepting and disconnects the current peer.
func (l *Line) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.listener.Close()

		l.mu.Lock()
		conn := l.conn
		l.conn = nil
		l.mu.Unlock()
		if conn != nil {
			err = multierr.Append(err, conn.Close())
		}
		l.wg.Wait()
	})
	return err
}
