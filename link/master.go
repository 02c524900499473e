// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"encoding/binary"

	"github.com/ffutop/modbus-link/modbus"
)

// ReadRegisters queues a read holding registers request to the peer and
// returns its sequence index. Values beyond the register limit are not
// delivered.
func (l *Link) ReadRegisters(address, count uint16, done ReadHandler) uint8 {
	r := l.enqueue()
	r.funcCode = modbus.FuncCodeReadHoldingRegisters
	r.address = address
	r.count = count
	r.done = readCompletion(done)
	size, err := l.enc.readRequest(r.frame, l.cfg.PeerAddress, address, count)
	return l.commit(r, size, err)
}

// WriteRegister queues a write single register request to the peer and
// returns its sequence index. On success the handler receives (address, 1).
func (l *Link) WriteRegister(address, value uint16, done WriteHandler) uint8 {
	r := l.enqueue()
	r.funcCode = modbus.FuncCodeWriteSingleRegister
	r.address = address
	r.count = 1
	r.value = value
	r.done = writeCompletion(done)
	size, err := l.enc.writeSingle(r.frame, l.cfg.PeerAddress, address, value)
	return l.commit(r, size, err)
}

// WriteRegisters queues a write multiple registers request to the peer and
// returns its sequence index. A request above the register limit is never
// queued: the handler is called with (address, 0) before WriteRegisters
// returns 0. A rejection evicts nothing and consumes no sequence index.
func (l *Link) WriteRegisters(address uint16, values []uint16, done WriteHandler) uint8 {
	if len(values) > l.limit {
		l.counters.inc(CntRejected)
		l.log.Debug("Rejecting write", "address", address, "count", len(values), "limit", l.limit)
		if done != nil {
			done(address, 0)
		}
		return 0
	}

	r := l.enqueue()
	r.funcCode = modbus.FuncCodeWriteMultipleRegisters
	r.address = address
	r.count = uint16(len(values))
	r.done = writeCompletion(done)
	size, err := l.enc.writeMultipleRequest(r.frame, l.cfg.PeerAddress, address, values)
	if err != nil {
		l.queue.unpush()
		l.counters.inc(CntRejected)
		l.log.Debug("Rejecting write", "address", address, "count", len(values), "err", err)
		if done != nil {
			done(address, 0)
		}
		return 0
	}
	return l.commit(r, size, nil)
}

func (l *Link) enqueue() *request {
	inFlight := l.awaiting && !l.orphaned && l.queue.full()
	respLen := 0
	if inFlight {
		respLen = l.queue.front().respLen
	}
	r, evicted := l.queue.push(l.clock.Millis())
	if evicted {
		l.counters.inc(CntEvictOldest)
		if inFlight {
			l.orphaned = true
			l.orphanLen = respLen
		}
	}
	return r
}

func (l *Link) commit(r *request, size int, err error) uint8 {
	if err != nil {
		// Cannot happen for fixed size requests with a valid limit.
		l.queue.unpush()
		l.log.Warn("Encoding request failed", "func", r.funcCode, "err", err)
		return 0
	}
	r.size = size
	r.respLen = l.enc.responseLength(r.funcCode, r.count)
	return r.index
}

// transmit times out the request in flight and sends the next one.
func (l *Link) transmit(now uint32) {
	if l.awaiting {
		if now-l.lastSent < l.sendTimeout {
			return
		}
		l.awaiting = false
		if l.orphaned {
			// Its request is gone, so there is no callback to fail.
			l.orphaned = false
			l.counters.inc(CntTimeout)
			l.log.Debug("Evicted request timed out")
		} else if head := l.queue.front(); head != nil {
			done := head.done
			l.queue.pop()
			l.counters.inc(CntTimeout)
			l.log.Debug("Request timed out", "func", head.funcCode, "address", head.address)
			if done != nil {
				done.fail()
			}
		}
	}

	if l.queue.Len() == 0 {
		return
	}
	if l.fastMode {
		if n := l.queue.keepNewest(); n > 0 {
			l.counters.add(CntKeepNewest, n)
		}
	}
	head := l.queue.front()
	l.awaiting = true
	l.lastSent = now
	l.counters.inc(CntSent)
	l.sink.Send(head.encoded())
}

// handleResponse matches a frame from the peer against the request in
// flight. A frame that does not answer it leaves the request waiting.
func (l *Link) handleResponse(frame []byte) {
	if l.orphaned {
		// The reply to an evicted request frees the line but completes
		// nothing.
		l.orphaned = false
		l.awaiting = false
		l.counters.inc(CntMismatch)
		l.log.Debug("Discarding reply to evicted request", "func", frame[1], "len", len(frame))
		return
	}
	head := l.queue.front()
	if head == nil || frame[1] != head.funcCode {
		l.mismatch(frame)
		return
	}

	var (
		values  []uint16
		address uint16
		count   uint16
	)
	switch head.funcCode {
	case modbus.FuncCodeReadHoldingRegisters:
		if len(frame) < 3 {
			l.mismatch(frame)
			return
		}
		byteCount := int(frame[2])
		if byteCount%2 != 0 || byteCount != 2*int(head.count) || len(frame) < 3+byteCount {
			l.mismatch(frame)
			return
		}
		n := byteCount / 2
		if n > l.limit {
			n = l.limit
		}
		for i := 0; i < n; i++ {
			l.cache[i] = binary.BigEndian.Uint16(frame[3+2*i:])
		}
		values = l.cache[:n]

	case modbus.FuncCodeWriteSingleRegister, modbus.FuncCodeWriteMultipleRegisters:
		if len(frame) < 6 {
			l.mismatch(frame)
			return
		}
		address = binary.BigEndian.Uint16(frame[2:])
		echoed := binary.BigEndian.Uint16(frame[4:])
		want := head.count
		if head.funcCode == modbus.FuncCodeWriteSingleRegister {
			want = head.value
		}
		if address != head.address || echoed != want {
			l.mismatch(frame)
			return
		}
		count = head.count

	default:
		l.mismatch(frame)
		return
	}

	l.log.Debug("Request completed", "index", head.index, "func", head.funcCode,
		"address", head.address, "latency_ms", l.clock.Millis()-head.queuedAt)
	done := head.done
	l.queue.pop()
	l.awaiting = false
	l.counters.inc(CntCompleted)

	switch done := done.(type) {
	case readCompletion:
		if done != nil {
			done(values)
		}
	case writeCompletion:
		if done != nil {
			done(address, count)
		}
	}
}

func (l *Link) mismatch(frame []byte) {
	l.counters.inc(CntMismatch)
	l.log.Debug("Discarding response", "func", frame[1], "len", len(frame))
}
