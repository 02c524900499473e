// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

// ReadHandler receives the registers of a completed read. A nil slice
// reports a timeout. The slice is only valid during the call.
type ReadHandler func(values []uint16)

// WriteHandler receives the echoed start address and register count of a
// completed write. (0, 0) reports a timeout, (address, 0) a rejected request.
type WriteHandler func(address, count uint16)

// completion is the callback attached to a pending request.
type completion interface {
	fail()
}

type readCompletion ReadHandler

func (c readCompletion) fail() {
	if c != nil {
		c(nil)
	}
}

type writeCompletion WriteHandler

func (c writeCompletion) fail() {
	if c != nil {
		c(0, 0)
	}
}

// DropPolicy names a way the command queue sheds requests without invoking
// their callbacks.
type DropPolicy uint8

const (
	// EvictOldest removes the oldest request to make room for a new one
	// when the queue is full.
	EvictOldest DropPolicy = iota
	// KeepNewest collapses the queue to its most recent request before a
	// transmission in fast mode.
	KeepNewest
)

func (p DropPolicy) String() string {
	switch p {
	case EvictOldest:
		return "evict-oldest"
	case KeepNewest:
		return "keep-newest"
	default:
		return "unknown"
	}
}

// request is one pending master operation with its encoded frame.
type request struct {
	index    uint8
	funcCode byte
	address  uint16
	count    uint16
	value    uint16 // write single data

	frame    []byte // preallocated, len == frame capacity
	size     int
	respLen  int
	queuedAt uint32
	done     completion
}

func (r *request) encoded() []byte {
	return r.frame[:r.size]
}

// commandQueue is a bounded FIFO of requests stored in a fixed ring of slots.
// Slots keep their frame buffers for the lifetime of the queue.
type commandQueue struct {
	slots     []request
	head      int
	n         int
	nextIndex uint8
}

func newCommandQueue(size, frameCap int) *commandQueue {
	q := &commandQueue{
		slots:     make([]request, size),
		nextIndex: 1,
	}
	for i := range q.slots {
		q.slots[i].frame = make([]byte, frameCap)
	}
	return q
}

func (q *commandQueue) Len() int {
	return q.n
}

func (q *commandQueue) full() bool {
	return q.n == len(q.slots)
}

func (q *commandQueue) slot(i int) *request {
	return &q.slots[(q.head+i)%len(q.slots)]
}

// push reserves a slot at the tail and assigns it the next sequence index.
// When the queue is full the oldest request is evicted first.
func (q *commandQueue) push(now uint32) (r *request, evicted bool) {
	if q.n == len(q.slots) {
		q.pop()
		evicted = true
	}
	r = q.slot(q.n)
	q.n++

	frame := r.frame
	*r = request{
		index:    q.nextIndex,
		frame:    frame,
		queuedAt: now,
	}
	q.nextIndex++
	if q.nextIndex == 0 {
		q.nextIndex = 1
	}
	return r, evicted
}

// unpush removes the request just returned by push.
func (q *commandQueue) unpush() {
	if q.n == 0 {
		return
	}
	q.n--
	q.slot(q.n).done = nil
}

func (q *commandQueue) front() *request {
	if q.n == 0 {
		return nil
	}
	return q.slot(0)
}

func (q *commandQueue) pop() {
	if q.n == 0 {
		return
	}
	q.slot(0).done = nil
	q.head = (q.head + 1) % len(q.slots)
	q.n--
}

// keepNewest drops everything but the most recent request and returns how
// many were dropped.
func (q *commandQueue) keepNewest() int {
	dropped := q.n - 1
	if dropped <= 0 {
		return 0
	}
	for i := 0; i < dropped; i++ {
		q.pop()
	}
	return dropped
}
