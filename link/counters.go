// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"log/slog"

	"go.uber.org/atomic"
)

// Counter identifies one of the link statistics.
type Counter int

const (
	CntFrames       Counter = iota // validated frames
	CntChecksum                    // CRC or LRC failures
	CntNoise                       // bytes or frames discarded before validation
	CntMismatch                    // valid frames matching no pending request
	CntTimeout                     // master requests failed on send timeout
	CntEvictOldest                 // requests shed by the EvictOldest policy
	CntKeepNewest                  // requests shed by the KeepNewest policy
	CntRejected                    // write requests refused by admission control
	CntOverrun                     // bytes retracted by a full ingest ring
	CntSent                        // master requests transmitted
	CntCompleted                   // master requests answered
	CntServed                      // slave requests answered

	numCounters
)

var counterNames = [numCounters]string{
	CntFrames:      "frames",
	CntChecksum:    "checksum_errors",
	CntNoise:       "noise",
	CntMismatch:    "mismatches",
	CntTimeout:     "timeouts",
	CntEvictOldest: "evicted_oldest",
	CntKeepNewest:  "dropped_keep_newest",
	CntRejected:    "rejected",
	CntOverrun:     "overruns",
	CntSent:        "sent",
	CntCompleted:   "completed",
	CntServed:      "served",
}

func (c Counter) String() string {
	if c < 0 || c >= numCounters {
		return "unknown"
	}
	return counterNames[c]
}

type counters struct {
	ca [numCounters]atomic.Uint64
}

func (c *counters) inc(cnt Counter) {
	c.ca[cnt].Inc()
}

func (c *counters) add(cnt Counter, n int) {
	c.ca[cnt].Add(uint64(n))
}

// Counters is a snapshot of the link statistics.
type Counters [numCounters]uint64

func (c Counters) Get(cnt Counter) uint64 {
	if cnt < 0 || cnt >= numCounters {
		return 0
	}
	return c[cnt]
}

// LogValue renders the snapshot as a slog group.
func (c Counters) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, numCounters)
	for i := Counter(0); i < numCounters; i++ {
		attrs = append(attrs, slog.Uint64(i.String(), c[i]))
	}
	return slog.GroupValue(attrs...)
}
