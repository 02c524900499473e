// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package station

import (
	"time"

	"github.com/ffutop/modbus-link/internal/config"
)

type job struct {
	cfg      config.JobConfig
	next     time.Time
	finished bool

	// pendingUntil holds the job back while its request is queued. Requests
	// dropped by the queue never complete, so the hold expires.
	pendingUntil time.Time
}

func (s *Station) runJobs(now time.Time) {
	for _, j := range s.jobs {
		if j.finished || now.Before(j.next) || now.Before(j.pendingUntil) {
			continue
		}
		s.start(j, now)
	}
}

func (s *Station) start(j *job, now time.Time) {
	_, send := s.link.Timeouts()
	j.pendingUntil = now.Add(send * time.Duration(s.link.Pending()+1))
	if j.cfg.Interval > 0 {
		j.next = now.Add(j.cfg.Interval)
	} else {
		j.finished = true
	}

	name := j.cfg.Name
	switch j.cfg.Kind {
	case "read":
		s.link.ReadRegisters(j.cfg.Address, j.cfg.Count, func(values []uint16) {
			j.pendingUntil = time.Time{}
			r := Result{Job: name, Address: j.cfg.Address, Count: j.cfg.Count}
			if values == nil {
				r.Err = ErrJobFailed
				s.log.Warn("Read job failed", "job", name, "address", r.Address, "count", r.Count)
			} else {
				r.Values = append([]uint16(nil), values...)
				s.log.Info("Read job", "job", name, "address", r.Address, "values", r.Values)
			}
			s.report(r)
		})
	case "write":
		done := func(address, count uint16) {
			j.pendingUntil = time.Time{}
			r := Result{Job: name, Address: address, Count: count}
			if count == 0 {
				r.Address = j.cfg.Address
				r.Err = ErrJobFailed
				s.log.Warn("Write job failed", "job", name, "address", j.cfg.Address)
			} else {
				s.log.Info("Write job", "job", name, "address", address, "count", count)
			}
			s.report(r)
		}
		if len(j.cfg.Values) == 1 {
			s.link.WriteRegister(j.cfg.Address, j.cfg.Values[0], done)
		} else {
			s.link.WriteRegisters(j.cfg.Address, j.cfg.Values, done)
		}
	}
}

func (s *Station) report(r Result) {
	if s.results != nil {
		s.results(r)
	}
}
