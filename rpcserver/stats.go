// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import "sync/atomic"

// Stats is a point-in-time snapshot of a [Server]'s dispatch counters,
// returned by [Server.Stats]. Plain counters behind an accessor —
// ambient observability, not a metrics framework.
type Stats struct {
	Dispatched           int64
	DuplicatesSuppressed int64
	DecodeErrors         int64
	NotFound             int64
	Rejected             int64
	Dropped              int64
}

// counters holds the live atomic values a Server mutates during
// dispatch; Stats() reads a consistent-enough snapshot (each field
// loaded independently, matching the teacher's plain-counter style
// rather than a mutex-guarded struct).
type counters struct {
	dispatched           atomic.Int64
	duplicatesSuppressed atomic.Int64
	decodeErrors         atomic.Int64
	notFound             atomic.Int64
	rejected             atomic.Int64
	dropped              atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Dispatched:           c.dispatched.Load(),
		DuplicatesSuppressed: c.duplicatesSuppressed.Load(),
		DecodeErrors:         c.decodeErrors.Load(),
		NotFound:             c.notFound.Load(),
		Rejected:             c.rejected.Load(),
		Dropped:              c.dropped.Load(),
	}
}

// Stats returns a snapshot of the server's dispatch counters.
func (s *Server) Stats() Stats {
	return s.counters.snapshot()
}
