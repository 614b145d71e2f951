// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cleanup

import "sync/atomic"

// Stats is a point-in-time snapshot of a Service's sweep counters.
type Stats struct {
	RequestsDeleted  int64
	ResponsesDeleted int64
	MarkersDeleted   int64
	FuturesDropped   int64
	Errors           int64
}

type counters struct {
	requestsDeleted  atomic.Int64
	responsesDeleted atomic.Int64
	markersDeleted   atomic.Int64
	futuresDropped   atomic.Int64
	errors           atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RequestsDeleted:  c.requestsDeleted.Load(),
		ResponsesDeleted: c.responsesDeleted.Load(),
		MarkersDeleted:   c.markersDeleted.Load(),
		FuturesDropped:   c.futuresDropped.Load(),
		Errors:           c.errors.Load(),
	}
}

// Stats returns a snapshot of s's cumulative sweep counters.
func (s *Service) Stats() Stats { return s.counters.snapshot() }
