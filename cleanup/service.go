// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/openmined/syftrpc/lib/clock"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcstore"
	"github.com/openmined/syftrpc/syfturl"
)

// Datasite is the narrow view a Service needs: its own identity and
// workspace root, used to compute the RPC subtree to sweep.
type Datasite interface {
	Identity() string
	WorkspaceRoot() syfturl.AbsolutePath
}

// Config configures a Service.
type Config struct {
	// AppName identifies the application subtree to sweep:
	// datasites/<identity>/app_data/<AppName>/rpc.
	AppName string

	// Interval is how often the sweep runs. Default: 1m.
	Interval time.Duration

	// Retention is added to a record's expiry before it becomes
	// eligible for deletion: a record is removed once
	// now > expires+retention. Default: 0 (delete as soon as expired).
	Retention time.Duration

	// Store, if non-nil, has its expired future rows pruned on the
	// same cutoff during every sweep, keeping the local future index
	// in step with the response files it tracks. Optional: a
	// datasite that only receives, never sends, has no future store.
	Store *rpcstore.Store

	// Logger receives structured sweep diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// Clock abstracts time for the sweep ticker. Defaults to
	// clock.Real() if nil.
	Clock clock.Clock
}

// Service periodically evicts expired request/response records,
// orphan rejection markers, and (optionally) stale future-store rows
// from one app's RPC subtree.
type Service struct {
	ds        Datasite
	root      syfturl.AbsolutePath
	interval  time.Duration
	retention time.Duration
	store     *rpcstore.Store
	logger    *slog.Logger
	clk       clock.Clock

	counters counters

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New constructs a Service for ds, not yet started.
func New(ds Datasite, cfg Config) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Service{
		ds:        ds,
		root:      ds.WorkspaceRoot().Join("datasites", ds.Identity(), "app_data", cfg.AppName, "rpc"),
		interval:  cfg.Interval,
		retention: cfg.Retention,
		store:     cfg.Store,
		logger:    logger,
		clk:       clk,
	}
}

// IsRunning reports whether the sweep loop is active.
func (s *Service) IsRunning() bool { return s.running.Load() }

// Start runs one sweep synchronously (so a freshly started service
// doesn't wait a full interval before its first pass), then spawns
// the ticking background loop.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("cleanup: Start called while already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.sweep()

	s.wg.Add(1)
	go s.loop()
	s.running.Store(true)
	return nil
}

// Stop cancels the sweep loop and waits for it to exit, bounded by
// ctx.
func (s *Service) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.running.Store(false)
		return nil
	case <-ctx.Done():
		s.running.Store(false)
		return ctx.Err()
	}
}

func (s *Service) loop() {
	defer s.wg.Done()
	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep walks the RPC subtree once, deleting every request/response
// record whose expiry (plus retention) has passed and every rejection
// marker older than retention, then (if a store is configured) prunes
// the future index on the same cutoff. Individual file errors are
// logged and counted; they never abort the sweep.
func (s *Service) sweep() {
	now := s.clk.Now().UTC()
	cutoff := now.Add(-s.retention)

	var requestsDeleted, responsesDeleted, markersDeleted, sweepErrors int64

	err := filepath.WalkDir(s.root.String(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			sweepErrors++
			return nil // keep walking; one bad entry shouldn't abort the sweep
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".syftrejected.request"):
			info, ierr := d.Info()
			if ierr != nil {
				sweepErrors++
				return nil
			}
			if info.ModTime().Before(cutoff) {
				if removeFile(path) {
					markersDeleted++
				} else {
					sweepErrors++
				}
			}
		case strings.HasSuffix(name, ".request"):
			req, rerr := rpcproto.ReadRequest(path)
			if rerr != nil {
				s.logger.Warn("cleanup: decoding request", "path", path, "error", rerr)
				sweepErrors++
				return nil
			}
			if req.Expires.Before(cutoff) {
				if removeFile(path) {
					requestsDeleted++
				} else {
					sweepErrors++
				}
			}
		case strings.HasSuffix(name, ".response"):
			resp, rerr := rpcproto.ReadResponse(path)
			if rerr != nil {
				s.logger.Warn("cleanup: decoding response", "path", path, "error", rerr)
				sweepErrors++
				return nil
			}
			if resp.Expires.Before(cutoff) {
				if removeFile(path) {
					responsesDeleted++
				} else {
					sweepErrors++
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("cleanup: walking RPC tree", "path", s.root, "error", err)
		sweepErrors++
	}

	var futuresDropped int64
	if s.store != nil {
		n, serr := s.store.DropExpiredBefore(s.ctx, cutoff)
		if serr != nil {
			s.logger.Warn("cleanup: pruning future store", "error", serr)
			sweepErrors++
		} else {
			futuresDropped = int64(n)
		}
	}

	s.counters.requestsDeleted.Add(requestsDeleted)
	s.counters.responsesDeleted.Add(responsesDeleted)
	s.counters.markersDeleted.Add(markersDeleted)
	s.counters.futuresDropped.Add(futuresDropped)
	s.counters.errors.Add(sweepErrors)

	total := requestsDeleted + responsesDeleted + markersDeleted
	s.logger.Info("cleanup: sweep complete",
		"removed", humanize.Comma(total),
		"requests_deleted", requestsDeleted,
		"responses_deleted", responsesDeleted,
		"markers_deleted", markersDeleted,
		"futures_dropped", futuresDropped,
		"errors", sweepErrors,
	)
}

// removeFile deletes path, treating "already gone" as success — a
// concurrent sweep or a racing event-server dispatch may have removed
// it first.
func removeFile(path string) bool {
	err := os.Remove(path)
	return err == nil || errors.Is(err, fs.ErrNotExist)
}
