// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openmined/syftrpc/lib/clock"
	"github.com/openmined/syftrpc/permissions"
	"github.com/openmined/syftrpc/syfturl"
)

// Datasite is the narrow view of a host application a Server needs:
// its own identity (for stamping responses and owner-override
// permission checks), the shared workspace root, and the permissions
// engine used to authorize responses. Deliberately smaller than
// rpcclient.Datasite — a concrete type satisfying both works for
// either package without either importing the other.
type Datasite interface {
	Identity() string
	WorkspaceRoot() syfturl.AbsolutePath
	Permissions() *permissions.Engine
}

// Config configures a Server.
type Config struct {
	// AppName determines the RPC subtree the server watches:
	// datasites/<identity>/app_data/<AppName>/rpc.
	AppName string

	// Workers is the worker pool size. Must be >= 1.
	Workers int

	// IntakeCapacity bounds the dispatch queue; events beyond this are
	// dropped and counted in Stats.Dropped.
	IntakeCapacity int

	// PollInterval is the full-tree rescan interval used once the
	// filesystem watcher has degraded (see Start's watcher-restart
	// policy).
	PollInterval time.Duration

	// DebugMode controls whether a handler error's response body
	// carries full diagnostic detail or a generic message.
	DebugMode bool

	// Logger receives structured server diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// Clock abstracts time for the poll-degradation ticker. Defaults
	// to clock.Real() if nil.
	Clock clock.Clock
}

// Server watches one app's RPC directory tree and dispatches incoming
// requests to registered handlers.
type Server struct {
	ds       Datasite
	appName  string
	appRoot  syfturl.AbsolutePath
	workers  int
	capacity int
	poll     time.Duration
	debug    bool
	logger   *slog.Logger
	clk      clock.Clock

	routes    []*route
	nextIndex int

	queue    chan string
	watcher  *fsnotify.Watcher
	counters counters

	ctx       context.Context
	cancel    context.CancelFunc
	workerWg  sync.WaitGroup
	watcherWg sync.WaitGroup
	running   atomic.Bool
}

// New constructs a Server for ds, not yet started. Register routes
// with Handle before calling Start.
func New(ds Datasite, cfg Config) *Server {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.IntakeCapacity < 1 {
		cfg.IntakeCapacity = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Server{
		ds:       ds,
		appName:  cfg.AppName,
		appRoot:  ds.WorkspaceRoot().Join("datasites", ds.Identity(), "app_data", cfg.AppName, "rpc"),
		workers:  cfg.Workers,
		capacity: cfg.IntakeCapacity,
		poll:     cfg.PollInterval,
		debug:    cfg.DebugMode,
		logger:   logger,
		clk:      clk,
	}
}

// Handle registers handler for pattern. Must be called before Start;
// panics if called afterward or if pattern is already registered.
func (s *Server) Handle(pattern string, handler Handler) {
	if s.running.Load() {
		panic("rpcserver: Handle called after Start for pattern " + pattern)
	}
	for _, r := range s.routes {
		if r.pattern == pattern {
			panic("rpcserver: duplicate route pattern " + pattern)
		}
	}
	s.routes = append(s.routes, &route{
		pattern:  pattern,
		segments: compilePattern(pattern),
		handler:  handler,
		index:    s.nextIndex,
	})
	s.nextIndex++
}

// IsRunning reports whether the server is currently dispatching.
func (s *Server) IsRunning() bool { return s.running.Load() }

// Start creates the app's RPC root if absent, publishes the route
// schema, performs a startup scan of any request left unprocessed from
// a prior run, then spawns the filesystem watcher and worker pool.
// Start returns once the watcher is listening; it does not block for
// the server's lifetime — call Stop to shut down.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("rpcserver: Start called while already running")
	}

	sortRoutes(s.routes)

	if err := os.MkdirAll(s.appRoot.String(), 0o755); err != nil {
		return fmt.Errorf("rpcserver: creating RPC root %s: %w", s.appRoot, err)
	}
	if err := s.publishSchema(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rpcserver: creating filesystem watcher: %w", err)
	}
	if err := addRecursive(watcher, s.appRoot.String()); err != nil {
		watcher.Close()
		return fmt.Errorf("rpcserver: watching %s: %w", s.appRoot, err)
	}
	s.watcher = watcher

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.queue = make(chan string, s.capacity)

	s.scanTree() // process anything that arrived while the server was down

	for i := 0; i < s.workers; i++ {
		s.workerWg.Add(1)
		go s.workerLoop()
	}
	s.watcherWg.Add(1)
	go s.watchLoop()

	s.running.Store(true)
	return nil
}

// Stop first cancels the server's internal context, which stops the
// filesystem watcher and is seen at once by every handler still
// running; handlers get no grace period before that cancellation.
// It then waits for the watcher goroutine to exit, closes the dispatch
// queue, and waits for workers to drain it, all bounded by ctx.
// Closing the queue only after the watcher goroutine has fully exited
// is what makes this safe — the watcher is the queue's only producer,
// so no send can race a close. If ctx is cancelled or expires before
// a stage completes, Stop returns ctx's error without waiting further.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.cancel()

	watcherDone := make(chan struct{})
	go func() {
		s.watcherWg.Wait()
		close(watcherDone)
	}()
	select {
	case <-watcherDone:
	case <-ctx.Done():
		s.running.Store(false)
		return ctx.Err()
	}

	close(s.queue)

	workersDone := make(chan struct{})
	go func() {
		s.workerWg.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
		s.running.Store(false)
		return nil
	case <-ctx.Done():
		s.running.Store(false)
		return ctx.Err()
	}
}

func (s *Server) workerLoop() {
	defer s.workerWg.Done()
	for reqPath := range s.queue {
		s.dispatch(s.ctx, reqPath)
	}
}

// enqueue offers reqPath to the dispatch queue without blocking;
// overflow is dropped and counted, the backpressure policy named in
// spec for a bounded intake queue.
func (s *Server) enqueue(reqPath string) {
	select {
	case s.queue <- reqPath:
	default:
		s.counters.dropped.Add(1)
		s.logger.Warn("dispatch queue full, dropping request", "path", reqPath)
	}
}

// isCandidateRequest reports whether name (a base file name) is a
// request file eligible for dispatch: it carries the ".request"
// suffix but is not itself a rejection marker.
func isCandidateRequest(name string) bool {
	return strings.HasSuffix(name, ".request") && !strings.HasSuffix(name, ".syftrejected.request")
}

// hasSibling reports whether path exists, swallowing stat errors as
// "absent" (a racing delete between stat and dispatch is rare and
// handled by WriteResponse's CreateOnce semantics regardless).
func hasSibling(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// scanTree walks the app's RPC subtree, enqueuing every request file
// that has no sibling response or rejection marker yet — both at
// startup (recovering work left over from a prior run) and whenever
// the watcher has degraded into polling.
func (s *Server) scanTree() {
	err := filepath.WalkDir(s.appRoot.String(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if d.IsDir() || !isCandidateRequest(d.Name()) {
			return nil
		}
		responsePath := strings.TrimSuffix(path, ".request") + ".response"
		rejectionPath := strings.TrimSuffix(path, ".request") + ".syftrejected.request"
		if hasSibling(responsePath) || hasSibling(rejectionPath) {
			return nil
		}
		s.enqueue(path)
		return nil
	})
	if err != nil {
		s.logger.Error("scanning RPC tree", "path", s.appRoot, "error", err)
	}
}

// addRecursive adds root and every directory beneath it to watcher.
// fsnotify does not watch subtrees recursively on its own; new
// subdirectories (one per sender, created lazily) are added as they
// appear in watchLoop.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// watchLoop is the dedicated filesystem-watching goroutine: it only
// ever classifies events and enqueues candidates, never runs a
// handler body itself. On a watcher error it attempts one restart; a
// second failure falls back to poll-driven rescanning for the rest of
// the server's lifetime.
func (s *Server) watchLoop() {
	defer s.watcherWg.Done()

	restarted := false
	for {
		select {
		case <-s.ctx.Done():
			s.watcher.Close()
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("filesystem watcher error", "error", err)
			if !restarted {
				restarted = true
				if newWatcher, rerr := newRestartedWatcher(s.appRoot.String()); rerr == nil {
					s.watcher.Close()
					s.watcher = newWatcher
					continue
				}
				s.logger.Error("filesystem watcher restart failed", "error", err)
			}
			s.logger.Error("filesystem watcher degraded, falling back to polling", "poll_interval", s.poll)
			s.watcher.Close()
			s.pollLoop()
			return
		}
	}
}

func newRestartedWatcher(root string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// pollLoop replaces the filesystem watcher once it has degraded:
// a full-tree rescan on every tick instead of event-driven dispatch.
func (s *Server) pollLoop() {
	ticker := s.clk.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.scanTree()
		}
	}
}

// handleEvent classifies one fsnotify event: newly created
// directories (one per sender, created lazily) are added to the
// watcher so their contents are seen too; candidate request files are
// enqueued. Both Create and Rename-into-place are handled, since the
// sync layer may either drop a finished file in place or land a temp
// file and rename it.
func (s *Server) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		// Subdirectories and request files may already exist inside a
		// new directory by the time it is watched, so watch its whole
		// subtree and enqueue any request already present.
		if err := addRecursive(s.watcher, event.Name); err != nil {
			s.logger.Error("watching new directory", "path", event.Name, "error", err)
		}
		_ = filepath.WalkDir(event.Name, func(path string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && isCandidateRequest(d.Name()) {
				s.enqueue(path)
			}
			return nil
		})
		return
	}
	name := filepath.Base(event.Name)
	if !isCandidateRequest(name) {
		return
	}
	s.enqueue(event.Name)
}
