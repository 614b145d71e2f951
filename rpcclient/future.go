// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/openmined/syftrpc/lib/clock"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcstore"
	"github.com/openmined/syftrpc/syfturl"
)

// Future tracks one outstanding request, polling the filesystem for
// its terminal state: a response file, a rejection marker, or expiry
// with neither present. Grounded on the original implementation's
// SyftFuture (protocol.py): wait/resolve share the same
// check-then-classify logic, wait adding the sleep loop and timeout.
type Future struct {
	ID           ulid.ULID
	URL          syfturl.SyftURL
	ResponsePath string
	ExpiresAt    time.Time

	clock clock.Clock
	store *rpcstore.Store
}

func newFuture(ds Datasite, rec rpcstore.Future, url syfturl.SyftURL) *Future {
	return &Future{
		ID:           rec.ID,
		URL:          url,
		ResponsePath: rec.ResponsePath,
		ExpiresAt:    rec.ExpiresAt,
		clock:        clockFor(ds),
		store:        ds.Store(),
	}
}

// rejectionPath derives the rejection marker's path from the response
// path: "<dir>/<id>.response" -> "<dir>/<id>.syftrejected.request".
func (f *Future) rejectionPath() string {
	base := strings.TrimSuffix(f.ResponsePath, ".response")
	return base + ".syftrejected.request"
}

// Resolve is the non-blocking variant of [Future.Wait]: it returns
// (response, true) as soon as the future reaches a terminal state, or
// (zero, false) while still pending. Never blocks or sleeps.
func (f *Future) Resolve(ctx context.Context) (rpcproto.Response, bool, error) {
	now := f.clock.Now().UTC()

	if _, statErr := os.Stat(f.ResponsePath); statErr == nil {
		resp, err := rpcproto.ReadResponse(f.ResponsePath)
		if err != nil {
			// The file exists but failed to decode: report it as a
			// terminal error rather than leaving the caller polling
			// forever against a response record that will never parse.
			f.markResolved(ctx)
			return f.synthetic(rpcproto.StatusError, now), true, nil
		}
		f.markResolved(ctx)
		return resp, true, nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return rpcproto.Response{}, false, fmt.Errorf("rpcclient: checking response %s: %w", f.ResponsePath, statErr)
	}

	if _, err := os.Stat(f.rejectionPath()); err == nil {
		f.markResolved(ctx)
		return f.synthetic(rpcproto.StatusRejected, now), true, nil
	}

	if now.After(f.ExpiresAt) {
		f.markResolved(ctx)
		return f.synthetic(rpcproto.StatusExpired, now), true, nil
	}

	return rpcproto.Response{}, false, nil
}

// Wait polls at pollInterval until the future reaches a terminal
// state or timeout elapses. Returns a [SyftTimeoutError] if timeout
// elapses while the future is still pending.
func (f *Future) Wait(ctx context.Context, timeout, pollInterval time.Duration) (rpcproto.Response, error) {
	ticker := f.clock.NewTicker(pollInterval)
	defer ticker.Stop()
	timedOut := f.clock.After(timeout)

	for {
		resp, done, err := f.Resolve(ctx)
		if err != nil {
			return rpcproto.Response{}, err
		}
		if done {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return rpcproto.Response{}, ctx.Err()
		case <-timedOut:
			return rpcproto.Response{}, &SyftTimeoutError{URL: f.URL.String()}
		case <-ticker.C:
		}
	}
}

func (f *Future) synthetic(status rpcproto.StatusCode, now time.Time) rpcproto.Response {
	return rpcproto.Response{
		ID:      f.ID,
		URL:     f.URL,
		Status:  status,
		Created: now,
		Expires: f.ExpiresAt,
	}
}

// markResolved flags the future resolved in the store so
// LookupByFingerprint stops returning it as a cache hit. Errors are
// swallowed: a stale store entry degrades cache efficiency, not
// correctness, and the caller has already obtained a terminal result.
func (f *Future) markResolved(ctx context.Context) {
	_ = f.store.MarkResolved(ctx, f.ID)
}
