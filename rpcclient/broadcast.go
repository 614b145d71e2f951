// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient

import (
	"context"
	"sync"
	"time"

	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/syfturl"
)

// BulkFuture aggregates the outcome of a [Broadcast] call: one Future
// per target that sent successfully, and one error per target whose
// send itself failed (a permission error, a malformed URL, and so on —
// distinct from a target's handler later returning an error response).
type BulkFuture struct {
	Futures map[syfturl.SyftURL]*Future
	Errors  map[syfturl.SyftURL]error
}

// Broadcast sends the same request to every target URL in parallel,
// one goroutine per target (mirroring the teacher's
// accept-one-goroutine-per-connection shape), collecting per-target
// errors onto the returned BulkFuture rather than aborting the rest.
func Broadcast(ctx context.Context, ds Datasite, targets []syfturl.SyftURL, method rpcproto.Method, opts SendOptions) *BulkFuture {
	bulk := &BulkFuture{
		Futures: make(map[syfturl.SyftURL]*Future, len(targets)),
		Errors:  make(map[syfturl.SyftURL]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target syfturl.SyftURL) {
			defer wg.Done()
			future, err := Send(ctx, ds, target, method, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				bulk.Errors[target] = err
				return
			}
			bulk.Futures[target] = future
		}(target)
	}
	wg.Wait()

	return bulk
}

// CompletedResult categorizes one future's terminal classification
// within a [GatherCompleted] call.
type CompletedResult struct {
	URL      syfturl.SyftURL
	Response rpcproto.Response
	Err      error
}

// GatherCompleted runs the poll loop over every future in bulk
// concurrently, returning as soon as all have reached a terminal state
// or timeout elapses. Successes holds futures whose response carries
// an ordinary (non-synthetic, non-error) status; Failures holds
// futures that resolved to a synthetic status (expired, rejected,
// not-found, error) or to a status outside 2xx/3xx, plus one entry per
// target whose send failed; Pending holds futures still outstanding
// when timeout hit.
func (bulk *BulkFuture) GatherCompleted(ctx context.Context, timeout, pollInterval time.Duration) (successes, failures, pending []CompletedResult) {
	type outcome struct {
		url    syfturl.SyftURL
		result CompletedResult
		state  string // "success", "failure", "pending"
	}

	results := make(chan outcome, len(bulk.Futures))
	var wg sync.WaitGroup

	for url, future := range bulk.Futures {
		wg.Add(1)
		go func(url syfturl.SyftURL, future *Future) {
			defer wg.Done()
			resp, err := future.Wait(ctx, timeout, pollInterval)
			switch {
			case err != nil:
				results <- outcome{url: url, result: CompletedResult{URL: url, Err: err}, state: "pending"}
			case resp.Status.IsSynthetic():
				// Wait only returns a synthetic status once the future
				// is terminal (rejected, expired, or a decode error) —
				// StatusPending never reaches here.
				results <- outcome{url: url, result: CompletedResult{URL: url, Response: resp}, state: "failure"}
			case resp.Status < 200 || resp.Status >= 400:
				results <- outcome{url: url, result: CompletedResult{URL: url, Response: resp}, state: "failure"}
			default:
				results <- outcome{url: url, result: CompletedResult{URL: url, Response: resp}, state: "success"}
			}
		}(url, future)
	}

	wg.Wait()
	close(results)

	for o := range results {
		switch o.state {
		case "success":
			successes = append(successes, o.result)
		case "failure":
			failures = append(failures, o.result)
		default:
			pending = append(pending, o.result)
		}
	}

	for url, err := range bulk.Errors {
		failures = append(failures, CompletedResult{URL: url, Err: err})
	}

	return successes, failures, pending
}
