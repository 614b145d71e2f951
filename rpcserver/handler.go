// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"context"

	"github.com/openmined/syftrpc/rpcproto"
)

// Handler processes one dispatched request. It runs inside a worker
// slot, never on the watcher goroutine, so it is free to block.
//
// Returning a plain value wraps it as the response body with status
// [rpcproto.StatusCompleted] (EncodeBody's rules apply — strings pass
// through as UTF-8, []byte unchanged, everything else as JSON).
// Returning a [HandlerResult] lets the handler control status and
// headers directly. Returning an error produces a server-error
// response; the body's diagnostic detail depends on the server's
// debug mode.
type Handler func(ctx context.Context, req rpcproto.Request) (any, error)

// HandlerResult lets a [Handler] set response status and headers
// explicitly instead of relying on the raw-value convenience wrapping.
type HandlerResult struct {
	Status  rpcproto.StatusCode
	Headers rpcproto.Headers
	Body    any
}

// routeParamsKey is the context key a dispatched request's wildcard
// captures are stored under.
type routeParamsKey struct{}

// RouteParams returns the {name} wildcard captures matched for the
// route this handler was invoked under, keyed by capture name. Returns
// nil if the route had no wildcard segments.
func RouteParams(ctx context.Context) map[string]string {
	params, _ := ctx.Value(routeParamsKey{}).(map[string]string)
	return params
}
