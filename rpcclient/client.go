// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/openmined/syftrpc/lib/clock"
	"github.com/openmined/syftrpc/permissions"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcstore"
	"github.com/openmined/syftrpc/syfturl"
)

// SendOptions configures a [Send] call. Expiry must be strictly
// positive, so the zero value is rejected by Send with an
// [InvalidExpiryError]. Cache is off and Headers are empty by default;
// a nil Body is encoded as the JSON literal null.
type SendOptions struct {
	Body    any
	Headers rpcproto.Headers
	Expiry  time.Duration
	// Cache, if true, first looks up an existing non-expired future
	// with the same fingerprint and returns it instead of issuing a
	// fresh request.
	Cache bool
}

// Send writes a request record at url and registers a [Future] to
// track it. Preconditions (spec): url parses, method is valid, expiry
// is strictly positive — all three are checked before anything is
// written.
func Send(ctx context.Context, ds Datasite, url syfturl.SyftURL, method rpcproto.Method, opts SendOptions) (*Future, error) {
	clk := clockFor(ds)
	now := clk.Now().UTC()

	if opts.Expiry <= 0 {
		return nil, &InvalidExpiryError{Duration: opts.Expiry}
	}

	body, err := rpcproto.EncodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	fingerprint := rpcstore.Fingerprint(method, url.String(), opts.Headers, body)
	store := ds.Store()

	if opts.Cache {
		if existing, ok, err := store.LookupByFingerprint(ctx, fingerprint); err != nil {
			return nil, fmt.Errorf("rpcclient: cache lookup: %w", err)
		} else if ok && existing.ExpiresAt.After(now) {
			return newFuture(ds, existing, url), nil
		}
	}

	id := rpcproto.NewID(now, rand.Reader)
	req := rpcproto.Request{
		ID:      id,
		Sender:  ds.Identity(),
		URL:     url,
		Method:  method,
		Headers: opts.Headers,
		Body:    body,
		Created: now,
		Expires: now.Add(opts.Expiry),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	endpointDir := url.ToLocalPath(ds.WorkspaceRoot())
	requestPath := rpcproto.RequestPath(endpointDir, req.Sender, id)
	responsePath := rpcproto.ResponsePath(endpointDir, req.Sender, id)

	if err := os.MkdirAll(rpcproto.SenderDir(endpointDir, req.Sender).String(), 0o755); err != nil {
		return nil, fmt.Errorf("rpcclient: creating sender directory: %w", err)
	}
	if err := rpcproto.WriteRequest(requestPath.String(), req); err != nil {
		return nil, err
	}

	record := rpcstore.Future{
		ID:           id,
		URL:          url.String(),
		ResponsePath: responsePath.String(),
		CreatedAt:    now,
		ExpiresAt:    req.Expires,
		Fingerprint:  fingerprint,
	}
	if err := store.Register(ctx, record); err != nil {
		return nil, fmt.Errorf("rpcclient: registering future %s: %w", id, err)
	}

	return newFuture(ds, record, url), nil
}

// ReplyTo writes a response record in the same directory as request,
// failing with [NotAuthorizedError] if the local principal lacks
// write permission on the response path.
func ReplyTo(ds Datasite, request rpcproto.Request, body any, headers rpcproto.Headers, status rpcproto.StatusCode) (rpcproto.Response, error) {
	encodedBody, err := rpcproto.EncodeBody(body)
	if err != nil {
		return rpcproto.Response{}, err
	}

	endpointDir := request.URL.ToLocalPath(ds.WorkspaceRoot())
	responsePath := rpcproto.ResponsePath(endpointDir, request.Sender, request.ID)
	relativePath := request.URL.RelativePath().Join(request.Sender, rpcproto.ResponseFileName(request.ID))

	perm, err := ds.Permissions().Compute(ds.Identity(), relativePath)
	if err != nil {
		return rpcproto.Response{}, fmt.Errorf("rpcclient: checking reply permission: %w", err)
	}
	if !perm.Allows(permissions.Write) {
		return rpcproto.Response{}, &NotAuthorizedError{Principal: ds.Identity(), Path: relativePath.String(), Required: "write"}
	}

	now := clockFor(ds).Now().UTC()
	resp := rpcproto.Response{
		ID:      request.ID,
		Sender:  ds.Identity(),
		URL:     request.URL,
		Status:  status,
		Headers: headers,
		Body:    encodedBody,
		Created: now,
		Expires: request.Expires,
	}
	if err := rpcproto.WriteResponse(responsePath.String(), resp); err != nil {
		return rpcproto.Response{}, err
	}
	return resp, nil
}

// clockFor returns the real clock unless ds implements an internal
// clock override (used by tests).
func clockFor(ds Datasite) clock.Clock {
	if provider, ok := ds.(interface{ Clock() clock.Clock }); ok {
		return provider.Clock()
	}
	return clock.Real()
}
