// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/openmined/syftrpc/permissions"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/syfturl"
)

// Synthetic positive status codes this server may write to a response
// file — distinct from rpcproto's negative-space codes, which are
// reserved for a Future's own client-side bookkeeping and are never
// written to disk.
const (
	statusBadRequest  rpcproto.StatusCode = 400
	statusNotFound    rpcproto.StatusCode = 404
	statusExpired     rpcproto.StatusCode = 419
	statusServerError rpcproto.StatusCode = 500
)

// responseGrace is the lifetime given to a response this server
// synthesizes itself (decode failure, route miss, expiry) when no
// request-supplied Expires is available to echo back.
const responseGrace = time.Hour

// dispatch runs the full pipeline for one candidate request file:
// duplicate suppression, decode, expiry check, route match,
// permission check, handler invocation, and response write.
func (s *Server) dispatch(ctx context.Context, reqPath string) {
	responsePath := strings.TrimSuffix(reqPath, ".request") + ".response"
	rejectionPath := strings.TrimSuffix(reqPath, ".request") + ".syftrejected.request"

	if hasSibling(responsePath) || hasSibling(rejectionPath) {
		s.counters.duplicatesSuppressed.Add(1)
		return
	}

	id, sender, url, err := parseRequestPath(s.appRoot, s.ds.Identity(), s.appName, reqPath)
	if err != nil {
		s.logger.Error("malformed request path", "path", reqPath, "error", err)
		return
	}
	now := s.clk.Now().UTC()

	req, err := rpcproto.ReadRequest(reqPath)
	if err != nil {
		s.counters.decodeErrors.Add(1)
		s.writeSynthetic(responsePath, id, sender, url, statusBadRequest, errorJSON("decoding request: "+err.Error()), now, now.Add(responseGrace))
		return
	}

	if req.IsExpired(now) {
		s.writeSynthetic(responsePath, id, sender, url, statusExpired, errorJSON("request expired"), now, req.Expires)
		return
	}

	matched, params, ok := matchRoute(s.routes, url.Endpoint)
	if !ok {
		s.counters.notFound.Add(1)
		s.writeSynthetic(responsePath, id, sender, url, statusNotFound, errorJSON("no route registered for endpoint"), now, req.Expires)
		return
	}

	responseRelPath := url.RelativePath().Join(sender, rpcproto.ResponseFileName(id))
	perm, permErr := s.ds.Permissions().Compute(sender, responseRelPath)
	if permErr != nil {
		s.logger.Warn("permission policy parse error", "sender", sender, "path", responseRelPath, "error", permErr)
	}
	if !perm.Allows(permissions.Read) {
		s.counters.rejected.Add(1)
		if werr := rpcproto.WriteRejection(rejectionPath); werr != nil && !errors.Is(werr, fs.ErrExist) {
			s.logger.Error("writing rejection marker", "path", rejectionPath, "error", werr)
		}
		return
	}

	s.counters.dispatched.Add(1)
	result, handlerErr := s.invokeHandler(ctx, matched, params, req)
	resp := s.buildResponse(id, sender, url, now, req.Expires, result, handlerErr)
	if werr := rpcproto.WriteResponse(responsePath, resp); werr != nil && !errors.Is(werr, fs.ErrExist) {
		s.logger.Error("writing response", "path", responsePath, "error", werr)
	}
}

// invokeHandler runs the matched route's handler, recovering from a
// panic as an error response rather than letting it escape the worker
// goroutine — no handler misbehavior can take down the pool.
func (s *Server) invokeHandler(ctx context.Context, matched *route, params map[string]string, req rpcproto.Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rpcserver: handler panic: %v", r)
		}
	}()
	hctx := context.WithValue(ctx, routeParamsKey{}, params)
	return matched.handler(hctx, req)
}

// buildResponse turns a handler's (result, err) pair into a response
// record. A plain result value is wrapped with StatusCompleted; a
// HandlerResult controls status/headers directly; an error produces a
// server-error response whose body detail depends on debug mode.
func (s *Server) buildResponse(id ulid.ULID, sender string, url syfturl.SyftURL, now, expires time.Time, result any, handlerErr error) rpcproto.Response {
	if handlerErr != nil {
		return rpcproto.Response{
			ID: id, Sender: s.ds.Identity(), URL: url,
			Status: statusServerError, Body: s.errorBody(handlerErr),
			Created: now, Expires: expires,
		}
	}

	if hr, ok := result.(HandlerResult); ok {
		body, err := rpcproto.EncodeBody(hr.Body)
		if err != nil {
			return rpcproto.Response{
				ID: id, Sender: s.ds.Identity(), URL: url,
				Status: statusServerError, Body: s.errorBody(err),
				Created: now, Expires: expires,
			}
		}
		status := hr.Status
		if status == 0 {
			status = rpcproto.StatusCompleted
		}
		return rpcproto.Response{
			ID: id, Sender: s.ds.Identity(), URL: url,
			Status: status, Headers: hr.Headers, Body: body,
			Created: now, Expires: expires,
		}
	}

	body, err := rpcproto.EncodeBody(result)
	if err != nil {
		return rpcproto.Response{
			ID: id, Sender: s.ds.Identity(), URL: url,
			Status: statusServerError, Body: s.errorBody(err),
			Created: now, Expires: expires,
		}
	}
	return rpcproto.Response{
		ID: id, Sender: s.ds.Identity(), URL: url,
		Status: rpcproto.StatusCompleted, Body: body,
		Created: now, Expires: expires,
	}
}

// errorBody renders a handler error as a JSON body. In debug mode it
// carries the error's Go type and message; otherwise a generic
// message that leaks no internal detail, mirroring the original's
// debug_mode-gated SYFT_500_SERVER_ERROR payload.
func (s *Server) errorBody(err error) []byte {
	if s.debug {
		data, _ := json.Marshal(map[string]string{
			"error_type":    fmt.Sprintf("%T", err),
			"error_message": err.Error(),
		})
		return data
	}
	data, _ := json.Marshal(map[string]string{"error": "internal server error"})
	return data
}

func errorJSON(message string) []byte {
	data, _ := json.Marshal(map[string]string{"error": message})
	return data
}

// writeSynthetic writes a response this server generates itself
// (rather than a handler), for pipeline stages that short-circuit
// before a handler ever runs.
func (s *Server) writeSynthetic(path string, id ulid.ULID, sender string, url syfturl.SyftURL, status rpcproto.StatusCode, body []byte, now, expires time.Time) {
	resp := rpcproto.Response{
		ID: id, Sender: s.ds.Identity(), URL: url,
		Status: status, Body: body, Created: now, Expires: expires,
	}
	if err := rpcproto.WriteResponse(path, resp); err != nil && !errors.Is(err, fs.ErrExist) {
		s.logger.Error("writing response", "path", path, "error", err)
	}
}

// parseRequestPath recovers (id, sender, endpoint URL) from a request
// file's own path, so a synthetic response can be written even when
// the request body itself fails to decode: <appRoot>/<endpoint
// segments...>/<sender>/<id>.request.
func parseRequestPath(appRoot syfturl.AbsolutePath, identity, appName, reqPath string) (ulid.ULID, string, syfturl.SyftURL, error) {
	base := path.Base(reqPath)
	idStr := strings.TrimSuffix(base, ".request")
	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, "", syfturl.SyftURL{}, fmt.Errorf("rpcserver: parsing request id from %s: %w", reqPath, err)
	}

	senderDir := path.Dir(reqPath)
	sender := path.Base(senderDir)
	endpointDir := path.Dir(senderDir)

	rel := strings.TrimPrefix(endpointDir, appRoot.String())
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return ulid.ULID{}, "", syfturl.SyftURL{}, fmt.Errorf("rpcserver: request %s has no endpoint segment", reqPath)
	}

	return id, sender, syfturl.SyftURL{Datasite: identity, App: appName, Endpoint: rel}, nil
}
