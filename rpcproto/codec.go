// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"fmt"
	"os"

	"github.com/openmined/syftrpc/lib/codec"
	"github.com/openmined/syftrpc/lib/fsatomic"
)

// WriteRequest atomically creates the request record file at path.
// Per spec, a request record is written exactly once and never
// rewritten afterward — CreateOnce rejects a second write.
func WriteRequest(path string, req Request) error {
	data, err := codec.Marshal(req)
	if err != nil {
		return fmt.Errorf("rpcproto: encoding request %s: %w", req.ID, err)
	}
	if err := fsatomic.CreateOnce(path, data, 0o644); err != nil {
		return fmt.Errorf("rpcproto: writing request %s: %w", path, err)
	}
	return nil
}

// ReadRequest reads and decodes the request record at path.
func ReadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("rpcproto: reading request %s: %w", path, err)
	}
	var req Request
	if err := codec.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("rpcproto: decoding request %s: %w", path, err)
	}
	return req, nil
}

// WriteResponse atomically creates the response record file at path.
// A responder emits at most one response per request; CreateOnce
// enforces that at the filesystem level.
func WriteResponse(path string, resp Response) error {
	data, err := codec.Marshal(resp)
	if err != nil {
		return fmt.Errorf("rpcproto: encoding response %s: %w", resp.ID, err)
	}
	if err := fsatomic.CreateOnce(path, data, 0o644); err != nil {
		return fmt.Errorf("rpcproto: writing response %s: %w", path, err)
	}
	return nil
}

// ReadResponse reads and decodes the response record at path.
func ReadResponse(path string) (Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Response{}, fmt.Errorf("rpcproto: reading response %s: %w", path, err)
	}
	var resp Response
	if err := codec.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("rpcproto: decoding response %s: %w", path, err)
	}
	return resp, nil
}

// WriteRejection creates the zero-byte rejection marker at path. A
// rejection marker is terminal — it is never replaced — so CreateOnce
// is the correct primitive here too.
func WriteRejection(path string) error {
	if err := fsatomic.CreateOnce(path, nil, 0o644); err != nil {
		return fmt.Errorf("rpcproto: writing rejection marker %s: %w", path, err)
	}
	return nil
}
