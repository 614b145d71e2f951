// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"fmt"

	"github.com/openmined/syftrpc/lib/codec"
)

// Value is an opaque extension value carried in an [HTTPRequest]'s
// Extensions bag. Any type CBOR can represent is valid; the bridge
// never interprets extension contents itself.
type Value = any

// Extensions carries side-channel metadata that accompanies an
// HTTP-over-filesystem request but isn't part of the HTTP exchange
// itself (e.g. the bridge's own retry policy). Opaque to everything
// except the two ends of the bridge that agreed on its keys.
type Extensions map[string]Value

// HTTPRequest is the binary envelope for one tunneled HTTP/1.1
// request: {method, url, headers[], body_bytes, extensions}.
type HTTPRequest struct {
	Method     string     `cbor:"method"`
	URL        string     `cbor:"url"`
	Headers    Headers    `cbor:"headers"`
	BodyBytes  []byte     `cbor:"body_bytes"`
	Extensions Extensions `cbor:"extensions,omitempty"`
}

// HTTPResponse is the binary envelope for one tunneled HTTP/1.1
// response: {status_code, headers[], body_bytes, reason_phrase}.
type HTTPResponse struct {
	StatusCode   int     `cbor:"status_code"`
	Headers      Headers `cbor:"headers"`
	BodyBytes    []byte  `cbor:"body_bytes"`
	ReasonPhrase string  `cbor:"reason_phrase"`
}

// EncodeHTTPRequest serializes req to its binary envelope. Round-trip
// through [DecodeHTTPRequest] is bit-exact for well-formed input.
func EncodeHTTPRequest(req HTTPRequest) ([]byte, error) {
	data, err := codec.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpcproto: encoding HTTP request envelope: %w", err)
	}
	return data, nil
}

// DecodeHTTPRequest deserializes data into an HTTPRequest.
func DecodeHTTPRequest(data []byte) (HTTPRequest, error) {
	var req HTTPRequest
	if err := codec.Unmarshal(data, &req); err != nil {
		return HTTPRequest{}, fmt.Errorf("rpcproto: decoding HTTP request envelope: %w", err)
	}
	return req, nil
}

// EncodeHTTPResponse serializes resp to its binary envelope.
func EncodeHTTPResponse(resp HTTPResponse) ([]byte, error) {
	data, err := codec.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("rpcproto: encoding HTTP response envelope: %w", err)
	}
	return data, nil
}

// DecodeHTTPResponse deserializes data into an HTTPResponse.
func DecodeHTTPResponse(data []byte) (HTTPResponse, error) {
	var resp HTTPResponse
	if err := codec.Unmarshal(data, &resp); err != nil {
		return HTTPResponse{}, fmt.Errorf("rpcproto: decoding HTTP response envelope: %w", err)
	}
	return resp, nil
}
