// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import (
	"net/http"
	"strings"

	"github.com/openmined/syftrpc/rpcproto"
)

// isHopByHopHeader reports whether name should never cross the bridge:
// it names a property of one specific TCP hop, not of the resource
// being requested, so forwarding it to (or from) the other side of a
// file-transported hop is meaningless.
var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

func isHopByHopHeader(name string) bool {
	return hopByHopHeaders[strings.ToLower(name)]
}

// httpHeaderToEnvelope flattens an [net/http.Header] into the ordered
// [rpcproto.Headers] the envelope carries. net/http.Header is itself a
// map keyed by canonical name, so relative order between distinct
// header names is already lost by the time a request or response
// reaches us as an *http.Request/*http.Response; only the order of
// repeated values for the same name is preserved here, which is all
// net/http itself guarantees.
func httpHeaderToEnvelope(h http.Header) rpcproto.Headers {
	var headers rpcproto.Headers
	for name, values := range h {
		if isHopByHopHeader(name) {
			continue
		}
		for _, value := range values {
			headers = headers.Add(name, value)
		}
	}
	return headers
}

// envelopeHeadersToHTTP expands envelope headers into an
// [net/http.Header] suitable for an outgoing *http.Request or an
// *http.Response's Header field, dropping hop-by-hop headers.
func envelopeHeadersToHTTP(headers rpcproto.Headers) http.Header {
	h := make(http.Header, len(headers))
	for _, field := range headers {
		if isHopByHopHeader(field.Name) {
			continue
		}
		h.Add(field.Name, field.Value)
	}
	return h
}
