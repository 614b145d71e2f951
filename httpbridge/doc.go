// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpbridge tunnels ordinary HTTP/1.1 requests over the RPC
// fabric. [Handler] is installed on the receiving datasite as an
// rpcserver endpoint handler for a pattern such as "http/**"; [Transport]
// is installed on the sending side as an [net/http.Client]'s
// RoundTripper, so unmodified HTTP client code can talk to a bridged
// endpoint without knowing the transport underneath is a synced
// directory tree rather than a socket.
package httpbridge
