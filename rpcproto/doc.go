// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcproto defines the on-disk record shapes for the RPC
// fabric — requests, responses, and rejection markers — their
// deterministic file paths, body serialization rules, and the binary
// envelope used to tunnel HTTP/1.1 exchanges over the same channel.
//
// Records are encoded with CBOR ([lib/codec], Core Deterministic
// Encoding) rather than JSON: a compact, self-describing binary
// format whose map/array framing already skips unknown trailing
// fields, satisfying the forward/backward compatibility requirement
// without hand-rolled field numbering. Every write goes through
// [lib/fsatomic.CreateOnce] so a reader never observes a torn file
// and an existing record is never replaced.
package rpcproto
