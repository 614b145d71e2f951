// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcclient is the caller-facing half of the RPC fabric:
// [Send] writes a request file and returns a [Future]; [Broadcast]
// fans a request out to many targets concurrently and returns a
// [BulkFuture]; [ReplyTo] writes a response file for a received
// request. A [Future] polls the filesystem for its response, rejection
// marker, or expiry and resolves to a terminal [rpcproto.Response] —
// there is no network connection to hold open while waiting.
package rpcclient
