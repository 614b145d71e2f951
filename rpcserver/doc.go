// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcserver watches an app's RPC directory tree, dispatches
// incoming request files to registered handlers, and writes their
// responses. [Server.Start] spawns a dedicated filesystem watcher
// goroutine plus a fixed-size worker pool; the watcher goroutine only
// ever enqueues work, never runs a handler body, so a slow handler
// cannot stall event delivery.
package rpcserver
