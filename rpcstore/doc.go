// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcstore is the local durable index of outstanding RPC
// futures: register/lookup/list_pending/drop, plus a cache-mode
// fingerprint lookup that lets a repeated identical send reuse an
// existing future instead of issuing a fresh request.
//
// The backing store is a single-file SQLite database opened through
// [lib/sqlitepool], one file per app per datasite. SQLite's
// single-writer WAL semantics are what makes the store safe as the
// one locally shared mutable resource in an otherwise
// files-and-futures architecture.
package rpcstore
