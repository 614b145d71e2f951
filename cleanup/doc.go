// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cleanup runs a background sweep that evicts expired request
// and response records, orphan rejection markers, and (when a future
// store is supplied) stale future-store rows, so a long-running
// datasite's RPC directories don't grow without bound.
package cleanup
