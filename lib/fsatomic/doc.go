// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsatomic provides write-once-visible file creation: every
// request, response, rejection marker, and policy file in this module
// is written so that a concurrent reader either sees the file fully
// formed or does not see it at all, never a partial write.
//
// [WriteOnce] writes to a temporary file in the target's directory,
// syncs it, and renames it into place — the rename is atomic on the
// same filesystem, so a directory listing never observes a half
// written ".request" or ".response" file. The mechanics are delegated
// to google/renameio/v2, which additionally fsyncs the parent
// directory so the rename itself survives a crash.
//
// [CreateOnce] behaves like WriteOnce but fails if the destination
// already exists, which the protocol layer relies on to detect and
// reject duplicate-ID collisions rather than silently overwriting an
// in-flight request.
package fsatomic
