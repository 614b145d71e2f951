// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package syfturl implements the syft:// URL scheme and the
// absolute/relative path distinction that the rest of this module
// builds on.
//
// A SyftURL names a single RPC endpoint belonging to an app on a
// datasite: syft://<datasite>/app_data/<app>/rpc/<endpoint...>. The
// endpoint may itself contain slashes. [Parse] rejects anything that
// does not match this shape with a [MalformedURLError].
//
// [AbsolutePath] and [RelativePath] are distinct string types rather
// than bare strings so a function that expects one can never silently
// accept the other: an AbsolutePath is rooted at a workspace (the
// directory the sync agent keeps replicated), a RelativePath is
// relative to that workspace root and begins with its "datasites"
// component. [IsSubpath] implements the "component sequence is a
// prefix" rule.
package syfturl
