// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syfturl

import (
	"path"
	"strings"
)

// AbsolutePath is a filesystem path rooted at a workspace — the
// directory tree that the (out-of-scope) sync agent keeps replicated
// between datasites. Always uses forward slashes regardless of host
// OS, and never carries a trailing slash except for the root itself.
type AbsolutePath string

// String implements fmt.Stringer.
func (p AbsolutePath) String() string { return string(p) }

// Join appends additional components and returns the cleaned result.
func (p AbsolutePath) Join(components ...string) AbsolutePath {
	parts := append([]string{string(p)}, components...)
	return AbsolutePath(path.Join(parts...))
}

// RelativePath is a filesystem path relative to the workspace root
// whose first component is "datasites":
// datasites/<email>/app_data/<app>/rpc/.... It is not relative to the
// datasites directory itself; the "datasites" component is always
// part of the path. Relative paths never begin with a slash.
type RelativePath string

// String implements fmt.Stringer.
func (p RelativePath) String() string { return string(p) }

// Join appends additional components and returns the cleaned result.
func (p RelativePath) Join(components ...string) RelativePath {
	parts := append([]string{string(p)}, components...)
	return RelativePath(path.Join(parts...))
}

// Segments splits a RelativePath into its slash-separated components.
// An empty path yields an empty slice.
func (p RelativePath) Segments() []string {
	trimmed := strings.Trim(string(p), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// IsSubpath reports whether a's component sequence has b's component
// sequence as a prefix — i.e. a is b itself or lies somewhere beneath
// it in the tree.
func IsSubpath(a, b RelativePath) bool {
	aSegments := a.Segments()
	bSegments := b.Segments()
	if len(bSegments) > len(aSegments) {
		return false
	}
	for i, segment := range bSegments {
		if aSegments[i] != segment {
			return false
		}
	}
	return true
}
