// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"path"
	"strings"
)

// matchGlob reports whether target matches pattern under this engine's
// glob semantics: "*" matches any run of characters within one path
// segment, "**" matches zero or more whole segments, other characters
// match literally. Both pattern and target are slash-separated paths
// relative to the policy file's directory.
//
// The three "**" placements — suffix ("a/**"), prefix ("**/a"), and
// interior ("a/**/b") — are handled the same way regardless of where
// in the pattern they occur, since a policy rule may place its
// recursive wildcard anywhere. A pattern with more than one "**" is
// not supported and never matches; a malformed pattern (bad brackets)
// also never matches — an unparseable rule must never silently grant
// access.
func matchGlob(pattern, target string) bool {
	if pattern == "**" {
		return true
	}

	if !strings.Contains(pattern, "**") {
		matched, err := path.Match(pattern, target)
		return err == nil && matched
	}

	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		if matchSegment(prefix, target) {
			return true
		}
		return hasMatchingPrefix(prefix, target)
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		if matchSegment(suffix, target) {
			return true
		}
		return hasMatchingSuffix(suffix, target)
	}

	separatorIndex := strings.Index(pattern, "/**/")
	if separatorIndex >= 0 {
		prefix := pattern[:separatorIndex]
		suffix := pattern[separatorIndex+4:]

		if matchSegment(prefix+"/"+suffix, target) {
			return true
		}

		prefixDepth := strings.Count(prefix, "/") + 1
		suffixDepth := strings.Count(suffix, "/") + 1
		segments := strings.Split(target, "/")

		if len(segments) < prefixDepth+1+suffixDepth {
			return false
		}

		prefixCandidate := strings.Join(segments[:prefixDepth], "/")
		if !matchSegment(prefix, prefixCandidate) {
			return false
		}

		suffixCandidate := strings.Join(segments[len(segments)-suffixDepth:], "/")
		if !matchSegment(suffix, suffixCandidate) {
			return false
		}

		for _, segment := range segments[prefixDepth : len(segments)-suffixDepth] {
			if segment == "" {
				return false
			}
		}
		return true
	}

	return false
}

func matchSegment(pattern, s string) bool {
	matched, err := path.Match(pattern, s)
	return err == nil && matched
}

func hasMatchingPrefix(pattern, target string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.SplitN(target, "/", depth+1)
	if len(segments) <= depth {
		return false
	}
	candidate := strings.Join(segments[:depth], "/")
	return matchSegment(pattern, candidate)
}

func hasMatchingSuffix(pattern, target string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.Split(target, "/")
	if len(segments) <= depth {
		return false
	}
	candidate := strings.Join(segments[len(segments)-depth:], "/")
	return matchSegment(pattern, candidate)
}
