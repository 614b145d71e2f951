// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/openmined/syftrpc/syfturl"
)

// Permission is the computed access a principal has on a path: the
// tuple (read, create, write, admin).
type Permission struct {
	Read, Create, Write, Admin bool
}

// Allows reports whether the permission grants at least tier.
func (p Permission) Allows(tier Tier) bool {
	switch tier {
	case Read:
		return p.Read
	case Create:
		return p.Create
	case Write:
		return p.Write
	case Admin:
		return p.Admin
	default:
		return false
	}
}

func (p *Permission) set(tier Tier, value bool) {
	switch tier {
	case Read:
		p.Read = value
	case Create:
		p.Create = value
	case Write:
		p.Write = value
	case Admin:
		p.Admin = value
	}
}

// close applies the hierarchy closure: admin implies write implies
// create implies read.
func (p *Permission) close() {
	if p.Admin {
		p.Write = true
	}
	if p.Write {
		p.Create = true
	}
	if p.Create {
		p.Read = true
	}
}

// cacheEntry is an mtime-keyed parse result, avoiding re-reading and
// re-parsing a policy file that hasn't changed since the last ascend.
type cacheEntry struct {
	modTime time.Time
	policy  Policy
	found   bool
	err     error
}

// Engine computes permissions by ascending a workspace's directory
// tree collecting policy files. An Engine is safe for concurrent use.
type Engine struct {
	// Root is the workspace root — the directory containing
	// "datasites" — matching [syfturl.AbsolutePath] semantics.
	Root syfturl.AbsolutePath

	// AutoConvertLegacy, when true, transparently maps a
	// syftperm.yaml file into the current schema wherever no
	// syft.pub.yaml is present in the same directory.
	AutoConvertLegacy bool

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewEngine constructs an Engine rooted at root.
func NewEngine(root syfturl.AbsolutePath, autoConvertLegacy bool) *Engine {
	return &Engine{
		Root:              root,
		AutoConvertLegacy: autoConvertLegacy,
		cache:             make(map[string]cacheEntry),
	}
}

// Compute returns the effective permission principal holds on target,
// a path relative to the workspace root (beginning "datasites/...").
// A returned error, if non-nil, is an [errors.Join] of every
// [MalformedPolicyError] encountered along the ascend; those files are
// skipped and every other contributing file still applies.
func (e *Engine) Compute(principal string, target syfturl.RelativePath) (Permission, error) {
	segments := target.Segments()

	type level struct {
		dir      syfturl.RelativePath
		policy   Policy
		present  bool
		terminal bool
	}

	var levels []level
	var parseErrs []error

	for depth := 0; depth <= len(segments); depth++ {
		dir := syfturl.RelativePath(strings.Join(segments[:depth], "/"))
		policy, present, err := e.loadDir(dir)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		levels = append(levels, level{dir: dir, policy: policy, present: present, terminal: present && policy.Terminal})
	}

	// Find the deepest terminal level; discard contributing policies
	// above it.
	startIndex := 0
	for i, lv := range levels {
		if lv.present && lv.terminal {
			startIndex = i
		}
	}

	var result Permission
	for _, lv := range levels[startIndex:] {
		if !lv.present {
			continue
		}
		relativeToPolicy := pathRelativeTo(target, lv.dir)
		for _, rule := range lv.policy.Rules {
			if !matchGlob(rule.Pattern, relativeToPolicy) {
				continue
			}
			for _, tier := range tiers {
				if containsPrincipal(rule.Access.forTier(tier), principal) {
					result.set(tier, rule.allow())
				}
			}
		}
	}
	result.close()

	// Owner override: admin unconditionally on the subtree owned by
	// principal (the path component immediately under "datasites/").
	if len(segments) >= 2 && segments[0] == "datasites" && segments[1] == principal {
		result.Admin = true
		result.close()
	}

	var err error
	if len(parseErrs) > 0 {
		err = errors.Join(parseErrs...)
	}
	return result, err
}

// pathRelativeTo returns target's path relative to dir, joined with
// "/" — the form glob patterns in dir's policy file are anchored
// against.
func pathRelativeTo(target, dir syfturl.RelativePath) string {
	targetSegments := target.Segments()
	dirSegments := dir.Segments()
	return strings.Join(targetSegments[len(dirSegments):], "/")
}

// loadDir looks for a policy file (current schema first, then legacy
// if AutoConvertLegacy is set) directly inside the workspace directory
// named by dir, relative to e.Root.
func (e *Engine) loadDir(dir syfturl.RelativePath) (Policy, bool, error) {
	absDir := e.Root.Join(dir.Segments()...)

	if policy, found, err := e.loadFile(filepath.Join(absDir.String(), PolicyFileName), false); found || err != nil {
		policy.dir = dir.String()
		return policy, found, err
	}
	if e.AutoConvertLegacy {
		if policy, found, err := e.loadFile(filepath.Join(absDir.String(), LegacyPolicyFileName), true); found || err != nil {
			policy.dir = dir.String()
			return policy, found, err
		}
	}
	return Policy{}, false, nil
}

func (e *Engine) loadFile(path string, legacy bool) (Policy, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Policy{}, false, nil
		}
		return Policy{}, false, err
	}

	e.mu.Lock()
	if cached, ok := e.cache[path]; ok && cached.modTime.Equal(info.ModTime()) {
		e.mu.Unlock()
		return cached.policy, true, cached.err
	}
	e.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, false, err
	}

	var policy Policy
	var parseErr error
	if legacy {
		policy, parseErr = ConvertLegacy(path, data)
	} else {
		policy, parseErr = parsePolicy(path, data)
	}

	e.mu.Lock()
	e.cache[path] = cacheEntry{modTime: info.ModTime(), policy: policy, found: true, err: parseErr}
	e.mu.Unlock()

	return policy, true, parseErr
}
