// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PolicyFileName is the current on-disk name for a policy file.
const PolicyFileName = "syft.pub.yaml"

// LegacyPolicyFileName is the older on-disk name, transparently
// migrated to the current schema when [Engine.AutoConvertLegacy] is
// set.
const LegacyPolicyFileName = "syftperm.yaml"

// Tier is one of the four access tiers, ordered from weakest to
// strongest by the hierarchy closure (admin implies write implies
// create implies read).
type Tier int

const (
	Read Tier = iota
	Create
	Write
	Admin
)

func (t Tier) String() string {
	switch t {
	case Read:
		return "read"
	case Create:
		return "create"
	case Write:
		return "write"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// tiers lists every tier from strongest to weakest, the order the
// hierarchy closure walks in.
var tiers = []Tier{Admin, Write, Create, Read}

// AccessMap lists, per tier, the principals a rule grants or denies
// that tier to. "*" denotes every principal.
type AccessMap struct {
	Read   []string `yaml:"read,omitempty"`
	Create []string `yaml:"create,omitempty"`
	Write  []string `yaml:"write,omitempty"`
	Admin  []string `yaml:"admin,omitempty"`
}

func (a AccessMap) forTier(tier Tier) []string {
	switch tier {
	case Read:
		return a.Read
	case Create:
		return a.Create
	case Write:
		return a.Write
	case Admin:
		return a.Admin
	default:
		return nil
	}
}

func containsPrincipal(principals []string, principal string) bool {
	for _, p := range principals {
		if p == "*" || p == principal {
			return true
		}
	}
	return false
}

// Rule is a single line in a policy file: a glob pattern, the access
// it grants or denies, and whether it grants or denies.
type Rule struct {
	Pattern string    `yaml:"pattern"`
	Access  AccessMap `yaml:"access"`
	// Allow is true for a grant rule, false for an explicit deny.
	// Yaml key "allow" defaults to true when omitted, matching the
	// common case where a policy file only lists grants.
	Allow *bool `yaml:"allow,omitempty"`
}

func (r Rule) allow() bool {
	if r.Allow == nil {
		return true
	}
	return *r.Allow
}

// Policy is the parsed contents of one policy file.
type Policy struct {
	Terminal bool   `yaml:"terminal,omitempty"`
	Rules    []Rule `yaml:"rules"`

	// dir is the directory (relative to the workspace root, beginning
	// "datasites/") the policy
	// file was found in — the anchor for its rules' glob patterns. Not
	// part of the YAML schema; set by the loader.
	dir string
}

// MalformedPolicyError reports that a policy file's contents could not
// be parsed. Per spec, this aborts evaluation of that file only; other
// files in the ascend chain still apply.
type MalformedPolicyError struct {
	Path string
	Err  error
}

func (e *MalformedPolicyError) Error() string {
	return fmt.Sprintf("permissions: malformed policy %s: %v", e.Path, e.Err)
}

func (e *MalformedPolicyError) Unwrap() error { return e.Err }

// parsePolicy parses raw YAML bytes in the current schema.
func parsePolicy(sourcePath string, data []byte) (Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, &MalformedPolicyError{Path: sourcePath, Err: err}
	}
	return policy, nil
}

// legacyEntry is one rule in the older syftperm.yaml schema: a single
// flat permissions list rather than a four-tier access map.
type legacyEntry struct {
	Pattern     string   `yaml:"pattern"`
	User        []string `yaml:"user"`
	Permissions []string `yaml:"permissions"`
}

type legacyPolicy struct {
	Terminal bool          `yaml:"terminal,omitempty"`
	Rules    []legacyEntry `yaml:"rules"`
}

// ConvertLegacy maps a legacy syftperm.yaml document into the current
// Policy schema. Each legacy entry becomes one Rule with the same
// pattern and principal list, granting the union of its named
// permissions tiers (legacy "permissions" entries are lowercase tier
// names: read, create, write, admin).
func ConvertLegacy(sourcePath string, data []byte) (Policy, error) {
	var legacy legacyPolicy
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return Policy{}, &MalformedPolicyError{Path: sourcePath, Err: err}
	}

	policy := Policy{Terminal: legacy.Terminal}
	for _, entry := range legacy.Rules {
		access := AccessMap{}
		for _, tier := range entry.Permissions {
			switch tier {
			case "read":
				access.Read = entry.User
			case "create":
				access.Create = entry.User
			case "write":
				access.Write = entry.User
			case "admin":
				access.Admin = entry.User
			}
		}
		policy.Rules = append(policy.Rules, Rule{Pattern: entry.Pattern, Access: access})
	}
	return policy, nil
}
