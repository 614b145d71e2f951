// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package permissions implements the hierarchical permissions engine:
// parsing policy files scattered through a shared directory tree and
// computing effective (read, create, write, admin) rights for a
// (principal, path) pair.
//
// A policy file, named "syft.pub.yaml" (or the legacy "syftperm.yaml",
// transparently migrated), lists rules in declared order. Each rule
// pairs a glob pattern with an access map and an allow flag. [Engine.
// Compute] ascends from a target path to the datasites root collecting
// every policy file on the way, honors any terminal flag that halts
// inheritance, evaluates each contributing policy's rules against the
// target path, and applies the admin⊃write⊃create⊃read closure. The
// datasite owning a subtree is always granted admin on it.
package permissions
