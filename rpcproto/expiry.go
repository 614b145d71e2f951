// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// expiryPattern matches the compound duration grammar [Nd][Nh][Nm][Ns],
// case-insensitive, with every component optional but at least one
// required (enforced separately — the empty string matches this
// pattern too).
var expiryPattern = regexp.MustCompile(`(?i)^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// InvalidExpiryError reports that a string does not match the
// compound duration grammar.
type InvalidExpiryError struct {
	Input string
}

func (e *InvalidExpiryError) Error() string {
	return fmt.Sprintf("rpcproto: invalid expiry duration %q", e.Input)
}

// ParseExpiry parses a compound duration string such as "3d", "90m",
// "1h30m", or "2d12h" into a [time.Duration]. At least one component
// must be present; components must appear in day/hour/minute/second
// order, each at most once.
func ParseExpiry(s string) (time.Duration, error) {
	if s == "" {
		return 0, &InvalidExpiryError{Input: s}
	}
	match := expiryPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, &InvalidExpiryError{Input: s}
	}
	if match[1] == "" && match[2] == "" && match[3] == "" && match[4] == "" {
		return 0, &InvalidExpiryError{Input: s}
	}

	var total time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	for i, group := range match[1:] {
		if group == "" {
			continue
		}
		n, err := strconv.ParseInt(group, 10, 64)
		if err != nil {
			return 0, &InvalidExpiryError{Input: s}
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}
