// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
	}{
		{"1d", 24 * time.Hour},
		{"3d", 3 * 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"2d12h", 2*24*time.Hour + 12*time.Hour},
		{"1D2H3M4S", 24*time.Hour + 2*time.Hour + 3*time.Minute + 4*time.Second},
		{"30s", 30 * time.Second},
	}
	for _, c := range cases {
		got, err := ParseExpiry(c.input)
		if err != nil {
			t.Errorf("ParseExpiry(%q): %v", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseExpiry(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestParseExpiryInvalid(t *testing.T) {
	cases := []string{"", "abc", "5x", "d", "5m1d", "-5m"}
	for _, input := range cases {
		if _, err := ParseExpiry(input); err == nil {
			t.Errorf("ParseExpiry(%q) succeeded, want error", input)
		}
	}
}
