// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syfturl_test

import (
	"errors"
	"testing"

	"github.com/openmined/syftrpc/syfturl"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"syft://alice@openmined.org/app_data/chat/rpc/ping",
		"syft://alice@openmined.org/app_data/chat/rpc/nested/endpoint",
		"syft://bob@example.com/app_data/my-app/rpc/a/b/c",
	}
	for _, raw := range cases {
		u, err := syfturl.Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if got := u.String(); got != raw {
			t.Errorf("String() = %q, want %q", got, raw)
		}
	}
}

func TestParseFields(t *testing.T) {
	u, err := syfturl.Parse("syft://alice@openmined.org/app_data/chat/rpc/messages/new")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Datasite != "alice@openmined.org" {
		t.Errorf("Datasite = %q", u.Datasite)
	}
	if u.App != "chat" {
		t.Errorf("App = %q", u.App)
	}
	if u.Endpoint != "messages/new" {
		t.Errorf("Endpoint = %q", u.Endpoint)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"syft://alice@openmined.org/app_data/chat/rpc/",
		"syft://alice@openmined.org/app_data/chat/rpc",
		"syft://alice@openmined.org/chat/rpc/ping",
		"http://alice@openmined.org/app_data/chat/rpc/ping",
		"syft:///app_data/chat/rpc/ping",
		"syft://alice@openmined.org/app_data//rpc/ping",
	}
	for _, raw := range cases {
		_, err := syfturl.Parse(raw)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", raw)
			continue
		}
		var malformed *syfturl.MalformedURLError
		if !errors.As(err, &malformed) {
			t.Errorf("Parse(%q) error = %v, want *MalformedURLError", raw, err)
		}
	}
}

func TestToLocalPath(t *testing.T) {
	u, err := syfturl.Parse("syft://alice@openmined.org/app_data/chat/rpc/ping")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := syfturl.AbsolutePath("/workspace")
	got := u.ToLocalPath(root)
	want := syfturl.AbsolutePath("/workspace/datasites/alice@openmined.org/app_data/chat/rpc/ping")
	if got != want {
		t.Errorf("ToLocalPath = %q, want %q", got, want)
	}
}

func TestRelativePath(t *testing.T) {
	u, err := syfturl.Parse("syft://alice@openmined.org/app_data/chat/rpc/ping")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := u.RelativePath()
	want := syfturl.RelativePath("datasites/alice@openmined.org/app_data/chat/rpc/ping")
	if got != want {
		t.Errorf("RelativePath = %q, want %q", got, want)
	}
}
