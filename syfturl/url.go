// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syfturl

import (
	"fmt"
	"regexp"
)

// urlPattern matches syft://<datasite>/app_data/<app>/rpc/<endpoint...>.
// The endpoint group is greedy so embedded slashes stay together.
var urlPattern = regexp.MustCompile(`^syft://(?P<site>[^/]+)/app_data/(?P<app>[^/]+)/rpc/(?P<endpoint>.+)$`)

// MalformedURLError reports that a string does not match the syft://
// URL grammar.
type MalformedURLError struct {
	Input string
}

func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("syfturl: malformed URL %q", e.Input)
}

// SyftURL is a parsed syft:// URL naming one RPC endpoint on one
// datasite's app. Fields are parsed once at construction time;
// [SyftURL.String] reconstructs the exact original form.
type SyftURL struct {
	Datasite string
	App      string
	Endpoint string
}

// Parse parses s as a syft:// URL. Returns a [MalformedURLError] if s
// does not match syft://<datasite>/app_data/<app>/rpc/<endpoint...>.
func Parse(s string) (SyftURL, error) {
	match := urlPattern.FindStringSubmatch(s)
	if match == nil {
		return SyftURL{}, &MalformedURLError{Input: s}
	}
	return SyftURL{
		Datasite: match[urlPattern.SubexpIndex("site")],
		App:      match[urlPattern.SubexpIndex("app")],
		Endpoint: match[urlPattern.SubexpIndex("endpoint")],
	}, nil
}

// String reconstructs the syft:// URL. Parse(u.String()) always
// yields a SyftURL equal to u — reconstruction is byte-exact.
func (u SyftURL) String() string {
	return fmt.Sprintf("syft://%s/app_data/%s/rpc/%s", u.Datasite, u.App, u.Endpoint)
}

// MarshalText implements encoding.TextMarshaler so SyftURL round-trips
// through CBOR and JSON as a plain string.
func (u SyftURL) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *SyftURL) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ToLocalPath resolves u to the absolute filesystem path of its
// endpoint directory within workspaceRoot:
// <workspaceRoot>/datasites/<datasite>/app_data/<app>/rpc/<endpoint>/.
func (u SyftURL) ToLocalPath(workspaceRoot AbsolutePath) AbsolutePath {
	return workspaceRoot.Join("datasites", u.Datasite, "app_data", u.App, "rpc", u.Endpoint)
}

// RelativePath returns u's path relative to the workspace root:
// datasites/<datasite>/app_data/<app>/rpc/<endpoint>.
func (u SyftURL) RelativePath() RelativePath {
	return RelativePath(fmt.Sprintf("datasites/%s/app_data/%s/rpc/%s", u.Datasite, u.App, u.Endpoint))
}
