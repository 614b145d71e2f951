// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syfturl_test

import (
	"reflect"
	"testing"

	"github.com/openmined/syftrpc/syfturl"
)

func TestAbsolutePathJoin(t *testing.T) {
	root := syfturl.AbsolutePath("/workspace")
	got := root.Join("datasites", "alice@openmined.org", "app_data")
	want := syfturl.AbsolutePath("/workspace/datasites/alice@openmined.org/app_data")
	if got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}

func TestRelativePathSegments(t *testing.T) {
	cases := []struct {
		path syfturl.RelativePath
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"a", []string{"a"}},
		{"a/b/c", []string{"a", "b", "c"}},
		{"/a/b/", []string{"a", "b"}},
	}
	for _, c := range cases {
		got := c.path.Segments()
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Segments(%q) = %#v, want %#v", c.path, got, c.want)
		}
	}
}

func TestIsSubpath(t *testing.T) {
	cases := []struct {
		a, b syfturl.RelativePath
		want bool
	}{
		{"a/b/c", "a/b", true},
		{"a/b", "a/b", true},
		{"a/b", "a/b/c", false},
		{"a/b/c", "x/y", false},
		{"a/bc", "a/b", false},
		{"a/b/c", "", true},
	}
	for _, c := range cases {
		got := syfturl.IsSubpath(c.a, c.b)
		if got != c.want {
			t.Errorf("IsSubpath(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
