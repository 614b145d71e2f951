// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/openmined/syftrpc/syfturl"
)

func TestPathScheme(t *testing.T) {
	endpointDir := syfturl.AbsolutePath("/workspace/datasites/alice@openmined.org/app_data/chat/rpc/ping")
	id := NewID(time.Now().UTC(), rand.Reader)

	req := RequestPath(endpointDir, "bob@openmined.org", id)
	want := endpointDir.Join("bob@openmined.org", id.String()+".request")
	if req != want {
		t.Errorf("RequestPath = %q, want %q", req, want)
	}

	resp := ResponsePath(endpointDir, "bob@openmined.org", id)
	if resp != endpointDir.Join("bob@openmined.org", id.String()+".response") {
		t.Errorf("ResponsePath = %q", resp)
	}

	rejected := RejectionPath(endpointDir, "bob@openmined.org", id)
	if rejected != endpointDir.Join("bob@openmined.org", id.String()+".syftrejected.request") {
		t.Errorf("RejectionPath = %q", rejected)
	}
}
