// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import (
	"github.com/oklog/ulid/v2"

	"github.com/openmined/syftrpc/syfturl"
)

// RequestFileName returns the file name (not path) for id's request
// record: "<id>.request".
func RequestFileName(id ulid.ULID) string {
	return id.String() + ".request"
}

// ResponseFileName returns the file name for id's response record:
// "<id>.response".
func ResponseFileName(id ulid.ULID) string {
	return id.String() + ".response"
}

// RejectionFileName returns the file name for id's rejection marker:
// "<id>.syftrejected.request". The marker is a zero-byte sentinel
// file placed alongside the request it rejects.
func RejectionFileName(id ulid.ULID) string {
	return id.String() + ".syftrejected.request"
}

// SenderDir returns the per-sender subdirectory beneath an endpoint's
// directory that a sender's requests are written into:
// <endpointDir>/<sender>. Segregating requests by sender constrains
// the blast radius of a misbehaving principal that has been granted
// write access to the endpoint directory as a whole.
func SenderDir(endpointDir syfturl.AbsolutePath, sender string) syfturl.AbsolutePath {
	return endpointDir.Join(sender)
}

// RequestPath, ResponsePath, and RejectionPath resolve the full
// absolute path of a request's sibling files given the endpoint
// directory (syfturl.SyftURL.ToLocalPath), the sender, and the
// request's identifier.
func RequestPath(endpointDir syfturl.AbsolutePath, sender string, id ulid.ULID) syfturl.AbsolutePath {
	return SenderDir(endpointDir, sender).Join(RequestFileName(id))
}

func ResponsePath(endpointDir syfturl.AbsolutePath, sender string, id ulid.ULID) syfturl.AbsolutePath {
	return SenderDir(endpointDir, sender).Join(ResponseFileName(id))
}

func RejectionPath(endpointDir syfturl.AbsolutePath, sender string, id ulid.ULID) syfturl.AbsolutePath {
	return SenderDir(endpointDir, sender).Join(RejectionFileName(id))
}
