// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient

import (
	"fmt"
	"time"
)

// InvalidExpiryError reports that a [Send] call was given an expiry
// duration that does not satisfy the "strictly positive" precondition.
// Distinct from [rpcproto.InvalidExpiryError], which reports a string
// that fails to parse as a compound duration at all.
type InvalidExpiryError struct {
	Duration time.Duration
}

func (e *InvalidExpiryError) Error() string {
	return fmt.Sprintf("rpcclient: expiry must be strictly positive, got %s", e.Duration)
}

// NotAuthorizedError reports that a principal lacks the permission
// tier required for an operation on a path.
type NotAuthorizedError struct {
	Principal string
	Path      string
	Required  string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("rpcclient: %s lacks %s permission on %s", e.Principal, e.Required, e.Path)
}

// SyftTimeoutError reports that [Future.Wait] timed out while its
// request was still pending.
type SyftTimeoutError struct {
	URL string
}

func (e *SyftTimeoutError) Error() string {
	return fmt.Sprintf("rpcclient: timed out waiting for response to %s", e.URL)
}
