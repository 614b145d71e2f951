// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import "fmt"

// NotAllowedError reports that a bridge request named a host outside
// the configured allow-list. The bridge server never dials such a
// host; it answers with a 403 envelope whose body is this error's
// text, which [Transport.RoundTrip] returns to the caller as an
// ordinary 403 *http.Response rather than as a Go error.
type NotAllowedError struct {
	Host string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("httpbridge: host %q is not in the allow-list", e.Host)
}

// UpstreamError reports that the bridge server's forwarded request to
// host failed before an upstream response was ever received (dial
// failure, connection reset, or timeout).
type UpstreamError struct {
	Host string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("httpbridge: request to %q failed: %v", e.Host, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
