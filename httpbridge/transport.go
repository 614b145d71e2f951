// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openmined/syftrpc/rpcclient"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/syfturl"
)

// defaultEndpoint is the RPC endpoint a Transport posts bridged
// requests to; it matches the "http/**" pattern a receiving
// datasite's [Handler] is registered under.
const defaultEndpoint = "http/bridge"

// TransportConfig configures a [Transport].
type TransportConfig struct {
	// Target is the destination datasite's identity.
	Target string

	// App is the destination datasite's application name (the
	// app_data/<app> segment of the RPC path).
	App string

	// Endpoint is the RPC endpoint the request is posted to. Defaults
	// to "http/bridge".
	Endpoint string

	// Expiry bounds how long the underlying request record is valid
	// for. Defaults to 30s.
	Expiry time.Duration

	// WaitTimeout bounds how long RoundTrip blocks for a response
	// before returning a timeout error. Defaults to Expiry.
	WaitTimeout time.Duration

	// PollInterval is how often the underlying future is polled.
	// Defaults to 100ms.
	PollInterval time.Duration
}

// Transport implements [net/http.RoundTripper] by tunneling each
// request through [rpcclient.Send] to a target datasite's HTTP bridge
// endpoint. A standard *http.Client{Transport: t} behaves like an
// ordinary HTTP client whose network is a synced directory tree.
type Transport struct {
	ds       rpcclient.Datasite
	target   string
	app      string
	endpoint string
	expiry   time.Duration
	wait     time.Duration
	poll     time.Duration
}

// NewTransport constructs a Transport bound to ds and cfg.
func NewTransport(ds rpcclient.Datasite, cfg TransportConfig) *Transport {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	wait := cfg.WaitTimeout
	if wait <= 0 {
		wait = expiry
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	return &Transport{
		ds:       ds,
		target:   cfg.Target,
		app:      cfg.App,
		endpoint: endpoint,
		expiry:   expiry,
		wait:     wait,
		poll:     poll,
	}
}

// RoundTrip satisfies [net/http.RoundTripper]. It never returns a nil
// *http.Response paired with a nil error.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		defer req.Body.Close()
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpbridge: reading request body: %w", err)
		}
	}

	envelope := rpcproto.HTTPRequest{
		Method:    req.Method,
		URL:       req.URL.String(),
		Headers:   httpHeaderToEnvelope(req.Header),
		BodyBytes: bodyBytes,
	}
	encoded, err := rpcproto.EncodeHTTPRequest(envelope)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: encoding request envelope: %w", err)
	}

	target := syfturl.SyftURL{Datasite: t.target, App: t.app, Endpoint: t.endpoint}
	future, err := rpcclient.Send(req.Context(), t.ds, target, rpcproto.MethodPost, rpcclient.SendOptions{
		Body:   encoded,
		Expiry: t.expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("httpbridge: sending bridged request: %w", err)
	}

	resp, err := future.Wait(req.Context(), t.wait, t.poll)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case rpcproto.StatusRejected:
		return nil, fmt.Errorf("httpbridge: bridged request to %s was rejected", t.target)
	case rpcproto.StatusExpired:
		return nil, fmt.Errorf("httpbridge: bridged request to %s expired before a response arrived", t.target)
	case rpcproto.StatusError:
		return nil, fmt.Errorf("httpbridge: bridged request to %s: future resolution error", t.target)
	}

	respEnvelope, err := rpcproto.DecodeHTTPResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: decoding response envelope: %w", err)
	}

	header := envelopeHeadersToHTTP(respEnvelope.Headers)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", respEnvelope.StatusCode, respEnvelope.ReasonPhrase),
		StatusCode:    respEnvelope.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(respEnvelope.BodyBytes)),
		ContentLength: int64(len(respEnvelope.BodyBytes)),
		Request:       req,
	}, nil
}
