// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcserver"
)

func envelopeRequest(t *testing.T, method, target string, headers rpcproto.Headers, body []byte) rpcproto.Request {
	t.Helper()
	envelope := rpcproto.HTTPRequest{Method: method, URL: target, Headers: headers, BodyBytes: body}
	encoded, err := rpcproto.EncodeHTTPRequest(envelope)
	if err != nil {
		t.Fatalf("EncodeHTTPRequest: %v", err)
	}
	return rpcproto.Request{Body: encoded, Created: time.Now(), Expires: time.Now().Add(time.Minute)}
}

func decodeResult(t *testing.T, result any) rpcproto.HTTPResponse {
	t.Helper()
	hr, ok := result.(rpcserver.HandlerResult)
	if !ok {
		t.Fatalf("result is %T, want rpcserver.HandlerResult", result)
	}
	data, ok := hr.Body.([]byte)
	if !ok {
		t.Fatalf("HandlerResult.Body is %T, want []byte", hr.Body)
	}
	envelope, err := rpcproto.DecodeHTTPResponse(data)
	if err != nil {
		t.Fatalf("DecodeHTTPResponse: %v", err)
	}
	return envelope
}

func TestHandleForwardsAllowedRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Test"); got != "hello" {
			t.Errorf("upstream saw X-Test = %q, want hello", got)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}

	h := NewHandler(Config{AllowedHosts: []string{u.Host}})
	headers := rpcproto.Headers{}.Add("X-Test", "hello")
	req := envelopeRequest(t, http.MethodGet, upstream.URL+"/status", headers, nil)

	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resp := decodeResult(t, result)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if string(resp.BodyBytes) != "created" {
		t.Errorf("BodyBytes = %q, want %q", resp.BodyBytes, "created")
	}
}

func TestHandleBlocksDisallowedHost(t *testing.T) {
	h := NewHandler(Config{AllowedHosts: []string{"trusted.example.com"}})
	req := envelopeRequest(t, http.MethodGet, "http://evil.example.com/", nil, nil)

	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resp := decodeResult(t, result)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestHandleMapsUpstreamFailureToBadGateway(t *testing.T) {
	// A closed listener: nothing is listening, so dialing fails.
	listener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := listener.URL
	listener.Close()

	u, err := url.Parse(closedURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}

	h := NewHandler(Config{AllowedHosts: []string{u.Host}})
	req := envelopeRequest(t, http.MethodGet, closedURL+"/", nil, nil)

	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resp := decodeResult(t, result)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestHandleMapsTimeoutToGatewayTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}

	h := NewHandler(Config{AllowedHosts: []string{u.Host}, RequestTimeout: time.Millisecond})
	req := envelopeRequest(t, http.MethodGet, upstream.URL+"/", nil, nil)

	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	resp := decodeResult(t, result)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusGatewayTimeout)
	}
}

func TestHandleAppliesPerHostRateLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}

	h := NewHandler(Config{AllowedHosts: []string{u.Host}, PerHostRate: 1000})
	req := envelopeRequest(t, http.MethodGet, upstream.URL+"/", nil, nil)

	if _, err := h.Handle(context.Background(), req); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if limiter := h.limiterFor(u.Host); limiter == nil {
		t.Fatal("expected a limiter to have been created for the host")
	}
}
