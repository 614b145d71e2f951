// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openmined/syftrpc/lib/netutil"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcserver"
)

// defaultMaxResponseBytes bounds how much of an upstream response body
// a single bridged request will buffer, since the whole body must fit
// in one response file rather than stream to the caller.
const defaultMaxResponseBytes = 10 << 20 // 10 MiB

// Config configures a [Handler].
type Config struct {
	// AllowedHosts is a list of host globs the bridge may forward to.
	// An empty list fails closed: no host is reachable.
	AllowedHosts []string

	// PerHostRate bounds outbound requests per second per upstream
	// host. Zero disables rate limiting entirely.
	PerHostRate float64

	// RequestTimeout bounds how long the bridge waits for the upstream
	// response. Zero means no per-call timeout beyond the request's
	// own expiry.
	RequestTimeout time.Duration

	// MaxIdleConns and MaxIdleConnsPerHost cap the upstream
	// connection pool, mirroring the teacher's proxy.HTTPService
	// transport configuration.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// MaxResponseBytes caps how much of an upstream response body is
	// buffered before being written into the envelope. Defaults to
	// defaultMaxResponseBytes.
	MaxResponseBytes int64

	// Logger receives structured bridge diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Handler forwards bridged HTTP requests to an allow-listed upstream
// and encodes the result back into an HTTP-response envelope. Its
// [Handler.Handle] method satisfies [rpcserver.Handler] and is meant
// to be registered for a catch-all pattern such as "http/**".
type Handler struct {
	filter   HostFilter
	client   *http.Client
	logger   *slog.Logger
	maxBody  int64
	timeout  time.Duration
	rate     float64
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHandler constructs a Handler from cfg.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 100
	}
	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = 10
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     idleTimeout,
	}

	return &Handler{
		filter:   HostFilter{Allowed: cfg.AllowedHosts},
		client:   &http.Client{Transport: transport},
		logger:   logger,
		maxBody:  maxBody,
		timeout:  cfg.RequestTimeout,
		rate:     cfg.PerHostRate,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handle decodes req's body as an [rpcproto.HTTPRequest] envelope,
// checks the destination host against the allow-list, forwards to the
// upstream, and returns an [rpcproto.HTTPResponse] envelope as the
// response body. Bridge-level failures (host not allowed, upstream
// timeout, upstream error) are encoded into the returned envelope's
// status code rather than surfaced as a Go error, matching an ordinary
// HTTP round trip where a 403/502/504 is still a completed response.
func (h *Handler) Handle(ctx context.Context, req rpcproto.Request) (any, error) {
	envelope, err := rpcproto.DecodeHTTPRequest(req.Body)
	if err != nil {
		return nil, err
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, envelope.Method, envelope.URL, bytes.NewReader(envelope.BodyBytes))
	if err != nil {
		return nil, err
	}
	upstreamReq.Header = envelopeHeadersToHTTP(envelope.Headers)
	host := upstreamReq.URL.Host

	if err := h.filter.Check(host); err != nil {
		h.logger.Warn("http bridge request blocked", "host", host, "error", err)
		return respond(http.StatusForbidden, "Forbidden", nil, []byte(err.Error()))
	}

	if limiter := h.limiterFor(host); limiter != nil {
		waitCtx := ctx
		var cancel context.CancelFunc
		if !req.Expires.IsZero() {
			waitCtx, cancel = context.WithDeadline(ctx, req.Expires)
			defer cancel()
		}
		if err := limiter.Wait(waitCtx); err != nil {
			return respond(http.StatusGatewayTimeout, "Gateway Timeout", nil, []byte("rate limit wait exceeded request deadline"))
		}
	}

	if !req.Expires.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Expires)
		defer cancel()
		upstreamReq = upstreamReq.WithContext(ctx)
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
		upstreamReq = upstreamReq.WithContext(ctx)
	}

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("http bridge upstream timeout", "host", host, "error", err)
			return respond(http.StatusGatewayTimeout, "Gateway Timeout", nil, []byte((&UpstreamError{Host: host, Err: err}).Error()))
		}
		h.logger.Warn("http bridge upstream error", "host", host, "error", err)
		return respond(http.StatusBadGateway, "Bad Gateway", nil, []byte((&UpstreamError{Host: host, Err: err}).Error()))
	}
	defer resp.Body.Close()

	body, err := netutil.ReadLimited(resp.Body, h.maxBody)
	if err != nil {
		h.logger.Warn("http bridge reading upstream body", "host", host, "error", err)
		return respond(http.StatusBadGateway, "Bad Gateway", nil, []byte((&UpstreamError{Host: host, Err: err}).Error()))
	}

	return respond(resp.StatusCode, reasonPhrase(resp), httpHeaderToEnvelope(resp.Header), body)
}

// limiterFor returns the shared token-bucket limiter for host,
// creating one lazily. Returns nil when rate limiting is disabled.
func (h *Handler) limiterFor(host string) *rate.Limiter {
	if h.rate <= 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	limiter, ok := h.limiters[host]
	if !ok {
		burst := int(h.rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(h.rate), burst)
		h.limiters[host] = limiter
	}
	return limiter
}

// reasonPhrase recovers the textual reason from an *http.Response's
// Status field ("200 OK" -> "OK"), falling back to the standard text
// for the code when the server didn't send one.
func reasonPhrase(resp *http.Response) string {
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

// respond encodes an HTTP-response envelope as an [rpcserver.HandlerResult].
func respond(status int, reason string, headers rpcproto.Headers, body []byte) (any, error) {
	envelope := rpcproto.HTTPResponse{
		StatusCode:   status,
		Headers:      headers,
		BodyBytes:    body,
		ReasonPhrase: reason,
	}
	data, err := rpcproto.EncodeHTTPResponse(envelope)
	if err != nil {
		return nil, err
	}
	return rpcserver.HandlerResult{Body: data}, nil
}
