// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/syftrpc/lib/clock"
	"github.com/openmined/syftrpc/lib/config"
	"github.com/openmined/syftrpc/lib/testutil"
	"github.com/openmined/syftrpc/permissions"
	"github.com/openmined/syftrpc/rpcclient"
	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcstore"
	"github.com/openmined/syftrpc/syfturl"
)

type fakeDatasite struct {
	identity string
	root     syfturl.AbsolutePath
	perm     *permissions.Engine
	store    *rpcstore.Store
	cfg      *config.Config
	clk      clock.Clock
}

// newFakeDatasite creates a datasite with its own private workspace
// root — fine for single-party tests (a datasite replying to its own
// sent requests).
func newFakeDatasite(t *testing.T, identity string, clk clock.Clock) *fakeDatasite {
	t.Helper()
	return newFakeDatasiteInRoot(t, identity, syfturl.AbsolutePath(t.TempDir()), clk)
}

// newFakeDatasiteInRoot creates a datasite sharing root with other
// datasites — the two-or-more-party scenario, since the filesystem
// transport only works across peers that see the same synced tree.
func newFakeDatasiteInRoot(t *testing.T, identity string, root syfturl.AbsolutePath, clk clock.Clock) *fakeDatasite {
	t.Helper()
	storeDir := t.TempDir()
	store, err := rpcstore.Open(rpcstore.Config{Path: filepath.Join(storeDir, identity+".db")})
	if err != nil {
		t.Fatalf("rpcstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &fakeDatasite{
		identity: identity,
		root:     root,
		perm:     permissions.NewEngine(root, false),
		store:    store,
		cfg:      config.Default(),
		clk:      clk,
	}
}

func (d *fakeDatasite) Identity() string                   { return d.identity }
func (d *fakeDatasite) WorkspaceRoot() syfturl.AbsolutePath { return d.root }
func (d *fakeDatasite) Permissions() *permissions.Engine    { return d.perm }
func (d *fakeDatasite) Store() *rpcstore.Store              { return d.store }
func (d *fakeDatasite) Config() *config.Config              { return d.cfg }
func (d *fakeDatasite) Clock() clock.Clock                  { return d.clk }

func mustURL(t *testing.T, s string) syfturl.SyftURL {
	t.Helper()
	u, err := syfturl.Parse(s)
	if err != nil {
		t.Fatalf("syfturl.Parse(%q): %v", s, err)
	}
	return u
}

func TestSendWritesRequestAndRegistersFuture(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	alice := newFakeDatasite(t, "alice@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")

	future, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, rpcclient.SendOptions{
		Body:   map[string]string{"hello": "world"},
		Expiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if future.ID.String() == "" {
		t.Fatalf("Send: empty future ID")
	}

	rec, ok, err := alice.store.Lookup(ctx, future.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("Lookup: future not registered")
	}
	if rec.URL != url.String() {
		t.Errorf("registered URL = %q, want %q", rec.URL, url.String())
	}
}

func TestSendRejectsNonPositiveExpiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Now())
	alice := newFakeDatasite(t, "alice@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")

	_, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, rpcclient.SendOptions{})
	if err == nil {
		t.Fatalf("Send: expected error for zero expiry")
	}
	var invalidExpiry *rpcclient.InvalidExpiryError
	if !errors.As(err, &invalidExpiry) {
		t.Errorf("Send error = %v, want *InvalidExpiryError", err)
	}
}

func TestSendCacheReusesFingerprint(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	alice := newFakeDatasite(t, "alice@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")
	opts := rpcclient.SendOptions{Body: "same body", Expiry: time.Hour, Cache: true}

	first, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, opts)
	if err != nil {
		t.Fatalf("first Send: %v", err)
	}
	second, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, opts)
	if err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("cached Send returned a new future: %v != %v", first.ID, second.ID)
	}
}

func TestReplyToWritesResponseAndFutureResolves(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	bob := newFakeDatasite(t, "bob@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")

	future, err := rpcclient.Send(ctx, bob, url, rpcproto.MethodPost, rpcclient.SendOptions{
		Body:   "ping",
		Expiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	endpointDir := url.ToLocalPath(bob.root)
	reqPath := rpcproto.RequestPath(endpointDir, bob.identity, future.ID)
	req, err := rpcproto.ReadRequest(reqPath.String())
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}

	if _, err := rpcclient.ReplyTo(bob, req, "pong", nil, rpcproto.StatusCompleted); err != nil {
		t.Fatalf("ReplyTo: %v", err)
	}

	resp, done, err := future.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !done {
		t.Fatalf("Resolve: not done after ReplyTo")
	}
	if string(resp.Body) != "pong" {
		t.Errorf("response body = %q, want %q", resp.Body, "pong")
	}
}

func TestFutureWaitTimesOut(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	alice := newFakeDatasite(t, "alice@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")

	future, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, rpcclient.SendOptions{
		Body:   "ping",
		Expiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, waitErr := future.Wait(ctx, 5*time.Second, time.Second)
		done <- waitErr
	}()

	clk.WaitForTimers(2) // ticker + the overall timeout waiter
	clk.Advance(6 * time.Second)

	waitErr := testutil.RequireReceive(t, done, 2*time.Second, "Wait did not return after Advance")
	var timeoutErr *rpcclient.SyftTimeoutError
	if !errors.As(waitErr, &timeoutErr) {
		t.Errorf("Wait error = %v, want *SyftTimeoutError", waitErr)
	}
}

func TestFutureResolveSynthesizesExpired(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	alice := newFakeDatasite(t, "alice@openmined.org", clk)
	url := mustURL(t, "syft://bob@openmined.org/app_data/chat/rpc/ping")

	future, err := rpcclient.Send(ctx, alice, url, rpcproto.MethodPost, rpcclient.SendOptions{
		Body:   "ping",
		Expiry: time.Minute,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	clk.Advance(2 * time.Minute)

	resp, done, err := future.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !done || resp.Status != rpcproto.StatusExpired {
		t.Errorf("Resolve = (%+v, %v), want StatusExpired", resp, done)
	}
}
