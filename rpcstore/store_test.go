// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcstore_test

import (
	"context"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/openmined/syftrpc/rpcproto"
	"github.com/openmined/syftrpc/rpcstore"
)

func openTestStore(t *testing.T) *rpcstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "futures.db")
	store, err := rpcstore.Open(rpcstore.Config{Path: path, PoolSize: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testFuture(t *testing.T, now time.Time) rpcstore.Future {
	t.Helper()
	id := rpcproto.NewID(now, rand.Reader)
	return rpcstore.Future{
		ID:           id,
		URL:          "syft://alice@openmined.org/app_data/chat/rpc/ping",
		ResponsePath: "/workspace/datasites/alice@openmined.org/app_data/chat/rpc/ping/bob@openmined.org/" + id.String() + ".response",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
		Fingerprint:  rpcstore.Fingerprint(rpcproto.MethodPost, "syft://alice@openmined.org/app_data/chat/rpc/ping", nil, []byte("hello")),
	}
}

func TestRegisterAndLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	future := testFuture(t, now)
	if err := store.Register(ctx, future); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok, err := store.Lookup(ctx, future.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("Lookup: not found")
	}
	if got.URL != future.URL || got.ResponsePath != future.ResponsePath {
		t.Errorf("Lookup mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(future.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, future.CreatedAt)
	}
	if got.Resolved {
		t.Errorf("Resolved = true, want false")
	}
}

func TestLookupMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, ulid.Make())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Errorf("Lookup: found unexpectedly")
	}
}

func TestLookupByFingerprintCacheHit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	future := testFuture(t, now)
	if err := store.Register(ctx, future); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok, err := store.LookupByFingerprint(ctx, future.Fingerprint)
	if err != nil {
		t.Fatalf("LookupByFingerprint: %v", err)
	}
	if !ok {
		t.Fatalf("LookupByFingerprint: not found")
	}
	if got.ID != future.ID {
		t.Errorf("ID = %v, want %v", got.ID, future.ID)
	}
}

func TestLookupByFingerprintExcludesResolved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	future := testFuture(t, now)
	if err := store.Register(ctx, future); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := store.MarkResolved(ctx, future.ID); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}

	_, ok, err := store.LookupByFingerprint(ctx, future.Fingerprint)
	if err != nil {
		t.Fatalf("LookupByFingerprint: %v", err)
	}
	if ok {
		t.Errorf("LookupByFingerprint: found a resolved future")
	}
}

func TestListPendingExcludesResolvedAndExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	pending := testFuture(t, now)
	if err := store.Register(ctx, pending); err != nil {
		t.Fatalf("Register pending: %v", err)
	}

	resolved := testFuture(t, now.Add(time.Millisecond))
	if err := store.Register(ctx, resolved); err != nil {
		t.Fatalf("Register resolved: %v", err)
	}
	if err := store.MarkResolved(ctx, resolved.ID); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}

	expired := testFuture(t, now.Add(2*time.Millisecond))
	expired.ExpiresAt = now.Add(-time.Minute)
	if err := store.Register(ctx, expired); err != nil {
		t.Fatalf("Register expired: %v", err)
	}

	got, err := store.ListPending(ctx, now)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("ListPending = %+v, want only %v", got, pending.ID)
	}
}

func TestDrop(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	future := testFuture(t, now)
	if err := store.Register(ctx, future); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := store.Drop(ctx, future.ID); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	_, ok, err := store.Lookup(ctx, future.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Errorf("Lookup: future survived Drop")
	}
}

func TestDropExpiredBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	stale := testFuture(t, now)
	stale.ExpiresAt = now.Add(-time.Hour)
	if err := store.Register(ctx, stale); err != nil {
		t.Fatalf("Register stale: %v", err)
	}

	fresh := testFuture(t, now.Add(time.Millisecond))
	fresh.ExpiresAt = now.Add(time.Hour)
	if err := store.Register(ctx, fresh); err != nil {
		t.Fatalf("Register fresh: %v", err)
	}

	n, err := store.DropExpiredBefore(ctx, now)
	if err != nil {
		t.Fatalf("DropExpiredBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("DropExpiredBefore removed %d rows, want 1", n)
	}

	if _, ok, _ := store.Lookup(ctx, stale.ID); ok {
		t.Errorf("stale future survived DropExpiredBefore")
	}
	if _, ok, _ := store.Lookup(ctx, fresh.ID); !ok {
		t.Errorf("fresh future was removed by DropExpiredBefore")
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	a := rpcproto.Headers{{Name: "X-One", Value: "1"}, {Name: "X-Two", Value: "2"}}
	b := rpcproto.Headers{{Name: "x-two", Value: "2"}, {Name: "x-one", Value: "1"}}

	fa := rpcstore.Fingerprint(rpcproto.MethodGet, "syft://alice@openmined.org/app_data/chat/rpc/ping", a, []byte("body"))
	fb := rpcstore.Fingerprint(rpcproto.MethodGet, "syft://alice@openmined.org/app_data/chat/rpc/ping", b, []byte("body"))
	if fa != fb {
		t.Errorf("fingerprints differ for reordered headers: %q != %q", fa, fb)
	}

	fc := rpcstore.Fingerprint(rpcproto.MethodGet, "syft://alice@openmined.org/app_data/chat/rpc/ping", a, []byte("different"))
	if fa == fc {
		t.Errorf("fingerprints match despite different bodies")
	}
}
