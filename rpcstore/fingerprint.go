// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/openmined/syftrpc/rpcproto"
)

// Fingerprint computes the cache key for a send: sha256(method ||
// canonical-url || canonical-headers || body). The canonical header
// form sorts the "lowercased-name=value" pair strings, so two logically
// identical header sets in different orders produce the same
// fingerprint; the canonical URL form is simply url's exact string
// (SyftURL reconstruction is already byte-exact).
func Fingerprint(method rpcproto.Method, url string, headers rpcproto.Headers, body []byte) string {
	hash := sha256.New()
	hash.Write([]byte(method))
	hash.Write([]byte(url))
	hash.Write([]byte(canonicalHeaders(headers)))
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

func canonicalHeaders(headers rpcproto.Headers) string {
	pairs := make([]string, 0, len(headers))
	for _, field := range headers {
		pairs = append(pairs, strings.ToLower(field.Name)+"="+field.Value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}
