// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration
// used by the protocol package for its records and HTTP envelope.
//
// Request and response records and the HTTP envelope are CBOR:
// compact, self-describing, and able to skip unknown trailing fields
// without hand-rolled versioning. The route schema that rpcserver
// publishes is JSON, not CBOR.
// This package provides the shared encoding and decoding modes so
// every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces
// identical bytes.
//
// For buffer-oriented operations (files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct Tag Rules
//
// Types in this module that round-trip through CBOR use a `cbor`
// struct tag; fxamacker/cbor v2 falls back to `json` tags when `cbor`
// tags are absent, so a type that is also ever serialized as JSON
// (for diagnostics or the schema file) may carry just a `json` tag
// and it will govern both formats. Never use both tags on the same
// field — the tag choice documents the contract.
package codec
