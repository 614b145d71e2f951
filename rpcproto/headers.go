// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcproto

import "strings"

// HeaderField is one name/value pair. Headers are an ordered list
// rather than a map so duplicate names (explicitly allowed by
// spec) and declaration order survive a round trip.
type HeaderField struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value"`
}

// Headers is a case-insensitive, duplicate-tolerant ordered header
// list, used for both request/response records and the HTTP envelope.
type Headers []HeaderField

// Get returns the value of the first field matching name
// case-insensitively, and whether one was found.
func (h Headers) Get(name string) (string, bool) {
	for _, field := range h {
		if strings.EqualFold(field.Name, name) {
			return field.Value, true
		}
	}
	return "", false
}

// Values returns every value for fields matching name
// case-insensitively, preserving declaration order.
func (h Headers) Values(name string) []string {
	var values []string
	for _, field := range h {
		if strings.EqualFold(field.Name, name) {
			values = append(values, field.Value)
		}
	}
	return values
}

// Add appends a field, preserving any existing fields of the same
// name.
func (h Headers) Add(name, value string) Headers {
	return append(h, HeaderField{Name: name, Value: value})
}

// Set removes every existing field matching name case-insensitively
// and appends a single field with the given value.
func (h Headers) Set(name, value string) Headers {
	filtered := h[:0:0]
	for _, field := range h {
		if !strings.EqualFold(field.Name, name) {
			filtered = append(filtered, field)
		}
	}
	return append(filtered, HeaderField{Name: name, Value: value})
}
