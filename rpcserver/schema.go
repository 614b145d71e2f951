// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcserver

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/openmined/syftrpc/lib/fsatomic"
)

// schemaEndpoint describes one registered route in the published
// schema document.
type schemaEndpoint struct {
	Pattern     string `json:"pattern"`
	HandlerType string `json:"handler_type"`
}

// schemaDocument is the shape of rpc.schema.json: a best-effort
// machine-readable listing of an app's registered routes. The
// original's publish_schema names this feature; the request/response
// Go types a Handler closes over aren't recoverable via reflection, so
// HandlerType records the Handler's func signature instead of a named
// request/response struct pair.
type schemaDocument struct {
	AppName   string           `json:"app_name"`
	Endpoints []schemaEndpoint `json:"endpoints"`
}

// publishSchema writes rpc.schema.json to the app's RPC root,
// replacing any previous schema — WriteOnce rather than CreateOnce,
// since the set of registered routes may legitimately change between
// restarts.
func (s *Server) publishSchema() error {
	doc := schemaDocument{AppName: s.appName}
	for _, r := range s.routes {
		doc.Endpoints = append(doc.Endpoints, schemaEndpoint{
			Pattern:     r.pattern,
			HandlerType: reflect.TypeOf(r.handler).String(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("rpcserver: marshaling schema: %w", err)
	}
	data = append(data, '\n')

	path := s.appRoot.Join(schemaFileName).String()
	if err := fsatomic.WriteOnce(path, data, 0o644); err != nil {
		return fmt.Errorf("rpcserver: writing schema %s: %w", path, err)
	}
	return nil
}

// schemaFileName is the well-known path the published route schema is
// written to, directly beneath an app's RPC root.
const schemaFileName = "rpc.schema.json"
