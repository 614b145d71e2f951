// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcclient

import (
	"github.com/openmined/syftrpc/lib/config"
	"github.com/openmined/syftrpc/permissions"
	"github.com/openmined/syftrpc/rpcstore"
	"github.com/openmined/syftrpc/syfturl"
)

// Datasite is the host application's view of its own identity and
// workspace, supplied by the caller rather than discovered from
// ambient globals. A narrow interface here keeps [Send], [Broadcast],
// and [ReplyTo] testable against a fake without standing up a real
// workspace tree.
type Datasite interface {
	// Identity returns the local principal's email, used as Sender on
	// outgoing requests and as the owner-override principal for
	// permission checks on paths under datasites/<identity>/....
	Identity() string

	// WorkspaceRoot returns the absolute path to the synced workspace
	// root (the directory containing datasites/).
	WorkspaceRoot() syfturl.AbsolutePath

	// Permissions returns the permission engine rooted at WorkspaceRoot.
	Permissions() *permissions.Engine

	// Store returns the future store backing this app's outstanding
	// sends.
	Store() *rpcstore.Store

	// Config returns the loaded host application configuration.
	Config() *config.Config
}
