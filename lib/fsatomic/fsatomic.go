// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsatomic

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// WriteOnce atomically writes data to path: a temporary file in the
// same directory is written, synced, and renamed into place. A
// concurrent reader listing the directory or opening path never
// observes a partial write. If path already exists, it is replaced.
//
// The parent directory of path must already exist.
func WriteOnce(path string, data []byte, perm os.FileMode) error {
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("fsatomic: writing %s: %w", path, err)
	}
	return nil
}

// ErrExists is returned by CreateOnce when the destination path
// already has a file.
var ErrExists = errors.New("fsatomic: destination already exists")

// CreateOnce behaves like WriteOnce but refuses to replace an
// existing file at path, returning ErrExists instead. Used wherever a
// duplicate write would indicate an identifier collision rather than
// a legitimate update — request and response files are write-once by
// protocol, never revised in place.
//
// The existence check and the rename are not a single atomic
// operation; under concurrent writers to the same path the last
// rename wins. Callers that need a hard guarantee against collisions
// rely on identifier uniqueness (ULIDs) rather than this check alone.
func CreateOnce(path string, data []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("fsatomic: stat %s: %w", path, err)
	}

	return WriteOnce(path, data, perm)
}

// Touch creates an empty file at path atomically, replacing any
// existing file, for sentinel files (".syftkeep") where only the
// file's existence carries meaning. Rejection markers are not written
// with Touch; they use CreateOnce, which refuses to replace.
func Touch(path string) error {
	return WriteOnce(path, nil, 0o644)
}
