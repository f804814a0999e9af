// Package archive defines the policy version archive.
//
// On every successful mutation the engine hands the pre-image of the
// replaced policy file to an archive store, producing an append-only
// version history per directory. The history is advisory: archive
// failures are logged but never fail the mutation that triggered them.
package archive

import (
	"context"
	"time"
)

// Store persists historical versions of policy files.
//
// Implementations must be safe for concurrent use; the mutation service
// may archive from several datasite directories in parallel.
type Store interface {
	// Put archives one policy file version. directory is the
	// workspace-relative directory the policy governs, when is the
	// moment the version was replaced, and content is the full previous
	// document.
	Put(ctx context.Context, directory string, when time.Time, content []byte) error
}

// VersionName formats the archive object name for a version replaced at
// the given time. Nanosecond precision keeps rapid successive mutations
// from colliding.
func VersionName(when time.Time) string {
	return when.UTC().Format("20060102T150405.000000000Z") + ".yaml"
}
