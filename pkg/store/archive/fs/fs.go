// Package fs implements filesystem-based policy version archival.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/datahaven/aclfs/pkg/store/archive"
)

// Store archives policy versions under a local root directory using the
// layout <root>/<governed directory>/<version name>.
type Store struct {
	root string
}

// New creates a filesystem archive store rooted at the given directory,
// creating it if necessary.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem archive store: root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Put writes one archived policy version.
func (s *Store) Put(ctx context.Context, directory string, when time.Time, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.root, filepath.FromSlash(directory))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, archive.VersionName(when))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write archived policy %s: %w", path, err)
	}

	return nil
}
