package acl

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/datahaven/aclfs/pkg/aclspec"
	"github.com/datahaven/aclfs/pkg/feed"
	"github.com/datahaven/aclfs/pkg/metrics"
	"github.com/datahaven/aclfs/pkg/store/archive"
)

// Service is the permission resolution engine for one workspace: a root
// directory whose first-level children are datasites.
//
// Resolution, access checks, and compliance checks are pure computations
// over cached policy files and are safe to call concurrently without
// external synchronization; the cache is the only shared mutable state
// on the read path. Mutations are serialized per policy directory.
type Service struct {
	root    string
	cache   *Cache
	hub     *feed.Hub
	archive archive.Store
	metrics metrics.ACLMetrics

	// dirLocks serializes mutations per policy directory.
	lockMu   sync.Mutex
	dirLocks map[string]*sync.Mutex
}

// ServiceConfig carries the optional collaborators of a Service.
type ServiceConfig struct {
	// Feed receives one event per successful mutation. Optional.
	Feed *feed.Hub

	// Archive receives the pre-image of every replaced policy file.
	// Optional.
	Archive archive.Store

	// Metrics collects engine observability. Optional.
	Metrics metrics.ACLMetrics
}

// NewService creates an engine rooted at the given workspace directory.
// The root must exist and be a directory.
func NewService(root string, cfg ServiceConfig) (*Service, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s is not accessible: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	return &Service{
		root:     abs,
		cache:    NewCache(cfg.Metrics),
		hub:      cfg.Feed,
		archive:  cfg.Archive,
		metrics:  cfg.Metrics,
		dirLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the absolute workspace root.
func (s *Service) Root() string {
	return s.root
}

// Cache exposes the policy cache (for diagnostics and tests).
func (s *Service) Cache() *Cache {
	return s.cache
}

// normalizePath validates and cleans a workspace-relative target path.
//
// The first path segment names the datasite, which must exist as a
// directory under the root. Absolute paths, empty paths, and paths that
// escape the workspace yield ErrPathOutsideScope.
func (s *Service) normalizePath(target string) (string, error) {
	if target == "" {
		return "", aclspec.NewError(aclspec.ErrPathOutsideScope, "path must not be empty", target)
	}
	if strings.HasPrefix(target, "/") || filepath.IsAbs(target) {
		return "", aclspec.NewError(aclspec.ErrPathOutsideScope, "path must be workspace-relative", target)
	}

	clean := path.Clean(filepath.ToSlash(target))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", aclspec.NewError(aclspec.ErrPathOutsideScope, "path escapes the workspace", target)
	}

	site := clean
	if i := strings.IndexByte(clean, '/'); i >= 0 {
		site = clean[:i]
	}

	info, err := os.Stat(filepath.Join(s.root, site))
	if err != nil || !info.IsDir() {
		return "", aclspec.NewError(aclspec.ErrPathOutsideScope,
			fmt.Sprintf("no datasite %q in workspace", site), target)
	}

	return clean, nil
}

// Resolve walks the chain of directories from the target's datasite root
// down to its parent and produces the effective permission set.
//
// Precedence: the deepest directory whose policy file contains at least
// one rule matching the target governs; its last-declared matching
// rule's grants and limits replace anything contributed by shallower
// directories. No matching rule anywhere yields an empty set, which is a
// normal outcome, not an error.
func (s *Service) Resolve(target string) (*EffectivePermissionSet, error) {
	start := time.Now()
	set, err := s.resolve(target)
	if s.metrics != nil {
		s.metrics.RecordResolution(time.Since(start), err)
	}
	return set, err
}

func (s *Service) resolve(target string) (*EffectivePermissionSet, error) {
	rel, err := s.normalizePath(target)
	if err != nil {
		return nil, err
	}

	set := &EffectivePermissionSet{Path: rel}

	parts := strings.Split(rel, "/")

	// Ancestor chain from the datasite root to the target's parent,
	// root first. Deeper matches replace shallower ones wholesale.
	for i := 1; i < len(parts); i++ {
		dirRel := strings.Join(parts[:i], "/")
		relToDir := strings.Join(parts[i:], "/")

		rs, err := s.cache.Get(filepath.Join(s.root, filepath.FromSlash(dirRel)))
		if err != nil || rs == nil {
			continue
		}

		if rule := rs.LastMatch(relToDir); rule != nil {
			set.GoverningDir = dirRel
			set.Pattern = rule.Pattern
			set.Access = rule.Access.Clone()
			set.Limits = rule.Limits.Clone()
		}
	}

	return set, nil
}

// CheckCompliance resolves the target and compares its effective limits
// against the given file metadata.
func (s *Service) CheckCompliance(target string, info FileInfo) (ComplianceResult, error) {
	set, err := s.Resolve(target)
	if err != nil {
		return ComplianceResult{}, err
	}
	return CheckCompliance(set.Limits, info), nil
}

// dirLock returns the mutation mutex for a policy directory, creating it
// on first use.
func (s *Service) dirLock(dir string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.dirLocks[dir]
	if !ok {
		lock = &sync.Mutex{}
		s.dirLocks[dir] = lock
	}
	return lock
}
