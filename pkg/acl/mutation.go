package acl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/pkg/aclspec"
	"github.com/datahaven/aclfs/pkg/feed"
)

// Action selects the direction of a permission mutation.
type Action string

const (
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

// Valid reports whether the action is grant or revoke.
func (a Action) Valid() bool {
	return a == ActionGrant || a == ActionRevoke
}

// Update grants or revokes one principal at one level for the policy
// file governing target, and returns the freshly resolved permission set.
//
// The governing policy file is located via a resolve pass; when no rule
// matches anywhere in the chain, a new policy file with a single
// catch-all rule is created in the target's own directory. The rewrite
// is atomic (temp file + rename), serialized per directory within this
// process, and guarded by an advisory file lock against cooperating
// external processes. A non-cooperating external writer racing this
// process is detected by mtime comparison and reported as
// ErrConcurrentWrite; atomic rename semantics guarantee readers never
// observe a partially written document either way.
//
// The context covers the filesystem work and the optional archive
// upload. The cache entry for the governing directory is invalidated and
// one feed event is published on every effective change; a mutation that
// changes nothing (granting an existing principal, revoking an absent
// one) rewrites nothing and publishes nothing.
func (s *Service) Update(ctx context.Context, target, principal string, level aclspec.AccessLevel, action Action) (*EffectivePermissionSet, error) {
	start := time.Now()
	set, err := s.update(ctx, target, principal, level, action)
	if s.metrics != nil {
		s.metrics.RecordMutation(string(action), time.Since(start), err)
	}
	return set, err
}

func (s *Service) update(ctx context.Context, target, principal string, level aclspec.AccessLevel, action Action) (*EffectivePermissionSet, error) {
	if principal == "" {
		return nil, aclspec.NewError(aclspec.ErrInvalidArgument, "principal must not be empty", target)
	}
	if !level.Valid() {
		return nil, aclspec.NewError(aclspec.ErrInvalidArgument,
			fmt.Sprintf("unknown permission level %q", level), target)
	}
	if !action.Valid() {
		return nil, aclspec.NewError(aclspec.ErrInvalidArgument,
			fmt.Sprintf("unknown action %q", action), target)
	}

	rel, err := s.normalizePath(target)
	if err != nil {
		return nil, err
	}

	current, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}

	// The governing directory owns the rewrite. Without one, a new
	// policy file with a catch-all rule is created next to the target.
	govRel := current.GoverningDir
	created := false
	if govRel == "" {
		govRel = parentDir(rel)
		created = true
	}
	govAbs := filepath.Join(s.root, filepath.FromSlash(govRel))

	if created {
		// Granting on a path whose directory does not exist yet is
		// legal; the policy file anchors the directory.
		if err := os.MkdirAll(govAbs, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create policy directory %s: %w", govRel, err)
		}
	}

	lock := s.dirLock(govAbs)
	lock.Lock()
	defer lock.Unlock()

	fileLock := flock.New(aclspec.Path(govAbs) + ".lock")
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock policy file in %s: %w", govRel, err)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			logger.Warn("Failed to release policy file lock in %s: %v", govRel, err)
		}
	}()

	rs, prevContent, prevModTime, err := s.loadForUpdate(govAbs, created)
	if err != nil {
		return nil, err
	}

	relToGov := relativeTo(rel, govRel)
	rule := rs.LastMatch(relToGov)
	if rule == nil {
		// The governing file changed under us and no longer matches.
		return nil, aclspec.NewError(aclspec.ErrConcurrentWrite,
			"policy file changed during update", govRel)
	}

	var changed bool
	switch action {
	case ActionGrant:
		changed = rule.Access.Grant(level, principal)
	case ActionRevoke:
		changed = rule.Access.Revoke(level, principal)
	}

	if !changed {
		// Idempotent no-op: nothing to rewrite or publish.
		return s.Resolve(rel)
	}

	if err := s.writeRuleSet(govAbs, rs, prevModTime); err != nil {
		return nil, err
	}
	s.cache.Invalidate(govAbs)

	s.archivePrevious(ctx, govRel, prevContent)
	s.publishChange(rel, govRel, principal, level, action, created)

	logger.Debug("Policy update: %s %s %s on %s (governing %s)",
		action, principal, level, rel, govRel)

	return s.Resolve(rel)
}

// loadForUpdate reads the governing policy file for a rewrite, returning
// the parsed rule set, the raw previous content (nil when the file is
// being created), and the previous modification time.
//
// Unlike the resolution path, parse failures are propagated here:
// rewriting a document the engine cannot parse would destroy rules the
// author may be able to repair by hand.
func (s *Service) loadForUpdate(govAbs string, created bool) (*aclspec.RuleSet, []byte, time.Time, error) {
	if created {
		return aclspec.NewRuleSet(govAbs, aclspec.NewDefaultRule(aclspec.Access{}, nil)), nil, time.Time{}, nil
	}

	info, err := os.Stat(aclspec.Path(govAbs))
	if err != nil {
		return nil, nil, time.Time{}, aclspec.WrapError(aclspec.ErrConcurrentWrite,
			"governing policy file disappeared during update", govAbs, err)
	}

	prevContent, err := os.ReadFile(aclspec.Path(govAbs))
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	rs, err := aclspec.ParseRuleSet(govAbs, prevContent)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	rs.ModTime = info.ModTime()

	return rs, prevContent, info.ModTime(), nil
}

// writeRuleSet serializes the rule set and atomically replaces the
// directory's policy file, failing with ErrConcurrentWrite when the
// on-disk file was modified after prevModTime.
func (s *Service) writeRuleSet(govAbs string, rs *aclspec.RuleSet, prevModTime time.Time) error {
	data, err := rs.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(govAbs, ".acl-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary policy file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary policy file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temporary policy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary policy file: %w", err)
	}

	// Last-moment external writer detection. In-process writers are
	// already excluded by the per-directory mutex.
	info, err := os.Stat(aclspec.Path(govAbs))
	switch {
	case err == nil && prevModTime.IsZero():
		// We are creating the file but someone else already has.
		os.Remove(tmpName)
		return aclspec.NewError(aclspec.ErrConcurrentWrite,
			"policy file created concurrently", govAbs)
	case err == nil && !info.ModTime().Equal(prevModTime):
		os.Remove(tmpName)
		return aclspec.NewError(aclspec.ErrConcurrentWrite,
			"policy file modified concurrently", govAbs)
	case err != nil && !os.IsNotExist(err):
		os.Remove(tmpName)
		return fmt.Errorf("failed to stat policy file: %w", err)
	case err != nil && os.IsNotExist(err) && !prevModTime.IsZero():
		os.Remove(tmpName)
		return aclspec.NewError(aclspec.ErrConcurrentWrite,
			"policy file deleted concurrently", govAbs)
	}

	if err := os.Rename(tmpName, aclspec.Path(govAbs)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace policy file: %w", err)
	}

	return nil
}

// archivePrevious stores the replaced document's pre-image. Archive
// failures are logged, not propagated: history is advisory and must not
// fail the mutation that already committed.
func (s *Service) archivePrevious(ctx context.Context, govRel string, prevContent []byte) {
	if s.archive == nil || prevContent == nil {
		return
	}
	if err := s.archive.Put(ctx, govRel, time.Now(), prevContent); err != nil {
		logger.Warn("Failed to archive previous policy for %s: %v", govRel, err)
	}
}

// publishChange emits the feed event for a committed mutation.
func (s *Service) publishChange(rel, govRel, principal string, level aclspec.AccessLevel, action Action, created bool) {
	if s.hub == nil {
		return
	}

	eventType := feed.EventGrant
	if action == ActionRevoke {
		eventType = feed.EventRevoke
	}
	if created {
		eventType = feed.EventPolicyWrite
	}

	_, err := s.hub.Publish(feed.Event{
		Type:      eventType,
		Directory: govRel,
		Path:      rel,
		Principal: principal,
		Level:     string(level),
		Time:      time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to publish feed event for %s: %v", govRel, err)
	}
}

// parentDir returns the slash-separated parent of a workspace-relative
// path, or the path itself when it has no parent inside the workspace.
func parentDir(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}

// relativeTo strips the governing directory prefix from a target path.
func relativeTo(rel, govRel string) string {
	if rel == govRel {
		return ""
	}
	return strings.TrimPrefix(rel, govRel+"/")
}
