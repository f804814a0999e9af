package acl

import (
	"sort"

	"github.com/datahaven/aclfs/pkg/aclspec"
)

// PublicLabel is the sentinel the Summary method substitutes for the
// Everyone wildcard in human-facing output.
const PublicLabel = "public"

// EffectivePermissionSet is the resolved result for one target path: the
// grants and limits of the winning rule, plus the directory whose policy
// file contributed it.
//
// A set is immutable once produced. Resolution recomputes it on every
// call; the cache operates at the policy-file level, not here.
type EffectivePermissionSet struct {
	// Path is the workspace-relative path this set was resolved for.
	Path string

	// GoverningDir is the workspace-relative directory whose policy file
	// contributed the winning rule. Empty when no rule matched anywhere
	// in the ancestor chain.
	GoverningDir string

	// Pattern is the winning rule's glob pattern. Empty when no rule
	// matched.
	Pattern string

	// Access holds the winning rule's grants (deep copy).
	Access aclspec.Access

	// Limits holds the winning rule's limits (deep copy), or nil.
	Limits *aclspec.Limits
}

// HasAccess reports whether the principal holds the given level, either
// literally or through the Everyone wildcard.
func (s *EffectivePermissionSet) HasAccess(level aclspec.AccessLevel, principal string) bool {
	return s.Access.Has(level, principal)
}

// HasAnyAccess reports whether any level grants access to the principal.
func (s *EffectivePermissionSet) HasAnyAccess(principal string) bool {
	for _, level := range aclspec.Levels() {
		if s.Access.Has(level, principal) {
			return true
		}
	}
	return false
}

// IsPublic reports whether the Everyone wildcard appears in any level.
func (s *EffectivePermissionSet) IsPublic() bool {
	for _, level := range aclspec.Levels() {
		for _, p := range s.Access.Level(level) {
			if p == aclspec.Everyone {
				return true
			}
		}
	}
	return false
}

// Summary returns the union of all granted principals, sorted, with the
// Everyone wildcard normalized to PublicLabel.
func (s *EffectivePermissionSet) Summary() []string {
	seen := make(map[string]struct{})
	for _, level := range aclspec.Levels() {
		for _, p := range s.Access.Level(level) {
			if p == aclspec.Everyone {
				p = PublicLabel
			}
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the full grant set per level, sorted for stable
// output. Every level is present, with an empty (non-nil) list when
// nothing is granted; this is the wire shape of the permission query
// interface.
func (s *EffectivePermissionSet) Snapshot() map[aclspec.AccessLevel][]string {
	out := make(map[aclspec.AccessLevel][]string, 4)
	for _, level := range aclspec.Levels() {
		src := s.Access.Level(level)
		dst := make([]string, len(src))
		copy(dst, src)
		sort.Strings(dst)
		out[level] = dst
	}
	return out
}
