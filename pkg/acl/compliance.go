package acl

import (
	"io/fs"

	"github.com/datahaven/aclfs/pkg/aclspec"
)

// FileInfo is the concrete file metadata compliance is checked against.
type FileInfo struct {
	// Path is the workspace-relative path (informational).
	Path string

	// Size is the file size in bytes.
	Size int64

	// IsDir marks directories.
	IsDir bool

	// IsSymlink marks symbolic links.
	IsSymlink bool
}

// FileInfoFromFS converts an fs.FileInfo into the engine's FileInfo.
func FileInfoFromFS(path string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:      path,
		Size:      info.Size(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&fs.ModeSymlink != 0,
	}
}

// ComplianceResult reports how a concrete file measures against resolved
// limits. It is advisory: violations are surfaced to operators and UIs
// but do not block access, which is governed solely by grant sets.
type ComplianceResult struct {
	// HasLimits is false when the resolved rule carries no limits, in
	// which case every other field is trivially true.
	HasLimits bool `json:"has_limits"`

	// SizeCompliant is true when no size limit is set or the file fits.
	SizeCompliant bool `json:"size_compliant"`

	// DirsCompliant is true unless the target is a directory and
	// directories are disallowed.
	DirsCompliant bool `json:"dirs_compliant"`

	// SymlinksCompliant is true unless the target is a symlink and
	// symlinks are disallowed.
	SymlinksCompliant bool `json:"symlinks_compliant"`
}

// Compliant reports whether every individual check passed.
func (r ComplianceResult) Compliant() bool {
	return r.SizeCompliant && r.DirsCompliant && r.SymlinksCompliant
}

// CheckCompliance compares resolved limits against concrete file
// metadata. A nil limits value means no limits apply and everything is
// compliant. Pure function: no I/O, no side effects.
func CheckCompliance(limits *aclspec.Limits, info FileInfo) ComplianceResult {
	if limits == nil {
		return ComplianceResult{
			HasLimits:         false,
			SizeCompliant:     true,
			DirsCompliant:     true,
			SymlinksCompliant: true,
		}
	}

	return ComplianceResult{
		HasLimits:         true,
		SizeCompliant:     limits.WithinSize(info.Size),
		DirsCompliant:     !info.IsDir || limits.DirsAllowed(),
		SymlinksCompliant: !info.IsSymlink || limits.SymlinksAllowed(),
	}
}
