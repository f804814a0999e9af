// Package datasite provides bulk listing of datasite trees with each
// entry decorated by its resolved permissions and compliance state.
package datasite

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datahaven/aclfs/pkg/acl"
	"github.com/datahaven/aclfs/pkg/aclspec"
)

const (
	// DefaultLimit is the page size applied when the caller passes zero.
	DefaultLimit = 50

	// MaxLimit caps the page size.
	MaxLimit = 1000
)

// ListParams selects and pages a datasite listing.
type ListParams struct {
	// Limit is the maximum number of entries to return. Zero selects
	// DefaultLimit; values outside [1, MaxLimit] are rejected.
	Limit int

	// Offset is the number of entries to skip. Must be >= 0.
	Offset int

	// Search filters entries to those whose relative path contains the
	// given substring, case-insensitively. Empty matches everything.
	Search string
}

// normalize applies defaults and validates bounds.
func (p ListParams) normalize() (ListParams, error) {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, aclspec.NewError(aclspec.ErrInvalidArgument, "limit must be between 1 and 1000", "")
	}
	if p.Offset < 0 {
		return p, aclspec.NewError(aclspec.ErrInvalidArgument, "offset must not be negative", "")
	}
	return p, nil
}

// Entry is one listed file or directory with its resolved permission
// and compliance state.
type Entry struct {
	// Path is the workspace-relative path, datasite name included.
	Path string `json:"path"`

	// Size is the file size in bytes; zero for directories.
	Size int64 `json:"size"`

	// IsDir marks directories.
	IsDir bool `json:"is_dir"`

	// Permissions is the level-to-principals snapshot of the entry's
	// effective permission set.
	Permissions map[aclspec.AccessLevel][]string `json:"permissions"`

	// IsPublic reports whether any level grants the Everyone wildcard.
	IsPublic bool `json:"is_public"`

	// Compliance reports the entry against its resolved limits.
	Compliance acl.ComplianceResult `json:"compliance"`
}

// Page is one page of a listing together with the total match count
// before paging.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

// Lister walks datasite trees and decorates entries through the
// resolution engine. The engine's policy cache makes a full-tree walk
// cost one policy read per unique directory rather than per file.
type Lister struct {
	service *acl.Service
}

// NewLister creates a Lister over the given resolution service.
func NewLister(service *acl.Service) *Lister {
	return &Lister{service: service}
}

// List walks the named datasite and returns the selected page.
//
// Entries are sorted by path for stable paging. The datasite name must
// be a bare directory name directly under the workspace root; anything
// else yields ErrPathOutsideScope.
func (l *Lister) List(ctx context.Context, datasite string, params ListParams) (*Page, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	if datasite == "" || strings.ContainsAny(datasite, "/\\") || datasite == "." || datasite == ".." {
		return nil, aclspec.NewError(aclspec.ErrPathOutsideScope, "invalid datasite name", datasite)
	}

	siteAbs := filepath.Join(l.service.Root(), datasite)
	info, err := os.Stat(siteAbs)
	if err != nil || !info.IsDir() {
		return nil, aclspec.NewError(aclspec.ErrPathOutsideScope, "unknown datasite", datasite)
	}

	search := strings.ToLower(params.Search)

	var entries []Entry
	err = filepath.WalkDir(siteAbs, func(abs string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if abs == siteAbs {
			return nil
		}

		relToSite, err := filepath.Rel(siteAbs, abs)
		if err != nil {
			return err
		}
		rel := datasite + "/" + filepath.ToSlash(relToSite)

		if search != "" && !strings.Contains(strings.ToLower(rel), search) {
			return nil
		}

		entry, err := l.decorate(rel, d)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	total := len(entries)
	if params.Offset >= total {
		return &Page{Entries: []Entry{}, Total: total}, nil
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}

	return &Page{Entries: entries[params.Offset:end], Total: total}, nil
}

// decorate resolves one entry's permission set and compliance state.
func (l *Lister) decorate(rel string, d fs.DirEntry) (Entry, error) {
	set, err := l.service.Resolve(rel)
	if err != nil {
		return Entry{}, err
	}

	fi, err := d.Info()
	if err != nil {
		return Entry{}, err
	}
	info := acl.FileInfoFromFS(rel, fi)

	entry := Entry{
		Path:        rel,
		IsDir:       info.IsDir,
		Permissions: set.Snapshot(),
		IsPublic:    set.IsPublic(),
		Compliance:  acl.CheckCompliance(set.Limits, info),
	}
	if !info.IsDir {
		entry.Size = info.Size
	}
	return entry, nil
}
