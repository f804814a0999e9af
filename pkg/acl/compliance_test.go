package acl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datahaven/aclfs/pkg/aclspec"
)

func TestCheckCompliance(t *testing.T) {
	tests := []struct {
		name   string
		limits *aclspec.Limits
		info   FileInfo
		want   ComplianceResult
	}{
		{
			name:   "nil limits are trivially compliant",
			limits: nil,
			info:   FileInfo{Size: 1 << 40, IsDir: true, IsSymlink: true},
			want: ComplianceResult{
				HasLimits:         false,
				SizeCompliant:     true,
				DirsCompliant:     true,
				SymlinksCompliant: true,
			},
		},
		{
			name:   "oversized file",
			limits: aclspec.NewLimits(10000, true, true),
			info:   FileInfo{Size: 20000},
			want: ComplianceResult{
				HasLimits:         true,
				SizeCompliant:     false,
				DirsCompliant:     true,
				SymlinksCompliant: true,
			},
		},
		{
			name:   "file exactly at the limit",
			limits: aclspec.NewLimits(10000, true, true),
			info:   FileInfo{Size: 10000},
			want: ComplianceResult{
				HasLimits:         true,
				SizeCompliant:     true,
				DirsCompliant:     true,
				SymlinksCompliant: true,
			},
		},
		{
			name:   "directory where directories are disallowed",
			limits: aclspec.NewLimits(10000, false, true),
			info:   FileInfo{IsDir: true},
			want: ComplianceResult{
				HasLimits:         true,
				SizeCompliant:     true,
				DirsCompliant:     false,
				SymlinksCompliant: true,
			},
		},
		{
			name:   "symlink where symlinks are disallowed",
			limits: aclspec.NewLimits(10000, true, false),
			info:   FileInfo{IsSymlink: true},
			want: ComplianceResult{
				HasLimits:         true,
				SizeCompliant:     true,
				DirsCompliant:     true,
				SymlinksCompliant: false,
			},
		},
		{
			name: "unset fields do not restrict",
			limits: &aclspec.Limits{
				MaxFileSize: nil,
			},
			info: FileInfo{Size: 1 << 40, IsDir: true, IsSymlink: true},
			want: ComplianceResult{
				HasLimits:         true,
				SizeCompliant:     true,
				DirsCompliant:     true,
				SymlinksCompliant: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckCompliance(tt.limits, tt.info)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.SizeCompliant && tt.want.DirsCompliant && tt.want.SymlinksCompliant, got.Compliant())
		})
	}
}

func TestFileInfoFromFS(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0o644))
	link := filepath.Join(dir, "payload.link")
	require.NoError(t, os.Symlink(file, link))

	fi, err := os.Lstat(file)
	require.NoError(t, err)
	info := FileInfoFromFS("alice@example.com/payload.bin", fi)
	assert.Equal(t, int64(2048), info.Size)
	assert.False(t, info.IsDir)
	assert.False(t, info.IsSymlink)

	li, err := os.Lstat(link)
	require.NoError(t, err)
	linfo := FileInfoFromFS("alice@example.com/payload.link", li)
	assert.True(t, linfo.IsSymlink)

	di, err := os.Lstat(dir)
	require.NoError(t, err)
	dinfo := FileInfoFromFS("alice@example.com", di)
	assert.True(t, dinfo.IsDir)
}

func TestResolve_ComplianceAgainstLimits(t *testing.T) {
	svc, site := newWorkspace(t)
	savePolicy(t, site,
		aclspec.NewRule("**", aclspec.Access{Read: []string{alice}}, aclspec.NewLimits(10000, false, false)),
	)

	result, err := svc.CheckCompliance(alice+"/big.bin", FileInfo{Path: alice + "/big.bin", Size: 20000})
	require.NoError(t, err)
	assert.True(t, result.HasLimits)
	assert.False(t, result.SizeCompliant)
	assert.False(t, result.Compliant())

	result, err = svc.CheckCompliance(alice+"/small.bin", FileInfo{Path: alice + "/small.bin", Size: 12})
	require.NoError(t, err)
	assert.True(t, result.Compliant())
}
