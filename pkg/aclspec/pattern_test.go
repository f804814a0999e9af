package aclspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty pattern", ""},
		{"double separator", "docs//readme.md"},
		{"trailing separator", "docs/"},
		{"leading separator", "/docs"},
		{"doublestar prefix", "**docs"},
		{"doublestar suffix", "docs**"},
		{"doublestar infix", "a**b"},
		{"triple star", "***"},
		{"mixed star segment", "docs/a**/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrPatternSyntax), "expected ErrPatternSyntax, got %v", err)
		})
	}
}

func TestCompile_Valid(t *testing.T) {
	valid := []string{
		"**",
		"*",
		"docs",
		"docs/**",
		"**/docs/**",
		"*.txt",
		"docs/*/readme.md",
		"a/**/b/**/c",
		"prefix*suffix",
	}

	for _, pattern := range valid {
		p, err := Compile(pattern)
		require.NoError(t, err, "pattern %q", pattern)
		assert.Equal(t, pattern, p.String())
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// Trailing ** consumes zero or more segments.
		{"docs/**", "docs", true},
		{"docs/**", "docs/readme.md", true},
		{"docs/**", "docs/a/b", true},
		{"docs/**", "documentation/readme.md", false},
		{"docs/**", "src/docs/readme.md", false},

		// Leading ** consumes zero or more segments.
		{"**/docs/**", "docs/readme.md", true},
		{"**/docs/**", "src/docs/guide.md", true},
		{"**/docs/**", "docs", true},
		{"**/docs/**", "documentation/readme.md", false},
		{"**/docs/**", "src/documentation/guide.md", false},

		// Bare ** matches everything, including the empty path.
		{"**", "", true},
		{"**", "a", true},
		{"**", "a/b/c", true},

		// Multiple ** segments resolve independently.
		{"a/**/b/**/c", "a/b/c", true},
		{"a/**/b/**/c", "a/x/b/y/z/c", true},
		{"a/**/b/**/c", "a/x/y/c", false},
		{"**/**", "", true},
		{"**/**", "a/b", true},

		// Single-segment wildcards never cross separators.
		{"*", "readme.md", true},
		{"*", "docs/readme.md", false},
		{"*", "", false},
		{"*.txt", "notes.txt", true},
		{"*.txt", ".txt", true},
		{"*.txt", "notes.md", false},
		{"*.txt", "docs/notes.txt", false},
		{"docs/*.txt", "docs/notes.txt", true},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},

		// Literal segments.
		{"docs/readme.md", "docs/readme.md", true},
		{"docs/readme.md", "docs/readme.txt", false},
		{"docs/readme.md", "docs", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			assert.Equal(t, tt.want, p.Match(tt.path),
				"pattern %q against path %q", tt.pattern, tt.path)
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	p := MustCompile("**/docs/**")
	for i := 0; i < 10; i++ {
		assert.True(t, p.Match("src/docs/guide.md"))
		assert.False(t, p.Match("src/documentation/guide.md"))
	}
}

// TestMatch_AdversarialPattern exercises the memoized backtracking on a
// pattern and path crafted to explode a naive implementation.
func TestMatch_AdversarialPattern(t *testing.T) {
	pattern := strings.TrimSuffix(strings.Repeat("**/", 30), "/") + "/zz"
	path := strings.TrimSuffix(strings.Repeat("a/", 60), "/")

	p := MustCompile(pattern)
	assert.False(t, p.Match(path))
	assert.True(t, p.Match(path+"/zz"))
}
