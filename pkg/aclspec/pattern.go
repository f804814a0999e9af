// Package aclspec defines the on-disk policy file format for ACLFS:
// the glob pattern language, the rule and limits model, and the loader
// that parses a directory's acl.yaml into an ordered rule set.
//
// Pattern Grammar:
// Patterns and paths are segment sequences split on "/". Within a single
// segment, "*" matches any run of non-separator characters (including the
// empty run). A segment consisting of exactly "**" matches zero or more
// whole path segments, crossing directory levels. Multiple "**" segments
// are legal and are resolved independently.
//
// Examples:
//   - "docs/**" matches "docs", "docs/readme.md", and "docs/a/b"
//   - "**/docs/**" matches "docs/readme.md" and "src/docs/guide.md"
//   - "**" matches every path, including the empty path
package aclspec

import "strings"

// segmentKind classifies one compiled pattern segment.
type segmentKind int

const (
	// segLiteral matches exactly one path segment by string equality.
	segLiteral segmentKind = iota

	// segWildcard matches exactly one path segment using "*" wildcards.
	segWildcard

	// segDoubleStar matches zero or more whole path segments.
	segDoubleStar
)

// segment is one compiled element of a Pattern.
type segment struct {
	kind segmentKind
	text string
}

// Pattern is a compiled glob pattern.
//
// A Pattern is immutable after Compile and safe for concurrent use.
// Syntax errors are reported by Compile; Match never fails.
type Pattern struct {
	raw      string
	segments []segment
}

// Compile parses a raw glob pattern into a Pattern.
//
// Returns an Error with code ErrPatternSyntax when the pattern is empty,
// contains an empty segment (doubled or trailing separators), or mixes
// "**" with other characters inside one segment (e.g. "a**", "**b").
func Compile(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, NewError(ErrPatternSyntax, "pattern must not be empty", raw)
	}

	parts := strings.Split(raw, "/")
	segments := make([]segment, 0, len(parts))

	for _, part := range parts {
		switch {
		case part == "":
			return nil, NewError(ErrPatternSyntax, "pattern must not contain empty segments", raw)

		case part == "**":
			segments = append(segments, segment{kind: segDoubleStar})

		case strings.Contains(part, "**"):
			// "**" only matches whole segments; "a**" or "***" is a
			// syntax error rather than a silently narrower match.
			return nil, NewError(ErrPatternSyntax, "'**' must be a whole segment", raw)

		case strings.ContainsRune(part, '*'):
			segments = append(segments, segment{kind: segWildcard, text: part})

		default:
			segments = append(segments, segment{kind: segLiteral, text: part})
		}
	}

	return &Pattern{raw: raw, segments: segments}, nil
}

// MustCompile is like Compile but panics on syntax errors.
// Intended for tests and static defaults such as the catch-all rule.
func MustCompile(raw string) *Pattern {
	p, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether the pattern matches the given relative path.
//
// The path must be slash-separated and relative (no leading "/"). The
// empty string denotes the empty path, which only "**" (or a pattern of
// only "**" segments) matches.
//
// Matching is memoized on (pattern segment index, path segment index)
// pairs, so adversarial patterns with many "**" segments stay polynomial
// instead of backtracking exponentially.
func (p *Pattern) Match(relPath string) bool {
	var path []string
	if relPath != "" {
		path = strings.Split(relPath, "/")
	}

	// memo[pi][si]: 0 = unknown, 1 = match, 2 = no match
	memo := make([][]int8, len(p.segments)+1)
	for i := range memo {
		memo[i] = make([]int8, len(path)+1)
	}

	return p.matchFrom(path, 0, 0, memo)
}

// matchFrom matches pattern segments p.segments[pi:] against path[si:].
func (p *Pattern) matchFrom(path []string, pi, si int, memo [][]int8) bool {
	if pi == len(p.segments) {
		return si == len(path)
	}
	if memo[pi][si] != 0 {
		return memo[pi][si] == 1
	}

	var ok bool
	seg := p.segments[pi]

	if seg.kind == segDoubleStar {
		// Try consuming 0, 1, 2, ... path segments.
		for k := si; k <= len(path); k++ {
			if p.matchFrom(path, pi+1, k, memo) {
				ok = true
				break
			}
		}
	} else if si < len(path) && matchSegment(seg, path[si]) {
		ok = p.matchFrom(path, pi+1, si+1, memo)
	}

	if ok {
		memo[pi][si] = 1
	} else {
		memo[pi][si] = 2
	}
	return ok
}

// matchSegment matches a single non-"**" pattern segment against one
// path segment.
func matchSegment(seg segment, name string) bool {
	if seg.kind == segLiteral {
		return seg.text == name
	}
	return matchWildcard(seg.text, name)
}

// matchWildcard matches a single segment containing "*" wildcards
// against a name, where "*" matches any run of characters (including
// the empty run). Classic two-pointer scan with star backtracking.
func matchWildcard(pattern, name string) bool {
	pi, ni := 0, 0
	star, backtrack := -1, 0

	for ni < len(name) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			backtrack = ni
			pi++

		case pi < len(pattern) && pattern[pi] == name[ni]:
			pi++
			ni++

		case star >= 0:
			// Let the last "*" absorb one more character.
			backtrack++
			pi = star + 1
			ni = backtrack

		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
