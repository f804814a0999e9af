package aclspec

// Everyone is the public wildcard principal. It matches any principal
// during access checks.
const Everyone = "*"

// AllFiles is the catch-all pattern matching every path under a
// directory, including the directory itself.
const AllFiles = "**"

// AccessLevel identifies one independent grant bucket.
//
// Levels do not imply each other: granting admin does not grant write.
// A principal holds a level only when a rule explicitly lists it (or the
// wildcard) under that level.
type AccessLevel string

const (
	AccessRead   AccessLevel = "read"
	AccessCreate AccessLevel = "create"
	AccessWrite  AccessLevel = "write"
	AccessAdmin  AccessLevel = "admin"
)

// Levels returns all permission levels in canonical order.
func Levels() []AccessLevel {
	return []AccessLevel{AccessRead, AccessCreate, AccessWrite, AccessAdmin}
}

// Valid reports whether the level is one of the four known levels.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessRead, AccessCreate, AccessWrite, AccessAdmin:
		return true
	}
	return false
}

// Access maps each permission level to its set of principals.
//
// Principal lists behave as sets: duplicates are removed on load and on
// grant, and order is not significant. A literal principal is an exact
// string (typically an email address); Everyone ("*") grants the level
// to any principal.
type Access struct {
	Read   []string `yaml:"read,omitempty" json:"read"`
	Create []string `yaml:"create,omitempty" json:"create"`
	Write  []string `yaml:"write,omitempty" json:"write"`
	Admin  []string `yaml:"admin,omitempty" json:"admin"`
}

// Level returns the principal set for the given level.
func (a *Access) Level(level AccessLevel) []string {
	switch level {
	case AccessRead:
		return a.Read
	case AccessCreate:
		return a.Create
	case AccessWrite:
		return a.Write
	case AccessAdmin:
		return a.Admin
	}
	return nil
}

// setLevel replaces the principal set for the given level.
func (a *Access) setLevel(level AccessLevel, principals []string) {
	switch level {
	case AccessRead:
		a.Read = principals
	case AccessCreate:
		a.Create = principals
	case AccessWrite:
		a.Write = principals
	case AccessAdmin:
		a.Admin = principals
	}
}

// Has reports whether the principal is listed under the level, either
// literally or via the Everyone wildcard.
func (a *Access) Has(level AccessLevel, principal string) bool {
	for _, p := range a.Level(level) {
		if p == principal || p == Everyone {
			return true
		}
	}
	return false
}

// Grant adds the principal to the level's set.
// Returns false when the principal was already listed literally.
func (a *Access) Grant(level AccessLevel, principal string) bool {
	current := a.Level(level)
	for _, p := range current {
		if p == principal {
			return false
		}
	}
	a.setLevel(level, append(current, principal))
	return true
}

// Revoke removes the principal from the level's set.
// Returns false when the principal was not listed literally. Revoking a
// literal principal does not remove the Everyone wildcard, and vice versa.
func (a *Access) Revoke(level AccessLevel, principal string) bool {
	current := a.Level(level)
	for i, p := range current {
		if p == principal {
			a.setLevel(level, append(current[:i:i], current[i+1:]...))
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the access map.
func (a *Access) Clone() Access {
	clone := Access{}
	for _, level := range Levels() {
		if src := a.Level(level); len(src) > 0 {
			dst := make([]string, len(src))
			copy(dst, src)
			clone.setLevel(level, dst)
		}
	}
	return clone
}

// normalize deduplicates every level's principal set in place,
// preserving first-seen order.
func (a *Access) normalize() {
	for _, level := range Levels() {
		src := a.Level(level)
		if len(src) < 2 {
			continue
		}
		seen := make(map[string]struct{}, len(src))
		dst := src[:0]
		for _, p := range src {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			dst = append(dst, p)
		}
		a.setLevel(level, dst)
	}
}

// Limits constrains the files a rule's grants apply to. All fields are
// optional; an absent field means "no restriction".
type Limits struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// nil means unlimited.
	MaxFileSize *int64 `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty"`

	// AllowDirs controls whether directories are permitted.
	// nil means allowed.
	AllowDirs *bool `yaml:"allow_dirs,omitempty" json:"allow_dirs,omitempty"`

	// AllowSymlinks controls whether symlinks are permitted.
	// nil means allowed.
	AllowSymlinks *bool `yaml:"allow_symlinks,omitempty" json:"allow_symlinks,omitempty"`
}

// DirsAllowed reports whether directories are permitted under these
// limits. Unset means allowed.
func (l *Limits) DirsAllowed() bool {
	return l == nil || l.AllowDirs == nil || *l.AllowDirs
}

// SymlinksAllowed reports whether symlinks are permitted under these
// limits. Unset means allowed.
func (l *Limits) SymlinksAllowed() bool {
	return l == nil || l.AllowSymlinks == nil || *l.AllowSymlinks
}

// WithinSize reports whether a file of the given size complies with the
// size limit. Unset means any size complies.
func (l *Limits) WithinSize(size int64) bool {
	return l == nil || l.MaxFileSize == nil || size <= *l.MaxFileSize
}

// Clone returns a deep copy of the limits, or nil for nil limits.
func (l *Limits) Clone() *Limits {
	if l == nil {
		return nil
	}
	clone := &Limits{}
	if l.MaxFileSize != nil {
		v := *l.MaxFileSize
		clone.MaxFileSize = &v
	}
	if l.AllowDirs != nil {
		v := *l.AllowDirs
		clone.AllowDirs = &v
	}
	if l.AllowSymlinks != nil {
		v := *l.AllowSymlinks
		clone.AllowSymlinks = &v
	}
	return clone
}

// NewLimits builds a fully specified Limits value.
func NewLimits(maxFileSize int64, allowDirs, allowSymlinks bool) *Limits {
	return &Limits{
		MaxFileSize:   &maxFileSize,
		AllowDirs:     &allowDirs,
		AllowSymlinks: &allowSymlinks,
	}
}

// Rule grants access to paths matching a glob pattern.
//
// Rules are ordered as declared in their policy file. Order is
// significant: when several rules of the governing file match the same
// path, the last declared match wins, so authors can override earlier,
// broader rules with later, narrower ones.
type Rule struct {
	// Pattern is the glob pattern, relative to the policy file's directory.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Access lists the principals granted each level.
	Access Access `yaml:"access" json:"access"`

	// Limits optionally constrains the files this rule applies to.
	Limits *Limits `yaml:"limits,omitempty" json:"limits,omitempty"`

	// compiled is the parsed pattern, populated by compile.
	compiled *Pattern
}

// NewRule creates a rule with a pre-compiled pattern.
// Panics on pattern syntax errors; use ParseRuleSet for untrusted input.
func NewRule(pattern string, access Access, limits *Limits) *Rule {
	return &Rule{
		Pattern:  pattern,
		Access:   access,
		Limits:   limits,
		compiled: MustCompile(pattern),
	}
}

// NewDefaultRule creates a catch-all rule matching every path.
func NewDefaultRule(access Access, limits *Limits) *Rule {
	return NewRule(AllFiles, access, limits)
}

// compile parses the rule's pattern, returning ErrPatternSyntax on
// malformed patterns. Called once at load time.
func (r *Rule) compile() error {
	p, err := Compile(r.Pattern)
	if err != nil {
		return err
	}
	r.compiled = p
	return nil
}

// Matches reports whether the rule's pattern matches the given path,
// expressed relative to the rule's policy directory.
func (r *Rule) Matches(relPath string) bool {
	return r.compiled.Match(relPath)
}

// Clone returns a deep copy of the rule, sharing the compiled pattern
// (patterns are immutable).
func (r *Rule) Clone() *Rule {
	return &Rule{
		Pattern:  r.Pattern,
		Access:   r.Access.Clone(),
		Limits:   r.Limits.Clone(),
		compiled: r.compiled,
	}
}
