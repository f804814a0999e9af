package aclspec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the per-directory policy file.
const FileName = "acl.yaml"

// Path returns the policy file path for a directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// RuleSet is one directory's parsed policy file.
//
// Rules keep their declaration order; the resolver depends on it for
// last-declared-match-wins tie-breaking. A RuleSet is never mutated in
// place after loading: the mutation path clones it, rewrites the file
// atomically, and the cache replaces the entry wholesale.
type RuleSet struct {
	// Directory is the absolute directory this policy governs.
	Directory string

	// Rules is the ordered rule list as declared in the file.
	Rules []*Rule

	// ModTime is the policy file's modification time when loaded.
	// Zero for rule sets that have not been persisted yet.
	ModTime time.Time
}

// ruleSetDoc is the on-disk document shape.
type ruleSetDoc struct {
	Rules []*Rule `yaml:"rules"`
}

// NewRuleSet creates an in-memory rule set for a directory.
func NewRuleSet(dir string, rules ...*Rule) *RuleSet {
	return &RuleSet{Directory: dir, Rules: rules}
}

// Load reads and parses the policy file governing dir.
//
// Returns (nil, nil) when the directory has no policy file. A document
// that cannot be read, fails schema validation, or contains a malformed
// pattern yields an Error with code ErrPolicyParse (wrapping
// ErrPatternSyntax where applicable). Callers on the resolution path
// must treat that as zero rules from this directory, not as a failed
// query.
func Load(dir string) (*RuleSet, error) {
	path := Path(dir)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, WrapError(ErrPolicyParse, "failed to stat policy file", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ErrPolicyParse, "failed to read policy file", path, err)
	}

	rs, err := ParseRuleSet(dir, data)
	if err != nil {
		return nil, err
	}
	rs.ModTime = info.ModTime()

	return rs, nil
}

// ParseRuleSet parses policy document bytes for the given directory.
//
// Validation is strict: unknown fields are rejected so typos in policy
// files surface as parse errors instead of silently granting nothing.
func ParseRuleSet(dir string, data []byte) (*RuleSet, error) {
	var doc ruleSetDoc

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, WrapError(ErrPolicyParse, "malformed policy document", Path(dir), err)
	}

	for i, rule := range doc.Rules {
		if rule == nil {
			return nil, NewError(ErrPolicyParse,
				fmt.Sprintf("rule %d is empty", i), Path(dir))
		}
		if err := rule.compile(); err != nil {
			return nil, WrapError(ErrPolicyParse,
				fmt.Sprintf("rule %d has a malformed pattern", i), Path(dir), err)
		}
		rule.Access.normalize()
	}

	return &RuleSet{Directory: dir, Rules: doc.Rules}, nil
}

// Marshal serializes the rule set to its on-disk document form.
func (rs *RuleSet) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(&ruleSetDoc{Rules: rs.Rules})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy document: %w", err)
	}
	return data, nil
}

// Save writes the rule set to its directory's policy file.
//
// This is a plain write intended for fixtures and initial provisioning;
// the mutation service performs its own atomic temp-file-and-rename
// sequence instead.
func (rs *RuleSet) Save() error {
	data, err := rs.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(Path(rs.Directory), data, 0o644)
}

// Clone returns a deep copy of the rule set.
func (rs *RuleSet) Clone() *RuleSet {
	rules := make([]*Rule, len(rs.Rules))
	for i, r := range rs.Rules {
		rules[i] = r.Clone()
	}
	return &RuleSet{Directory: rs.Directory, Rules: rules, ModTime: rs.ModTime}
}

// LastMatch returns the last declared rule matching relPath, or nil.
// Declaration order is the tie-breaker: later rules override earlier ones.
func (rs *RuleSet) LastMatch(relPath string) *Rule {
	var match *Rule
	for _, rule := range rs.Rules {
		if rule.Matches(relPath) {
			match = rule
		}
	}
	return match
}
