package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SkipPolicy skips matching cases before they run, as opposed to
// fingerprint-based dedup (KnownFailures) which only recognizes a
// repeat after the first failure already happened.
type SkipPolicy struct {
	// Tags matches cases with all specified tag values.
	Tags map[string]string `json:"tags,omitempty"`

	// Reason is a human-readable explanation for why matching cases
	// are skipped.
	Reason string `json:"reason"`

	// IssueID links to a tracking issue (e.g. "GH-456").
	IssueID string `json:"issue_id,omitempty"`
}

// Matches reports whether every tag named in p.Tags matches tags.
// An empty Tags map never matches anything.
func (p *SkipPolicy) Matches(tags Tags) bool {
	if len(p.Tags) == 0 {
		return false
	}
	for key, value := range p.Tags {
		if tags.Get(key) != value {
			return false
		}
	}
	return true
}

// ValidateSkipPolicyTags returns an error if p.Tags names an unknown key.
func ValidateSkipPolicyTags(p *SkipPolicy) error {
	allowed := make(map[string]bool)
	for _, k := range AllTagKeys() {
		allowed[k] = true
	}
	for key := range p.Tags {
		if !allowed[key] {
			return fmt.Errorf("unknown tag key in skip policy: %q (allowed: %v)", key, AllTagKeys())
		}
	}
	return nil
}

// SkipResult records why a case was skipped.
type SkipResult struct {
	Reason  string `json:"reason"`
	IssueID string `json:"issue_id,omitempty"`
}

// SkipPolicies manages a set of skip policies, optionally persisted to
// disk as JSON.
type SkipPolicies struct {
	policies []*SkipPolicy
	path     string
}

// NewSkipPolicies creates a skip policy set. If path is non-empty,
// policies are loaded from disk; a missing or unparsable file is
// treated as an empty policy set.
func NewSkipPolicies(path string) *SkipPolicies {
	sp := &SkipPolicies{path: path}
	if path != "" {
		sp.load()
	}
	return sp
}

func (sp *SkipPolicies) load() {
	data, err := os.ReadFile(sp.path)
	if err != nil {
		return
	}
	var policies []*SkipPolicy
	if err := json.Unmarshal(data, &policies); err != nil {
		return
	}
	sp.policies = policies
}

// LoadWithValidation loads policies from disk and returns any
// validation or parse error instead of silently ignoring it.
func (sp *SkipPolicies) LoadWithValidation() error {
	data, err := os.ReadFile(sp.path)
	if err != nil {
		return err
	}
	var policies []*SkipPolicy
	if err := json.Unmarshal(data, &policies); err != nil {
		return err
	}
	for _, p := range policies {
		if err := ValidateSkipPolicyTags(p); err != nil {
			return err
		}
	}
	sp.policies = policies
	return nil
}

// Save writes the policy set to disk as JSON.
func (sp *SkipPolicies) Save() error {
	if sp.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(sp.policies, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(sp.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(sp.path, data, 0o644)
}

// Add appends a skip policy.
func (sp *SkipPolicies) Add(policy *SkipPolicy) {
	sp.policies = append(sp.policies, policy)
}

// ShouldSkip returns a SkipResult if tags matches any policy, nil
// otherwise.
func (sp *SkipPolicies) ShouldSkip(tags Tags) *SkipResult {
	for _, p := range sp.policies {
		if p.Matches(tags) {
			return &SkipResult{Reason: p.Reason, IssueID: p.IssueID}
		}
	}
	return nil
}

// Count returns the number of configured skip policies.
func (sp *SkipPolicies) Count() int {
	return len(sp.policies)
}
