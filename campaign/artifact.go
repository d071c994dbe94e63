package campaign

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomato42/fsresck/internal/compression"
)

// SchemaVersion is the current version of the artifact schema.
// Bump rules:
//   - Major: interpretation changes (field meaning, fingerprint algorithm, pass/fail logic)
//   - Minor: additive fields that don't change meaning or pass/fail
//   - Patch: tooling bugfixes that don't change schema
const SchemaVersion = "1.0.0"

// Label identifies a single case within a campaign, for logging,
// fingerprinting, and artifact directory naming.
type Label struct {
	Tags          Tags
	CandidateIdx  int
	PrefixLen     int
	SuffixLen     int
}

// String renders a Label as a short, stable, filesystem-safe string.
func (l Label) String() string {
	return fmt.Sprintf("%s-w%d-g%d-c%d-p%d-s%d",
		l.Tags.Mode, l.Tags.WindowStart, l.Tags.GroupSize, l.CandidateIdx, l.PrefixLen, l.SuffixLen)
}

// RunResult is the outcome of materializing and checking a single case.
type RunResult struct {
	Label Label

	RunDir string

	StartTime time.Time
	EndTime   time.Time

	Passed        bool
	FailureReason string
	Fingerprint   string
	IsDuplicate   bool

	CheckResult *CheckResult
}

// Duration returns the run duration.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// RunArtifact is the JSON structure written to run.json in each run's
// artifact directory.
type RunArtifact struct {
	SchemaVersion string `json:"schema_version"`
	Case          string `json:"case"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationMs    int64     `json:"duration_ms"`
	Passed        bool      `json:"passed"`
	Failure       string    `json:"failure,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	IsDuplicate   bool      `json:"is_duplicate,omitempty"`

	CheckerExitCode *int   `json:"checker_exit_code,omitempty"`
	CheckerOutput   string `json:"checker_output,omitempty"`

	Tags Tags `json:"tags"`
}

// WriteRunArtifact writes run.json to result.RunDir, and a compressed
// copy of the failing image's checker transcript when the run failed.
func WriteRunArtifact(result *RunResult) error {
	artifact := RunArtifact{
		SchemaVersion: SchemaVersion,
		Case:          result.Label.String(),
		StartTime:     result.StartTime,
		EndTime:       result.EndTime,
		DurationMs:    result.Duration().Milliseconds(),
		Passed:        result.Passed,
		Failure:       result.FailureReason,
		Fingerprint:   result.Fingerprint,
		IsDuplicate:   result.IsDuplicate,
		Tags:          result.Label.Tags,
	}

	if result.CheckResult != nil {
		artifact.CheckerExitCode = &result.CheckResult.ExitCode
		artifact.CheckerOutput = result.CheckResult.Stdout + result.CheckResult.Stderr
	}

	if err := EnsureDir(result.RunDir); err != nil {
		return fmt.Errorf("campaign: create run dir: %w", err)
	}

	path := filepath.Join(result.RunDir, "run.json")
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("campaign: marshal run artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("campaign: write run artifact: %w", err)
	}

	if !result.Passed && result.CheckResult != nil {
		transcript := []byte(result.CheckResult.Stdout + result.CheckResult.Stderr)
		if err := writeCompressed(filepath.Join(result.RunDir, "checker_output.zst"), transcript); err != nil {
			return fmt.Errorf("campaign: write compressed checker output: %w", err)
		}
	}

	return nil
}

// writeCompressed writes data to path through the default compression
// codec, so failing-case artifacts stay small across a long sweep.
func writeCompressed(path string, data []byte) error {
	encoded, err := compression.Compress(compression.ZstdCompression, data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// Summary is the JSON structure written to summary.json after a run.
type Summary struct {
	SchemaVersion string       `json:"schema_version"`
	Tier          string       `json:"tier"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time"`
	DurationMs    int64        `json:"duration_ms"`
	TotalCases    int          `json:"total_cases"`
	PassedCases   int          `json:"passed_cases"`
	FailedCases   int          `json:"failed_cases"`
	SkippedCases  int          `json:"skipped_cases"`
	UniqueFailures int         `json:"unique_failures"`
	AllPassed     bool         `json:"all_passed"`
	Cases         []CaseSummary `json:"cases"`
	Skipped       []SkipSummary `json:"skipped,omitempty"`
}

// SkipSummary records a case that was skipped.
type SkipSummary struct {
	Case    string `json:"case"`
	Reason  string `json:"reason"`
	IssueID string `json:"issue_id,omitempty"`
}

// CaseSummary is a brief per-case summary for the run summary.
type CaseSummary struct {
	Case        string `json:"case"`
	Passed      bool   `json:"passed"`
	Failure     string `json:"failure,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	IsDuplicate bool   `json:"is_duplicate,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// WriteSummary writes summary.json to runRoot.
func WriteSummary(runRoot string, tier Tier, startTime, endTime time.Time, results []*RunResult, skipped []SkipSummary) error {
	fingerprints := make(map[string]struct{})
	summary := Summary{
		SchemaVersion: SchemaVersion,
		Tier:          string(tier),
		StartTime:     startTime,
		EndTime:       endTime,
		DurationMs:    endTime.Sub(startTime).Milliseconds(),
		TotalCases:    len(results),
		SkippedCases:  len(skipped),
		Skipped:       skipped,
		AllPassed:     true,
	}

	for _, r := range results {
		summary.Cases = append(summary.Cases, CaseSummary{
			Case:        r.Label.String(),
			Passed:      r.Passed,
			Failure:     r.FailureReason,
			Fingerprint: r.Fingerprint,
			IsDuplicate: r.IsDuplicate,
			DurationMs:  r.Duration().Milliseconds(),
		})

		if r.Passed {
			summary.PassedCases++
			continue
		}
		summary.FailedCases++
		summary.AllPassed = false
		if r.Fingerprint != "" {
			fingerprints[r.Fingerprint] = struct{}{}
		}
	}
	summary.UniqueFailures = len(fingerprints)

	path := filepath.Join(runRoot, "summary.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("campaign: marshal summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummary reads summary.json from runRoot.
func ReadSummary(runRoot string) (*Summary, error) {
	path := filepath.Join(runRoot, "summary.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ComputeFingerprint computes a failure fingerprint from the failure
// reason and checker output, truncated to 16 hex chars. The case label
// is deliberately not part of the hash: every case has a distinct
// label by construction (different window, candidate index, or
// ordering), so folding it in would make every failure "unique" and
// defeat KnownFailures dedup entirely. Two cases anywhere in a sweep
// that fail with the same reason and the same checker transcript are
// treated as the same underlying bug, since there is no persistent
// "instance" identity across sweeps to fingerprint against instead.
func ComputeFingerprint(failureReason, checkerOutput string) string {
	h := sha256.New()
	h.Write([]byte(failureReason))
	h.Write([]byte(":"))
	h.Write([]byte(checkerOutput))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// EnsureDir creates a directory if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
