// runner.go implements the core campaign execution engine.
//
// The Runner strings together a slicer, a fragmenter, a shuffler, an
// image materializer, and an external Checker into a single
// continue-on-failure sweep: it never aborts the whole campaign
// because one case failed, only records the failure and moves on to
// the next.
package campaign

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/tomato42/fsresck/fragmenter"
	"github.com/tomato42/fsresck/image"
	"github.com/tomato42/fsresck/logio"
	"github.com/tomato42/fsresck/shuffler"
	"github.com/tomato42/fsresck/slicer"
	"github.com/tomato42/fsresck/write"
)

// RunnerConfig configures the campaign runner.
type RunnerConfig struct {
	// Tier is the intensity level; affects the default case budget.
	Tier Tier

	// Mode selects Shuffler.Generate (deterministic) or
	// Shuffler.Shuffle (random sampling) for every (prefix, suffix)
	// pair the slicer produces.
	Mode Mode

	// BaseImage is the clean filesystem image every case is cloned
	// from.
	BaseImage string

	// LogFile is the captured write log to slice and replay.
	LogFile string

	// RunRoot is the root directory for run.json/summary.json
	// artifacts. Required.
	RunRoot string

	// ImageDir is the directory materialized temp images are created
	// in. Defaults to os.TempDir().
	ImageDir string

	// Checker runs the external consistency check against each
	// materialized image. Required.
	Checker *Checker

	// OpsToTest is the slicer's candidate window size. 0 uses
	// slicer.DefaultOpsToTest.
	OpsToTest int

	// SectorSize is the fragmenter's sector size. 0 uses
	// fragmenter.DefaultSectorSize.
	SectorSize int

	// GroupSize is the shuffler's window width for Generate. 0 uses
	// shuffler.DefaultGroupSize. Unused for ModeShuffle.
	GroupSize int

	// Seed seeds the random source used for ModeShuffle. Two runs
	// with the same Seed, BaseImage, and LogFile produce the same
	// sequence of candidates.
	Seed int64

	// CaseBudget caps how many candidates are checked in total across
	// the whole sweep. 0 uses TierCaseBudget(Tier).
	CaseBudget int

	// FailFast stops the sweep on the first failing case.
	FailFast bool

	// KnownFailures deduplicates failures by fingerprint across the
	// run. May be nil.
	KnownFailures *KnownFailures

	// SkipPolicies skips matching cases before they run. May be nil.
	SkipPolicies *SkipPolicies

	// Output is where progress messages are written. Defaults to
	// os.Stdout.
	Output io.Writer

	// Verbose enables a progress line per case, not just per failure.
	Verbose bool
}

// Runner drives one campaign sweep.
type Runner struct {
	config RunnerConfig
}

// NewRunner returns a Runner, filling in defaults for zero-valued
// config fields.
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.ImageDir == "" {
		config.ImageDir = os.TempDir()
	}
	if config.OpsToTest == 0 {
		config.OpsToTest = slicer.DefaultOpsToTest
	}
	if config.SectorSize == 0 {
		config.SectorSize = fragmenter.DefaultSectorSize
	}
	if config.GroupSize == 0 {
		config.GroupSize = shuffler.DefaultGroupSize
	}
	if config.CaseBudget == 0 {
		config.CaseBudget = TierCaseBudget(config.Tier)
	}
	return &Runner{config: config}
}

// Run opens LogFile, slices it against BaseImage, and checks every
// candidate the configured Mode produces, up to CaseBudget, writing
// run.json per case and a final summary.json to RunRoot.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	c := r.config

	f, err := os.Open(c.LogFile)
	if err != nil {
		return nil, fmt.Errorf("campaign: open log file: %w", err)
	}
	defer f.Close()

	sl := slicer.New(logio.NewReader(f), c.BaseImage, c.OpsToTest)
	rng := rand.New(rand.NewSource(c.Seed))

	if err := EnsureDir(c.RunRoot); err != nil {
		return nil, fmt.Errorf("campaign: create run root: %w", err)
	}

	start := time.Now()
	var results []*RunResult
	var skipped []SkipSummary

	windowIdx := 0
	candidateIdx := 0

sweep:
	for {
		if err := ctx.Err(); err != nil {
			break
		}

		prefixImg, suffix, ok, err := sl.Next()
		if err != nil {
			return nil, fmt.Errorf("campaign: slice log: %w", err)
		}
		if !ok {
			break
		}

		fragmented := collectFragments(suffix, c.SectorSize)
		sh := shuffler.New(prefixImg, fragmented)

		for caseImg, candidate := range r.candidates(sh, rng) {
			if candidateIdx >= c.CaseBudget {
				r.logf("case budget of %d reached, stopping sweep", c.CaseBudget)
				break sweep
			}

			label := Label{
				Tags: Tags{
					Tier:        c.Tier,
					Mode:        c.Mode,
					WindowStart: windowIdx,
					GroupSize:   c.GroupSize,
				},
				CandidateIdx: candidateIdx,
				PrefixLen:    len(caseImg.PendingWrites),
				SuffixLen:    len(candidate),
			}
			candidateIdx++

			if c.SkipPolicies != nil {
				if sr := c.SkipPolicies.ShouldSkip(label.Tags); sr != nil {
					skipped = append(skipped, SkipSummary{Case: label.String(), Reason: sr.Reason, IssueID: sr.IssueID})
					continue
				}
			}

			result := r.runCase(label, caseImg, candidate)
			results = append(results, result)

			if err := WriteRunArtifact(result); err != nil {
				r.logf("case %s: write artifact: %v", label.String(), err)
			}
			if !result.Passed {
				r.logf("case %s FAILED: %s", label.String(), result.FailureReason)
				if c.FailFast {
					break sweep
				}
			} else if c.Verbose {
				r.logf("case %s passed", label.String())
			}
		}
		windowIdx++
	}

	end := time.Now()
	summary, err := r.finish(start, end, results, skipped)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// candidates returns the iterator for the configured Mode. It passes
// through both halves of the pair the shuffler produces: Generate's
// image grows its own internal prefix as its window slides, so the
// image paired with a candidate is not always the slicer's prefixImg.
func (r *Runner) candidates(sh *shuffler.Shuffler, rng *rand.Rand) func(yield func(image.Image, []write.Write) bool) {
	if r.config.Mode == ModeShuffle {
		return func(yield func(image.Image, []write.Write) bool) {
			for caseImg, candidate := range sh.Shuffle(rng) {
				if !yield(caseImg, candidate) {
					return
				}
			}
		}
	}
	return func(yield func(image.Image, []write.Write) bool) {
		for caseImg, candidate := range sh.Generate(r.config.GroupSize) {
			if !yield(caseImg, candidate) {
				return
			}
		}
	}
}

// runCase materializes one candidate on top of prefixImg's committed
// writes and runs the checker against it.
func (r *Runner) runCase(label Label, prefixImg image.Image, candidate []write.Write) *RunResult {
	start := time.Now()

	pending := make([]write.Write, 0, len(prefixImg.PendingWrites)+len(candidate))
	pending = append(pending, prefixImg.PendingWrites...)
	pending = append(pending, candidate...)
	img := image.New(prefixImg.BaseImageName, pending)

	result := &RunResult{
		Label:  label,
		RunDir: filepath.Join(r.config.RunRoot, label.String()),
	}

	path, err := img.CreateImage(r.config.ImageDir)
	if err != nil {
		result.StartTime = start
		result.EndTime = time.Now()
		result.Passed = false
		result.FailureReason = fmt.Sprintf("materialize image: %v", err)
		return result
	}
	defer img.Cleanup()

	checkResult := r.config.Checker.Check(path)
	result.StartTime = start
	result.EndTime = time.Now()
	result.CheckResult = checkResult

	if checkResult.OK() {
		result.Passed = true
		return result
	}

	result.Passed = false
	if checkResult.Err != nil {
		result.FailureReason = checkResult.Err.Error()
	} else {
		result.FailureReason = fmt.Sprintf("checker exited %d", checkResult.ExitCode)
	}
	result.Fingerprint = ComputeFingerprint(result.FailureReason, checkResult.Stdout+checkResult.Stderr)

	if r.config.KnownFailures != nil {
		isNew := r.config.KnownFailures.Record(result.Fingerprint, label.String(), result.StartTime.Format(time.RFC3339))
		result.IsDuplicate = !isNew
	}

	return result
}

func (r *Runner) finish(start, end time.Time, results []*RunResult, skipped []SkipSummary) (*Summary, error) {
	if err := WriteSummary(r.config.RunRoot, r.config.Tier, start, end, results, skipped); err != nil {
		return nil, fmt.Errorf("campaign: write summary: %w", err)
	}
	return ReadSummary(r.config.RunRoot)
}

func (r *Runner) logf(format string, args ...any) {
	fmt.Fprintf(r.config.Output, format+"\n", args...)
}

// collectFragments materializes fragmenter.Fragment's lazy sequence
// into a slice, since the shuffler needs a concrete suffix to
// permute rather than a one-pass iterator.
func collectFragments(ws []write.Write, sectorSize int) []write.Write {
	var out []write.Write
	for w := range fragmenter.Fragment(ws, sectorSize) {
		out = append(out, w)
	}
	return out
}
