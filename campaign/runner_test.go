package campaign

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomato42/fsresck/logio"
	"github.com/tomato42/fsresck/write"
)

// buildLogFile writes n sequential, non-overlapping writes to a log file
// under dir and returns its path.
func buildLogFile(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "writes.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	defer f.Close()

	w := logio.NewWriter(f)
	for i := 0; i < n; i++ {
		ww := write.Write{Offset: uint64(i * 512), Data: bytes.Repeat([]byte{byte(i + 1)}, 64)}
		if _, err := w.Append(ww); err != nil {
			t.Fatalf("append write %d: %v", i, err)
		}
	}
	return path
}

// buildBaseImage creates a zero-filled base image file under dir and
// returns its path.
func buildBaseImage(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "base.img")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write base image: %v", err)
	}
	return path
}

// scriptChecker writes an executable shell script to dir that exits with
// exitCode, and returns a Checker configured to run it.
func scriptChecker(t *testing.T, dir string, exitCode int) *Checker {
	t.Helper()
	path := filepath.Join(dir, "checker.sh")
	body := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write checker script: %v", err)
	}
	return &Checker{Path: path}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func TestRunnerGenerateAllPassingProducesCleanSummary(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 4)
	basePath := buildBaseImage(t, dir, 4096)
	runRoot := filepath.Join(dir, "run")

	r := NewRunner(RunnerConfig{
		Tier:       TierQuick,
		Mode:       ModeGenerate,
		BaseImage:  basePath,
		LogFile:    logPath,
		RunRoot:    runRoot,
		ImageDir:   dir,
		Checker:    scriptChecker(t, dir, 0),
		OpsToTest:  3,
		GroupSize:  2,
		SectorSize: 512,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalCases == 0 {
		t.Fatalf("expected at least one case, got 0")
	}
	if !summary.AllPassed {
		t.Fatalf("expected all cases to pass, summary: %+v", summary)
	}
	if summary.FailedCases != 0 {
		t.Fatalf("expected 0 failed cases, got %d", summary.FailedCases)
	}
}

func TestRunnerRecordsFailuresAndContinues(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 4)
	basePath := buildBaseImage(t, dir, 4096)
	runRoot := filepath.Join(dir, "run")

	r := NewRunner(RunnerConfig{
		Tier:       TierQuick,
		Mode:       ModeGenerate,
		BaseImage:  basePath,
		LogFile:    logPath,
		RunRoot:    runRoot,
		ImageDir:   dir,
		Checker:    scriptChecker(t, dir, 1),
		OpsToTest:  3,
		GroupSize:  2,
		SectorSize: 512,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AllPassed {
		t.Fatalf("expected failures, summary: %+v", summary)
	}
	if summary.FailedCases == 0 {
		t.Fatalf("expected at least one failed case")
	}
	if summary.FailedCases != summary.TotalCases {
		t.Fatalf("expected every case to fail, got %d/%d", summary.FailedCases, summary.TotalCases)
	}
	if summary.UniqueFailures != 1 {
		t.Fatalf("expected a single unique failure fingerprint (same script, same exit code), got %d", summary.UniqueFailures)
	}
}

func TestRunnerFailFastStopsAfterFirstFailure(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 4)
	basePath := buildBaseImage(t, dir, 4096)
	runRoot := filepath.Join(dir, "run")

	r := NewRunner(RunnerConfig{
		Tier:       TierQuick,
		Mode:       ModeGenerate,
		BaseImage:  basePath,
		LogFile:    logPath,
		RunRoot:    runRoot,
		ImageDir:   dir,
		Checker:    scriptChecker(t, dir, 1),
		OpsToTest:  3,
		GroupSize:  2,
		SectorSize: 512,
		FailFast:   true,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalCases != 1 {
		t.Fatalf("expected exactly 1 case with FailFast, got %d", summary.TotalCases)
	}
}

func TestRunnerCaseBudgetCapsTotalCases(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 8)
	basePath := buildBaseImage(t, dir, 8192)
	runRoot := filepath.Join(dir, "run")

	r := NewRunner(RunnerConfig{
		Tier:       TierQuick,
		Mode:       ModeGenerate,
		BaseImage:  basePath,
		LogFile:    logPath,
		RunRoot:    runRoot,
		ImageDir:   dir,
		Checker:    scriptChecker(t, dir, 0),
		OpsToTest:  4,
		GroupSize:  3,
		SectorSize: 512,
		CaseBudget: 3,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalCases != 3 {
		t.Fatalf("expected exactly 3 cases under CaseBudget=3, got %d", summary.TotalCases)
	}
}

func TestRunnerSkipPolicySkipsMatchingCases(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 4)
	basePath := buildBaseImage(t, dir, 4096)
	runRoot := filepath.Join(dir, "run")

	skips := NewSkipPolicies("")
	skips.Add(&SkipPolicy{Tags: map[string]string{"mode": string(ModeGenerate)}, Reason: "flaky under generate mode"})

	r := NewRunner(RunnerConfig{
		Tier:         TierQuick,
		Mode:         ModeGenerate,
		BaseImage:    basePath,
		LogFile:      logPath,
		RunRoot:      runRoot,
		ImageDir:     dir,
		Checker:      scriptChecker(t, dir, 0),
		OpsToTest:    3,
		GroupSize:    2,
		SectorSize:   512,
		SkipPolicies: skips,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalCases != 0 {
		t.Fatalf("expected every case to be skipped, got %d run", summary.TotalCases)
	}
	if len(summary.Skipped) == 0 {
		t.Fatalf("expected skipped cases to be recorded")
	}
}

func TestRunnerShuffleModeIsDeterministicGivenSeed(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 4)
	basePath := buildBaseImage(t, dir, 4096)

	run := func(runRoot string) *Summary {
		r := NewRunner(RunnerConfig{
			Tier:       TierQuick,
			Mode:       ModeShuffle,
			BaseImage:  basePath,
			LogFile:    logPath,
			RunRoot:    runRoot,
			ImageDir:   dir,
			Checker:    scriptChecker(t, dir, 0),
			OpsToTest:  3,
			SectorSize: 512,
			Seed:       42,
			CaseBudget: 5,
		})
		summary, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return summary
	}

	s1 := run(filepath.Join(dir, "run1"))
	s2 := run(filepath.Join(dir, "run2"))

	if s1.TotalCases != s2.TotalCases {
		t.Fatalf("expected same case count across seeded runs: %d vs %d", s1.TotalCases, s2.TotalCases)
	}
	for i := range s1.Cases {
		if s1.Cases[i].Case != s2.Cases[i].Case {
			t.Fatalf("case %d label differs across seeded runs: %q vs %q", i, s1.Cases[i].Case, s2.Cases[i].Case)
		}
	}
}

func TestRunnerWritesArtifactsToRunRoot(t *testing.T) {
	dir := t.TempDir()
	logPath := buildLogFile(t, dir, 2)
	basePath := buildBaseImage(t, dir, 4096)
	runRoot := filepath.Join(dir, "run")

	r := NewRunner(RunnerConfig{
		Tier:       TierQuick,
		Mode:       ModeGenerate,
		BaseImage:  basePath,
		LogFile:    logPath,
		RunRoot:    runRoot,
		ImageDir:   dir,
		Checker:    scriptChecker(t, dir, 0),
		OpsToTest:  2,
		GroupSize:  2,
		SectorSize: 512,
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(runRoot, "summary.json")); err != nil {
		t.Fatalf("expected summary.json to exist: %v", err)
	}

	entries, err := os.ReadDir(runRoot)
	if err != nil {
		t.Fatalf("read run root: %v", err)
	}
	foundCaseDir := false
	for _, e := range entries {
		if e.IsDir() {
			foundCaseDir = true
			if _, err := os.Stat(filepath.Join(runRoot, e.Name(), "run.json")); err != nil {
				t.Fatalf("expected run.json in %s: %v", e.Name(), err)
			}
		}
	}
	if !foundCaseDir {
		t.Fatalf("expected at least one per-case artifact directory under %s", runRoot)
	}
}
