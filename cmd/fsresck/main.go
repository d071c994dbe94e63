// Package main implements the fsresck campaign CLI.
//
// It slices a captured write log against a base filesystem image,
// reorders each candidate suffix, materializes the result, and runs an
// external consistency checker against it - continuing past individual
// failures so one bad case doesn't abort the whole sweep.
//
// Usage:
//
//	fsresck -base=clean.img -log=writes.log -checker=/sbin/fsck.ext4 -checker-args=-fn -run-root=/tmp/fsresck-run
//	fsresck -base=clean.img -log=writes.log -checker=/sbin/fsck.ext4 -mode=shuffle -seed=42 -case-budget=5000
//	fsresck -checker=/sbin/fsck.ext4 clean.img writes.log
//
// The base image and the log may be given either with -base/-log or as
// two positional arguments, in that order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tomato42/fsresck/campaign"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "", "clean base filesystem image (required)")
	logFile := flag.String("log", "", "captured write log (required)")
	checkerPath := flag.String("checker", "", "external consistency checker binary (required)")
	checkerArgs := flag.String("checker-args", "", "space-separated arguments passed before the image path")
	runRoot := flag.String("run-root", "", "root directory for run artifacts (defaults to a timestamped dir under the OS temp dir)")
	imageDir := flag.String("image-dir", "", "directory materialized images are created in (defaults to the OS temp dir)")
	tier := flag.String("tier", "quick", "campaign tier: quick or nightly")
	mode := flag.String("mode", "generate", "candidate source: generate (deterministic sweep) or shuffle (random sampling)")
	opsToTest := flag.Int("ops-to-test", 0, "slicer candidate window size (0 = default)")
	sectorSize := flag.Int("sector-size", 0, "fragmenter sector size in bytes (0 = default)")
	groupSize := flag.Int("group-size", 0, "shuffler window width for generate mode (0 = default)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for shuffle mode")
	caseBudget := flag.Int("case-budget", 0, "total case limit across the sweep (0 = tier default)")
	failFast := flag.Bool("fail-fast", false, "stop on the first failing case")
	verbose := flag.Bool("v", false, "log every case, not just failures")
	knownFailuresPath := flag.String("known-failures", "", "path to a known-failures JSON file for cross-run dedup")
	skipPoliciesPath := flag.String("skip-policies", "", "path to a skip-policies JSON file")

	flag.Parse()

	if *base == "" && *logFile == "" && flag.NArg() == 2 {
		*base, *logFile = flag.Arg(0), flag.Arg(1)
	}

	if *base == "" || *logFile == "" || *checkerPath == "" {
		flag.Usage()
		return fmt.Errorf("fsresck: a base image and a log (-base/-log or two positional arguments) and -checker are required")
	}

	var t campaign.Tier
	switch *tier {
	case "quick":
		t = campaign.TierQuick
	case "nightly":
		t = campaign.TierNightly
	default:
		return fmt.Errorf("unknown tier: %s (must be quick or nightly)", *tier)
	}

	var m campaign.Mode
	switch *mode {
	case "generate":
		m = campaign.ModeGenerate
	case "shuffle":
		m = campaign.ModeShuffle
	default:
		return fmt.Errorf("unknown mode: %s (must be generate or shuffle)", *mode)
	}

	if *runRoot == "" {
		*runRoot = filepath.Join(os.TempDir(), "fsresck-runs", time.Now().Format("20060102-150405"))
	}

	var kf *campaign.KnownFailures
	if *knownFailuresPath != "" {
		kf = campaign.NewKnownFailures(*knownFailuresPath)
		fmt.Printf("known-failures: loaded %d fingerprints from %s\n", kf.Count(), *knownFailuresPath)
	}

	var skipPolicies *campaign.SkipPolicies
	if *skipPoliciesPath != "" {
		skipPolicies = campaign.NewSkipPolicies(*skipPoliciesPath)
		if err := skipPolicies.LoadWithValidation(); err != nil {
			return fmt.Errorf("invalid skip policies file: %w", err)
		}
		fmt.Printf("skip-policies: loaded %d policies from %s\n", skipPolicies.Count(), *skipPoliciesPath)
	}

	var splitArgs []string
	if *checkerArgs != "" {
		splitArgs = strings.Fields(*checkerArgs)
	}

	config := campaign.RunnerConfig{
		Tier:          t,
		Mode:          m,
		BaseImage:     *base,
		LogFile:       *logFile,
		RunRoot:       *runRoot,
		ImageDir:      *imageDir,
		Checker:       &campaign.Checker{Path: *checkerPath, Args: splitArgs},
		OpsToTest:     *opsToTest,
		SectorSize:    *sectorSize,
		GroupSize:     *groupSize,
		Seed:          *seed,
		CaseBudget:    *caseBudget,
		FailFast:      *failFast,
		KnownFailures: kf,
		SkipPolicies:  skipPolicies,
		Output:        os.Stdout,
		Verbose:       *verbose,
	}

	runner := campaign.NewRunner(config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nreceived signal %v, cancelling sweep...\n", sig)
		cancel()
	}()

	fmt.Printf("fsresck: tier=%s mode=%s base=%s log=%s run-root=%s\n", t, m, *base, *logFile, *runRoot)
	fmt.Println()

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Tier:            %s\n", summary.Tier)
	fmt.Printf("Duration:        %s\n", time.Duration(summary.DurationMs)*time.Millisecond)
	fmt.Printf("Total Cases:     %d\n", summary.TotalCases)
	fmt.Printf("Passed:          %d\n", summary.PassedCases)
	fmt.Printf("Failed:          %d\n", summary.FailedCases)
	fmt.Printf("Unique Failures: %d\n", summary.UniqueFailures)
	fmt.Printf("Skipped:         %d\n", summary.SkippedCases)
	fmt.Printf("All Passed:      %v\n", summary.AllPassed)
	fmt.Printf("Artifacts:       %s\n", *runRoot)

	if !summary.AllPassed {
		os.Exit(1)
	}
	return nil
}
