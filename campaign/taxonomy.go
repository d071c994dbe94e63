// Package campaign drives repeated crash-image generation and checking:
// it strings together a slicer, a fragmenter, a shuffler, an image
// materializer, and an external Checker into a continue-on-failure loop,
// and keeps artifacts, failure fingerprints, and skip policies around
// the run.
package campaign

// Tier represents the run's intensity preset: how long a single
// invocation of Runner.Run is expected to keep generating and checking
// cases before stopping.
type Tier string

const (
	// TierQuick is for local development and CI: a small default case
	// budget (see TierCaseBudget), enough to catch regressions fast.
	TierQuick Tier = "quick"

	// TierNightly has a much larger default case budget, for a thorough
	// but slow sweep. Group size and window positions are the same as
	// for TierQuick.
	TierNightly Tier = "nightly"
)

// Mode selects which Shuffler entry point a case came from.
type Mode string

const (
	// ModeGenerate means the case came from Shuffler.Generate, the
	// deterministic enumerator.
	ModeGenerate Mode = "generate"

	// ModeShuffle means the case came from Shuffler.Shuffle, the
	// random sampler.
	ModeShuffle Mode = "shuffle"
)
