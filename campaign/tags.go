package campaign

import "strconv"

// Tags describes one test case for skip-policy matching and reporting.
// There is no separately named "instance" identity here: every case is
// a (prefix length, suffix ordering) pair the shuffler produced,
// identified by its position in the sweep.
type Tags struct {
	// Tier is the run preset this case was generated under.
	Tier Tier

	// Mode says whether the case came from Generate or Shuffle.
	Mode Mode

	// WindowStart is the slicer window's starting write index.
	WindowStart int

	// GroupSize is the configured shuffler window width
	// (RunnerConfig.GroupSize). It is recorded for ModeShuffle cases too,
	// although Shuffle does not use it.
	GroupSize int
}

// Get returns the string value of a tag by key, for skip-policy
// matching. Unknown keys return "".
func (t Tags) Get(key string) string {
	switch key {
	case "tier":
		return string(t.Tier)
	case "mode":
		return string(t.Mode)
	case "window_start":
		return strconv.Itoa(t.WindowStart)
	case "group_size":
		return strconv.Itoa(t.GroupSize)
	default:
		return ""
	}
}

// AllTagKeys returns every valid tag key, for skip-policy validation.
func AllTagKeys() []string {
	return []string{"tier", "mode", "window_start", "group_size"}
}
