// Package shuffler reorders a candidate suffix of writes against its
// unchanged committed prefix, producing new crash images that probe
// whether a filesystem's consistency guarantees depend on an ordering
// the hardware and block layer never actually promised.
package shuffler

import (
	"iter"
	"math/rand"

	"github.com/tomato42/fsresck/image"
	"github.com/tomato42/fsresck/write"
)

// DefaultGroupSize is the default window width Generate slides across
// the suffix.
const DefaultGroupSize = 3

// Shuffler reorders a fixed suffix of writes against a base image.
// Shuffle holds the base fixed and only reorders the suffix. Generate
// additionally grows its own internal prefix as its window slides, so
// the image it pairs with each candidate reflects more of the suffix
// having already committed the further along the window is.
type Shuffler struct {
	base   image.Image
	suffix []write.Write
}

// New returns a Shuffler over suffix, to be applied on top of base.
// suffix is copied so the caller is free to reuse its backing array.
func New(base image.Image, suffix []write.Write) *Shuffler {
	cp := make([]write.Write, len(suffix))
	copy(cp, suffix)
	return &Shuffler{base: base, suffix: cp}
}

// Shuffle returns an infinite sequence of (base, permuted-suffix) pairs,
// each a uniformly random permutation of the suffix sampled via rng.
// A permutation whose first element is the same write as the original
// suffix's first element is rejected and resampled: such a permutation
// would still apply the first in-flight write first, which is exactly
// the ordering a crash would already have produced without any
// shuffling, and testing it again wastes a checker run.
//
// rng is caller-supplied so tests and reproducible campaigns can pin
// the sequence of permutations it produces; a nil rng is not valid.
//
// Ranging over the returned sequence never terminates on its own —
// stop it with a break, as with any infinite iter.Seq2.
func (s *Shuffler) Shuffle(rng *rand.Rand) iter.Seq2[image.Image, []write.Write] {
	return func(yield func(image.Image, []write.Write) bool) {
		if len(s.suffix) == 0 {
			return
		}
		for {
			perm := make([]write.Write, len(s.suffix))
			copy(perm, s.suffix)
			rng.Shuffle(len(perm), func(i, j int) {
				perm[i], perm[j] = perm[j], perm[i]
			})
			if perm[0].Equal(s.suffix[0]) {
				continue
			}
			if !yield(s.base, perm) {
				return
			}
		}
	}
}

// Generate deterministically enumerates reorderings of the suffix by
// sliding a window of groupSize writes along it. groupSize <= 0 is
// treated as DefaultGroupSize.
//
// Generate tracks its own growing committed prefix as the window slides:
// at window position start, the writes before start (s.suffix[:start])
// are folded into the prefix image and the window is s.suffix[start:end].
// At each window position, Generate first emits the base point: the
// prefix image with a nil suffix, representing the crash state where
// everything before the window has landed and nothing in or after the
// window has — this, not a full-length splice, is what makes the
// "lost write" / partial-suffix class of crash state reachable (a
// single-write suffix yields exactly one pair: the prefix with nothing
// from that write applied). It then enumerates, for each selection size
// k from 1 up to the window width, every way of pulling k writes out of
// the window and placing them first (the rest of the window follows in
// its original relative order), emitting only the k-sized selection
// itself as the suffix — never anything beyond the window, since those
// writes have not been issued yet at this simulated crash point:
//
//   - if any pair of writes in the window overlaps (Overlapping), every
//     ordering of every size-k subset is a distinct test case, since
//     overlapping writes racing in a different order can produce a
//     different on-disk result;
//   - if no pair overlaps, only one arrangement per size-k subset is
//     emitted (the subset's original relative order), since reordering
//     writes that don't touch the same bytes can't change the result.
//
// Within one window position, a selection whose leading write is the
// same write as the window's first element is suppressed — it
// reproduces the base point's leading write and is redundant with it.
// Two dedup sets (one keyed by exact order, one keyed by the
// unordered set of writes selected) prevent emitting the same test
// case twice within a window; both reset when the window advances.
func (s *Shuffler) Generate(groupSize int) iter.Seq2[image.Image, []write.Write] {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	return func(yield func(image.Image, []write.Write) bool) {
		n := len(s.suffix)
		if n == 0 {
			yield(s.base, nil)
			return
		}

		for start := 0; start < n; start++ {
			end := start + groupSize
			if end > n {
				end = n
			}
			window := s.suffix[start:end]

			prefixWrites := make([]write.Write, 0, len(s.base.PendingWrites)+start)
			prefixWrites = append(prefixWrites, s.base.PendingWrites...)
			prefixWrites = append(prefixWrites, s.suffix[:start]...)
			prefixImg := image.New(s.base.BaseImageName, prefixWrites)

			if !yield(prefixImg, nil) {
				return
			}

			if len(window) < 2 {
				continue
			}

			overlap := Overlapping(window)
			orderedSeen := map[uint64]bool{}
			unorderedSeen := map[uint64]bool{}
			stop := false

			for k := 1; k <= len(window) && !stop; k++ {
				for _, idx := range combinationsOfIndices(len(window), k) {
					if overlap {
						for _, order := range permutationsOfIndices(idx) {
							selected := selectByIndex(window, order)
							if selected[0].Equal(window[0]) {
								continue
							}
							key := orderedKey(selected)
							if orderedSeen[key] {
								continue
							}
							orderedSeen[key] = true
							if !yield(prefixImg, selected) {
								stop = true
								break
							}
						}
					} else {
						selected := selectByIndex(window, idx)
						if selected[0].Equal(window[0]) {
							continue
						}
						key := unorderedKey(selected)
						if unorderedSeen[key] {
							continue
						}
						unorderedSeen[key] = true
						if !yield(prefixImg, selected) {
							stop = true
						}
					}
					if stop {
						break
					}
				}
			}
			if stop {
				return
			}
		}
	}
}
