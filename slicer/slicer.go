// Package slicer turns a flat write log into a stream of (committed
// prefix, candidate suffix) pairs: for every prefix length the log
// admits, the writes that would still be "in flight" relative to that
// prefix at crash time.
package slicer

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomato42/fsresck/image"
	"github.com/tomato42/fsresck/logio"
	"github.com/tomato42/fsresck/write"
)

// DefaultOpsToTest is the default candidate-window size: how many of the
// most recent writes are treated as "still possibly unflushed" for any
// given prefix.
const DefaultOpsToTest = 5

// Slicer pulls writes from a logio.Reader and emits sliding
// (prefix, suffix) pairs.
//
// Slicer is a single-pass, forward-only iterator: once Next returns
// false there are no more pairs, and the underlying reader has been
// fully consumed.
type Slicer struct {
	reader        *logio.Reader
	baseImageName string
	opsToTest     int

	prefix []write.Write
	window []write.Write

	started  bool
	draining bool
	done     bool
}

// New returns a Slicer over reader, primed to window opsToTest writes at
// a time against the named base image. opsToTest <= 0 is treated as
// DefaultOpsToTest.
func New(reader *logio.Reader, baseImageName string, opsToTest int) *Slicer {
	if opsToTest <= 0 {
		opsToTest = DefaultOpsToTest
	}
	return &Slicer{reader: reader, baseImageName: baseImageName, opsToTest: opsToTest}
}

// Next produces the next (prefix, suffix) pair. ok is false once the log
// and window are both exhausted; err is non-nil only if the underlying
// reader failed (e.g. errs.TruncatedFile).
//
// The returned Image and suffix slice are independent copies: Slicer
// never aliases the same backing array across two calls, so a caller may
// freely hold on to earlier pairs (e.g. to feed a pipeline with more
// than one in flight) without them being clobbered by a later Next.
func (s *Slicer) Next() (img image.Image, suffix []write.Write, ok bool, err error) {
	if s.done {
		return image.Image{}, nil, false, nil
	}

	if !s.started {
		s.started = true
		if err := s.prime(); err != nil {
			return image.Image{}, nil, false, err
		}
		img, suffix := s.emit()
		return img, suffix, true, nil
	}

	if !s.draining {
		w, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			s.draining = true
		} else if err != nil {
			return image.Image{}, nil, false, fmt.Errorf("slicer: read next write: %w", err)
		} else {
			if len(s.window) > 0 {
				s.prefix = append(s.prefix, s.window[0])
				s.window = s.window[1:]
			}
			s.window = append(s.window, w)
			img, suffix := s.emit()
			return img, suffix, true, nil
		}
	}

	// Draining: move the oldest window item into the prefix one write
	// at a time, still emitting a pair each step, until the window runs
	// dry.
	if len(s.window) == 0 {
		s.done = true
		return image.Image{}, nil, false, nil
	}
	s.prefix = append(s.prefix, s.window[0])
	s.window = s.window[1:]
	img, suffix := s.emit()
	return img, suffix, true, nil
}

// prime fills the initial window with up to opsToTest writes.
func (s *Slicer) prime() error {
	for i := 0; i < s.opsToTest; i++ {
		w, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			s.draining = true
			break
		}
		if err != nil {
			return fmt.Errorf("slicer: prime window: %w", err)
		}
		s.window = append(s.window, w)
	}
	return nil
}

// emit snapshots the current prefix/window into a fresh Image/slice pair.
func (s *Slicer) emit() (image.Image, []write.Write) {
	return image.New(s.baseImageName, s.prefix), cloneWrites(s.window)
}

func cloneWrites(ws []write.Write) []write.Write {
	cp := make([]write.Write, len(ws))
	copy(cp, ws)
	return cp
}
