// Package image materializes a base disk image plus a list of pending
// writes into a throwaway temporary image file, the unit of work an
// external consistency checker is run against.
package image

import (
	"fmt"
	"os"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/internal/testutil"
	"github.com/tomato42/fsresck/write"
)

// Image describes one test case: a named base image plus the writes
// that should land on top of it once materialized.
//
// Image moves through three states: clean (TempImageName == ""),
// materialized (TempImageName set, a real file exists there with
// PendingWrites applied), and clean again after Cleanup. CreateImage and
// Cleanup are the only state transitions.
type Image struct {
	BaseImageName string
	PendingWrites []write.Write
	TempImageName string
}

// New returns an Image for baseImageName with the given pending writes.
// The slice is copied so later mutation by the caller (e.g. a shuffler
// reusing a buffer) can't alias this Image's writes.
func New(baseImageName string, pendingWrites []write.Write) Image {
	cp := make([]write.Write, len(pendingWrites))
	copy(cp, pendingWrites)
	return Image{BaseImageName: baseImageName, PendingWrites: cp}
}

// CreateImage materializes img into a unique file under dir: it clones
// BaseImageName (via CoW reflink where supported, falling back to a
// sparse-preserving byte copy), then applies PendingWrites in order.
//
// CreateImage is idempotent: calling it again on an already-materialized
// Image just returns the existing TempImageName without doing any work.
func (img *Image) CreateImage(dir string) (string, error) {
	if img.TempImageName != "" {
		return img.TempImageName, nil
	}

	tmp, err := os.CreateTemp(dir, "fsresck.")
	if err != nil {
		return "", fmt.Errorf("image: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	testutil.MaybeKill(testutil.KPImageClone)
	if err := cloneImage(img.BaseImageName, tmpName); err != nil {
		return "", fmt.Errorf("image: clone %q to %q: %w", img.BaseImageName, tmpName, errorsJoin(errs.FSCopyError, err))
	}

	f, err := os.OpenFile(tmpName, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("image: reopen %q: %w", tmpName, err)
	}
	defer f.Close()

	for _, w := range img.PendingWrites {
		testutil.MaybeKill(testutil.KPImageWrite)
		if _, err := f.WriteAt(w.Data, int64(w.Offset)); err != nil {
			return "", fmt.Errorf("image: apply write at %d: %w", w.Offset, err)
		}
	}

	img.TempImageName = tmpName
	return tmpName, nil
}

// Cleanup removes the materialized temp image, if any, and resets
// TempImageName so img could be materialized again under a new name.
func (img *Image) Cleanup() error {
	if img.TempImageName == "" {
		return nil
	}
	err := os.Remove(img.TempImageName)
	img.TempImageName = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("image: cleanup: %w", err)
	}
	return nil
}

// errorsJoin wraps err so errors.Is(result, kind) holds in addition to
// the original error being visible via %w unwrapping, without pulling in
// errors.Join's multi-error semantics (only one of the two ever needs to
// be matched with errors.Is by a caller).
func errorsJoin(kind, err error) error {
	return wrappedError{kind: kind, cause: err}
}

type wrappedError struct {
	kind  error
	cause error
}

func (w wrappedError) Error() string { return w.cause.Error() }
func (w wrappedError) Unwrap() []error {
	return []error{w.kind, w.cause}
}
