package shuffler

import "github.com/tomato42/fsresck/write"

// Overlapping reports whether any two writes in ws target overlapping
// byte ranges on the same disk. Two writes with different DiskID values
// (including one nil and one non-nil — see write.Write.Equal's null DiskID
// rule, which this mirrors) are never considered overlapping even
// if their byte ranges intersect, since they live on different backing
// stores.
func Overlapping(ws []write.Write) bool {
	for i := range ws {
		for j := i + 1; j < len(ws); j++ {
			if pairOverlaps(ws[i], ws[j]) {
				return true
			}
		}
	}
	return false
}

func pairOverlaps(a, b write.Write) bool {
	if !sameDisk(a.DiskID, b.DiskID) {
		return false
	}
	aEnd, aOK := a.End()
	bEnd, bOK := b.End()
	if !aOK || !bOK {
		return false
	}
	return a.Offset < bEnd && b.Offset < aEnd
}

// sameDisk mirrors write.Write.Equal's DiskID rule: nil is only
// considered the same disk as another nil, never as a non-nil DiskID
// holding an equal or empty string.
func sameDisk(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
