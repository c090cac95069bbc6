package shortcode

import "fmt"

// IssuedSet is a read-only view of every code already allocated.
//
// The view is a snapshot: another allocation may persist a code after the
// snapshot was taken, so callers must still insert with a uniqueness
// constraint and retry on conflict.
type IssuedSet interface {
	Contains(code string) bool
	Len() int
}

// CodeSet is an in-memory IssuedSet.
type CodeSet map[string]struct{}

// NewCodeSet builds a CodeSet from codes.
func NewCodeSet(codes ...string) CodeSet {
	set := make(CodeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

func (s CodeSet) Len() int { return len(s) }

// Add inserts code into the set.
func (s CodeSet) Add(code string) { s[code] = struct{}{} }

// Within returns the members of s that are valid codes under alpha. When
// every member is valid, s itself is returned.
func (s CodeSet) Within(alpha *Alphabet) CodeSet {
	for code := range s {
		if alpha.Valid(code) {
			continue
		}
		valid := make(CodeSet, len(s))
		for c := range s {
			if alpha.Valid(c) {
				valid[c] = struct{}{}
			}
		}
		return valid
	}
	return s
}

// Resolve walks driver from last and returns the first code not in issued.
//
// Each collision is a distinct issued code, so at most issued.Len()+1
// candidates are needed; the walk is also capped by the code space and, when
// positive, by maxAttempts. Exceeding the bound returns ErrCodeSpaceExhausted.
// ErrExhausted from the driver is returned unchanged.
//
// issued.Len() is compared against space, so issued must only hold codes the
// driver can produce.
func Resolve(driver Driver, space uint64, last string, issued IssuedSet, maxAttempts int) (string, error) {
	if issued == nil {
		issued = CodeSet{}
	}
	used := uint64(issued.Len())
	if used >= space {
		return "", fmt.Errorf("%w: all %d codes are issued", ErrCodeSpaceExhausted, space)
	}

	bound := used + 1
	if maxAttempts > 0 && uint64(maxAttempts) < bound {
		bound = uint64(maxAttempts)
	}

	candidate := last
	for attempt := uint64(0); attempt < bound; attempt++ {
		next, err := driver.Next(candidate)
		if err != nil {
			return "", err
		}
		if !issued.Contains(next) {
			return next, nil
		}
		candidate = next
	}
	return "", fmt.Errorf("%w: %d candidates after %q were already issued", ErrCodeSpaceExhausted, bound, last)
}
