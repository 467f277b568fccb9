// Package version implements tag parsing and ordering for container
// image tags. Tags are reduced to the longest leading dotted-integer
// run ("v4.0.16.2944-ls301" -> 4.0.16.2944); everything after that run
// is ignored, so two tags sharing the numeric run compare equal even
// when their suffixes differ.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nvestri/imagescout/pkg/types"
)

var leadingNumeric = regexp.MustCompile(`^(\d+(?:\.\d+)*)`)

// Key is an ordered tuple of non-negative integers extracted from a tag.
type Key []int

// Parse extracts a Key from a tag. A leading "v" is stripped first.
// Tags with no leading dotted-integer run are unparseable and yield
// ok=false; they are incomparable with everything.
func Parse(tag string) (Key, bool) {
	clean := strings.TrimPrefix(tag, "v")
	m := leadingNumeric.FindString(clean)
	if m == "" {
		return nil, false
	}

	parts := strings.Split(m, ".")
	key := make(Key, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			// Leading run is all digits by construction, but a
			// component can still overflow int on pathological tags.
			return nil, false
		}
		key = append(key, n)
	}
	return key, true
}

// Compare orders two parsed keys lexicographically after zero-padding
// to equal length. It returns -1, 0, or 1.
func Compare(a, b Key) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Classify determines the magnitude of the transition between two tags.
// Both keys are padded to at least three components, then the first
// differing position decides: 0 -> major, 1 -> minor, else patch.
// Either tag failing to parse yields MagnitudeUnknown.
func Classify(currentTag, candidateTag string) types.Magnitude {
	cur, ok := Parse(currentTag)
	if !ok {
		return types.MagnitudeUnknown
	}
	cand, ok := Parse(candidateTag)
	if !ok {
		return types.MagnitudeUnknown
	}

	cur = pad(cur, 3)
	cand = pad(cand, 3)

	if cur[0] != cand[0] {
		return types.MagnitudeMajor
	}
	if cur[1] != cand[1] {
		return types.MagnitudeMinor
	}
	return types.MagnitudePatch
}

func pad(k Key, n int) Key {
	for len(k) < n {
		k = append(k, 0)
	}
	return k
}
