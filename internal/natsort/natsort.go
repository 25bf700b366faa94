// Package natsort orders file names the way people read them: digit runs are
// compared by numeric value, everything else case-insensitively.
package natsort

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Part is one run of a name: either all digits or no digits at all.
type Part struct {
	Raw     string
	Numeric bool
	// fold is the case-folded text for non-numeric parts and the digit run
	// without leading zeros for numeric ones.
	fold string
}

// Key is the ordered sequence of runs of a name.
type Key []Part

// NewKey splits name into maximal digit and non-digit runs.
func NewKey(name string) Key {
	folder := cases.Fold()
	var key Key
	start := 0
	for start < len(name) {
		numeric := isDigit(name[start])
		end := start + 1
		for end < len(name) && isDigit(name[end]) == numeric {
			end++
		}
		raw := name[start:end]
		p := Part{Raw: raw, Numeric: numeric}
		if numeric {
			p.fold = strings.TrimLeft(raw, "0")
		} else {
			p.fold = folder.String(raw)
		}
		key = append(key, p)
		start = end
	}
	return key
}

// isDigit accepts ASCII digits only; other Unicode digits sort as text.
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Compare returns -1, 0 or +1. Numeric runs of any width are compared by value.
func Compare(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		var c int
		switch {
		case a[i].Numeric && b[i].Numeric:
			c = compareDigits(a[i].fold, b[i].fold)
		case !a[i].Numeric && !b[i].Numeric:
			c = strings.Compare(a[i].fold, b[i].fold)
		default:
			c = strings.Compare(a[i].Raw, b[i].Raw)
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// compareDigits compares two digit strings without leading zeros.
func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(NewKey(a), NewKey(b)) < 0
}

// Sort orders names in place. Equal keys keep their original order.
func Sort(names []string) {
	keys := make([]Key, len(names))
	for i, n := range names {
		keys[i] = NewKey(n)
	}
	sort.Stable(byKey{names: names, keys: keys})
}

type byKey struct {
	names []string
	keys  []Key
}

func (s byKey) Len() int           { return len(s.names) }
func (s byKey) Less(i, j int) bool { return Compare(s.keys[i], s.keys[j]) < 0 }
func (s byKey) Swap(i, j int) {
	s.names[i], s.names[j] = s.names[j], s.names[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
