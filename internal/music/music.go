// Package music holds the key-matching utilities used for harmonic mixing:
// key parsing, relative major/minor detection, Camelot wheel positions, and
// transposition intervals.
package music

import (
	"fmt"
	"strings"
)

// Key is a musical key: a root note as a semitone offset from C plus a
// major/minor flag.
type Key struct {
	// Root is 0=C, 1=C#, ... 11=B.
	Root int
	// Minor is true for minor keys.
	Minor bool
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Parse reads key strings like "Am", "C#m", "F", "Bb". Sharp, flat, and
// "m"/"min" minor suffixes are accepted.
func Parse(s string) (Key, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, false
	}

	var base int
	switch strings.ToUpper(s[:1]) {
	case "C":
		base = 0
	case "D":
		base = 2
	case "E":
		base = 4
	case "F":
		base = 5
	case "G":
		base = 7
	case "A":
		base = 9
	case "B":
		base = 11
	default:
		return Key{}, false
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		base = (base + 1) % 12
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		base = (base + 11) % 12
		rest = rest[1:]
	}

	lower := strings.ToLower(rest)
	minor := strings.HasPrefix(lower, "m") || strings.Contains(lower, "min")

	return Key{Root: base, Minor: minor}, true
}

// Relative returns the relative major of a minor key, or the relative
// minor of a major key.
func (k Key) Relative() Key {
	if k.Minor {
		return Key{Root: (k.Root + 3) % 12, Minor: false}
	}
	return Key{Root: (k.Root + 9) % 12, Minor: true}
}

// Camelot returns the key's Camelot wheel position: a number 1-12 and a
// letter ('A' for minor, 'B' for major).
func (k Key) Camelot() (int, byte) {
	camelotMajor := [12]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
	camelotMinor := [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}

	letter := byte('B')
	pos := camelotMajor[k.Root%12]
	if k.Minor {
		letter = 'A'
		pos = camelotMinor[k.Root%12]
	}
	return pos, letter
}

// String renders the key with sharps ("Am", "F#", "A#m").
func (k Key) String() string {
	name := noteNames[k.Root%12]
	if k.Minor {
		return name + "m"
	}
	return name
}

// CamelotString renders the Camelot position, e.g. "8A".
func (k Key) CamelotString() string {
	pos, letter := k.Camelot()
	return fmt.Sprintf("%d%c", pos, letter)
}

// Compatible reports whether two keys can be mixed without transposition:
// the same key, or one being the relative of the other.
func Compatible(a, b Key) bool {
	if a == b {
		return true
	}
	return a.Relative() == b
}

// SemitonesToMatch returns the transposition (in semitones, -6..+6) that
// makes from harmonically match to. Compatible keys need none. When scale
// types differ, the match targets the relative key, so Am matches toward C
// rather than A major.
func SemitonesToMatch(from, to Key) int {
	if Compatible(from, to) {
		return 0
	}

	targetRoot := to.Root
	if from.Minor != to.Minor {
		targetRoot = to.Relative().Root
	}

	diff := targetRoot - from.Root
	if diff > 6 {
		diff -= 12
	} else if diff < -6 {
		diff += 12
	}
	return diff
}
