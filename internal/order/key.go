package order

import (
	"errors"
	"strings"
)

// Key alphabet. The two characters just outside the digit range are the
// "infinitely small" and "infinitely large" sentinels; they never appear in
// an issued key.
const (
	sentinelLow  = '!'
	sentinelHigh = '~'

	firstDigit = sentinelLow + 1
	lastDigit  = sentinelHigh - 1

	// Base is the number of digits available to a key position.
	Base = lastDigit - firstDigit + 1
)

var errMalformedBounds = errors.New("malformed key bounds")

func digitOf(c byte) int {
	return int(c) - firstDigit
}

func digitChar(d int) byte {
	return byte(d + firstDigit)
}

// padded returns the digit at position i, treating positions past the end
// of s as the zero digit.
func padded(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return firstDigit
}

// ValidKey reports whether s could have been produced by the indexer: it is
// non-empty, uses only digit characters and does not end in the zero digit.
func ValidKey(s string) bool {
	if s == "" || s[len(s)-1] == firstDigit {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < firstDigit || s[i] > lastDigit {
			return false
		}
	}
	return true
}

// midpoint returns a key strictly between lo and hi. An empty lo means no
// lower bound and an empty hi means no upper bound. Both bounds must be
// valid keys (or empty) and lo < hi must hold when both are set.
//
// The result is at most one digit longer than the longer bound.
func midpoint(lo, hi string) (string, error) {
	if hi != "" && lo >= hi {
		return "", errMalformedBounds
	}
	var prefix strings.Builder
	for {
		if hi != "" {
			n := 0
			for n < len(hi) && padded(lo, n) == hi[n] {
				n++
			}
			if n == len(hi) {
				return "", errMalformedBounds
			}
			if n > 0 {
				prefix.WriteString(hi[:n])
				if n < len(lo) {
					lo = lo[n:]
				} else {
					lo = ""
				}
				hi = hi[n:]
			}
		}

		dLo := 0
		if lo != "" {
			dLo = digitOf(lo[0])
		}
		dHi := int(Base)
		if hi != "" {
			dHi = digitOf(hi[0])
		}

		if dHi-dLo > 1 {
			prefix.WriteByte(digitChar((dLo + dHi + 1) / 2))
			return prefix.String(), nil
		}

		// Adjacent leading digits.
		if hi != "" && len(hi) > 1 {
			prefix.WriteByte(hi[0])
			return prefix.String(), nil
		}
		prefix.WriteByte(digitChar(dLo))
		if lo != "" {
			lo = lo[1:]
		}
		hi = ""
	}
}

// spread returns n strictly increasing keys of equal length, evenly spaced
// across the key space.
func spread(n int) []string {
	if n <= 0 {
		return nil
	}
	length := 1
	space := uint64(Base)
	for space < 2*uint64(n+1) {
		length++
		space *= Base
	}
	step := space / uint64(n+1)

	keys := make([]string, n)
	buf := make([]byte, length)
	for i := range n {
		v := step * uint64(i+1)
		if v%Base == 0 {
			v++
		}
		for p := length - 1; p >= 0; p-- {
			buf[p] = digitChar(int(v % Base))
			v /= Base
		}
		keys[i] = string(buf)
	}
	return keys
}
