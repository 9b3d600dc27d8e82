package resolution

import (
	"fmt"
	"sort"
)

// AspectRatio is a width:height fraction kept in lowest terms, so two sizes
// share an aspect ratio exactly when their AspectRatio values are equal.
type AspectRatio struct {
	x int
	y int
}

// AspectRatioOf reduces x:y by their greatest common divisor
func AspectRatioOf(x, y int) AspectRatio {
	d := gcd(x, y)
	if d == 0 {
		return AspectRatio{}
	}
	return AspectRatio{x: x / d, y: y / d}
}

// RatioOf returns the aspect ratio of s
func RatioOf(s Size) AspectRatio {
	return AspectRatioOf(s.Width, s.Height)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (r AspectRatio) X() int { return r.x }
func (r AspectRatio) Y() int { return r.y }

func (r AspectRatio) IsZero() bool {
	return r.x == 0 && r.y == 0
}

// Matches reports whether s has this aspect ratio
func (r AspectRatio) Matches(s Size) bool {
	return !r.IsZero() && RatioOf(s) == r
}

// Inverse swaps the terms (4:3 becomes 3:4)
func (r AspectRatio) Inverse() AspectRatio {
	return AspectRatio{x: r.y, y: r.x}
}

// Compare orders ratios by their value
func (r AspectRatio) Compare(o AspectRatio) int {
	lhs := int64(r.x) * int64(o.y)
	rhs := int64(o.x) * int64(r.y)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (r AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", r.x, r.y)
}

// MarshalText renders the ratio as "x:y"
func (r AspectRatio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// sortRatios sorts ascending by value
func sortRatios(ratios []AspectRatio) {
	sort.Slice(ratios, func(i, j int) bool {
		return ratios[i].Compare(ratios[j]) < 0
	})
}
