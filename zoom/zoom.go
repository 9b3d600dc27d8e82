// Package zoom maps a continuous zoom factor onto a device's discrete zoom table.
package zoom

import "math"

// MinFactor is the smallest zoom factor exposed to callers (no zoom)
const MinFactor = 1.0

// PercentToIndex returns the index into ratios (ascending, percent-scaled, so
// 100 means 1.0x) that best represents desiredPercent.
//
// Below the first ratio it returns 0. When the desired value falls between two
// adjacent entries the lower one wins. When it matches an entry exactly the
// entry after it is returned, and above the last entry the last index is returned.
func PercentToIndex(ratios []int, desiredPercent int) int {
	lowerIndex := -1
	upperIndex := -1

	for i, ratio := range ratios {
		if ratio < desiredPercent {
			lowerIndex = i
		} else if ratio > desiredPercent {
			upperIndex = i
			break
		}
	}

	if lowerIndex < 0 {
		return 0
	}
	if lowerIndex+1 == upperIndex {
		return lowerIndex
	}
	if upperIndex >= 0 {
		return upperIndex
	}
	return len(ratios) - 1
}

// FactorToPercent converts a factor such as 2.5 into the percent scale (250),
// truncating. Values outside the int32 range saturate and NaN maps to 0.
func FactorToPercent(factor float64) int {
	percent := factor * 100
	switch {
	case math.IsNaN(percent):
		return 0
	case percent >= math.MaxInt32:
		return math.MaxInt32
	case percent <= math.MinInt32:
		return math.MinInt32
	}
	return int(percent)
}

// MaxFactor returns the largest factor supported by ratios, or MinFactor when the table is empty
func MaxFactor(ratios []int) float64 {
	if len(ratios) == 0 {
		return MinFactor
	}
	return float64(ratios[len(ratios)-1]) / 100
}

// ClampFactor clamps factor into [1.0, MaxFactor(ratios)]. Without a zoom
// table only the lower bound applies.
func ClampFactor(factor float64, ratios []int) float64 {
	if factor <= MinFactor {
		return MinFactor
	}
	if len(ratios) == 0 {
		return factor
	}
	if max := MaxFactor(ratios); factor > max {
		return max
	}
	return factor
}

// Resolve clamps factor and returns it together with the index to submit to the device
func Resolve(factor float64, ratios []int) (float64, int) {
	if factor <= MinFactor {
		factor = MinFactor
	}
	index := PercentToIndex(ratios, FactorToPercent(factor))
	return ClampFactor(factor, ratios), index
}
