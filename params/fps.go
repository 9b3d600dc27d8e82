package params

import (
	"math"

	"github.com/yeti47/camkit/device"
)

// DefaultRequestedFps is the preview frame rate asked for when none is configured
const DefaultRequestedFps = 30.0

// SelectFpsRange picks the range whose bounds are closest to requestedFps,
// measured as the sum of the distances to both bounds. The first range wins ties.
func SelectFpsRange(ranges []device.FpsRange, requestedFps float64) (device.FpsRange, bool) {
	desired := int(math.Round(requestedFps * 1000))

	var best device.FpsRange
	found := false
	minDiff := math.MaxInt

	for _, r := range ranges {
		diff := abs(desired-r.Min) + abs(desired-r.Max)
		if diff < minDiff {
			best = r
			minDiff = diff
			found = true
		}
	}
	return best, found
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
