package resolution

// CommonRatios returns, in ascending order, the aspect ratios that previewSizes
// and targetSizes have in common, considering only preview ratios equal to
// boundRatio (the display's height:width ratio).
//
// When no preview size has the display ratio, the ratio of the first preview
// size in device order is used instead. Devices usually report their largest
// size first, and callers rely on that ordering, so the first entry is used
// rather than the largest one.
func CommonRatios(previewSizes, targetSizes []Size, boundRatio AspectRatio) []AspectRatio {
	if len(previewSizes) == 0 || len(targetSizes) == 0 {
		return nil
	}

	previewRatios := make(map[AspectRatio]struct{})
	for _, size := range previewSizes {
		ratio := RatioOf(size)
		if ratio == boundRatio {
			previewRatios[ratio] = struct{}{}
		}
	}

	targetRatios := make(map[AspectRatio]struct{})
	for _, size := range targetSizes {
		targetRatios[RatioOf(size)] = struct{}{}
	}

	var out []AspectRatio
	if len(previewRatios) == 0 {
		fallback := RatioOf(previewSizes[0])
		if _, ok := targetRatios[fallback]; ok {
			out = append(out, fallback)
		}
		return out
	}

	for ratio := range previewRatios {
		if _, ok := targetRatios[ratio]; ok {
			out = append(out, ratio)
		}
	}
	sortRatios(out)
	return out
}

// Largest returns the last (largest) ratio of an ascending slice
func Largest(ratios []AspectRatio) (AspectRatio, bool) {
	if len(ratios) == 0 {
		return AspectRatio{}, false
	}
	return ratios[len(ratios)-1], true
}

// containsRatio reports whether ratios contains r
func containsRatio(ratios []AspectRatio, r AspectRatio) bool {
	for _, candidate := range ratios {
		if candidate == r {
			return true
		}
	}
	return false
}
