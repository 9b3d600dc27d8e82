// Package focus turns tap gestures into focus and metering windows and decides
// how a tap-to-focus request can be carried out on a given device.
package focus

const (
	// DefaultWindowSize is the edge length of a tap window in device coordinates
	DefaultWindowSize = 300
	// DefaultCoordSpan is the width of the device coordinate space ([-1000, 1000])
	DefaultCoordSpan = 2000
	// DefaultAreaWeight is the weight submitted with focus and metering areas
	DefaultAreaWeight = 1000
)

// Mode is a device focus mode
type Mode string

const (
	ModeAuto              Mode = "auto"
	ModeMacro             Mode = "macro"
	ModeContinuousPicture Mode = "continuous-picture"
	ModeContinuousVideo   Mode = "continuous-video"
	ModeFixed             Mode = "fixed"
	ModeInfinity          Mode = "infinity"
)

// supportsAreas reports whether focus areas take effect in mode
func (m Mode) supportsAreas() bool {
	switch m {
	case ModeAuto, ModeMacro, ModeContinuousPicture, ModeContinuousVideo:
		return true
	default:
		return false
	}
}

// Window is a rectangle in device coordinates, every edge within [-1000, 1000]
type Window struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (w Window) Width() int  { return w.Right - w.Left }
func (w Window) Height() int { return w.Bottom - w.Top }

// Area is a weighted window submitted as a focus or metering area
type Area struct {
	Window Window `json:"window"`
	Weight int    `json:"weight"`
}

// TapToFocusWindow computes the default-sized window around a normalized tap
func TapToFocusWindow(x, y float64) Window {
	return TapToWindow(x, y, DefaultWindowSize, DefaultCoordSpan)
}

// TapToWindow maps a tap at (x, y), each in [0, 1] of the preview surface, to
// a windowSize square centred on it. Edges are clamped to [0, coordSpan] and
// the result is shifted so the space is centred on zero.
func TapToWindow(x, y float64, windowSize, coordSpan int) Window {
	padding := windowSize / 2
	centerX := int(clampUnit(x) * float64(coordSpan))
	centerY := int(clampUnit(y) * float64(coordSpan))

	left := clamp(centerX-padding, 0, coordSpan)
	top := clamp(centerY-padding, 0, coordSpan)
	right := clamp(centerX+padding, 0, coordSpan)
	bottom := clamp(centerY+padding, 0, coordSpan)

	half := coordSpan / 2
	return Window{
		Left:   left - half,
		Top:    top - half,
		Right:  right - half,
		Bottom: bottom - half,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
