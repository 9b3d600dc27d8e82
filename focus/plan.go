package focus

// Capabilities are the focus-related abilities of an open device
type Capabilities struct {
	SupportedModes   []Mode
	MaxFocusAreas    int
	MaxMeteringAreas int
}

func (c Capabilities) Supports(mode Mode) bool {
	for _, m := range c.SupportedModes {
		if m == mode {
			return true
		}
	}
	return false
}

type Strategy int

const (
	// StrategyWindowed submits the window as focus area (and metering area when supported)
	StrategyWindowed Strategy = iota
	// StrategyMeteringOnly is used when focus areas are unusable in the current mode but metering areas are supported
	StrategyMeteringOnly
	// StrategyUnwindowed triggers a plain auto-focus cycle without areas
	StrategyUnwindowed
)

func (s Strategy) String() string {
	switch s {
	case StrategyWindowed:
		return "windowed"
	case StrategyMeteringOnly:
		return "metering-only"
	default:
		return "unwindowed"
	}
}

// Plan describes how a tap is carried out
type Plan struct {
	Strategy      Strategy
	Mode          Mode
	FocusAreas    []Area
	MeteringAreas []Area
	// Degraded is set when areas were usable but auto mode is not, so the
	// tap fell back to an unwindowed cycle
	Degraded bool
}

// NeedsReset reports whether the plan changes parameters that must be
// restored once the focus cycle has settled
func (p Plan) NeedsReset() bool {
	return p.Strategy != StrategyUnwindowed
}

// PlanTap decides how to focus on window given the current focus mode
func PlanTap(window Window, currentMode Mode, caps Capabilities) Plan {
	areas := []Area{{Window: window, Weight: DefaultAreaWeight}}

	var plan Plan
	switch {
	case caps.MaxFocusAreas > 0 && currentMode.supportsAreas():
		plan = Plan{Strategy: StrategyWindowed, Mode: ModeAuto, FocusAreas: areas}
		if caps.MaxMeteringAreas > 0 {
			plan.MeteringAreas = areas
		}
	case caps.MaxMeteringAreas > 0:
		plan = Plan{Strategy: StrategyMeteringOnly, Mode: ModeAuto, FocusAreas: areas, MeteringAreas: areas}
	default:
		return Plan{Strategy: StrategyUnwindowed, Mode: currentMode}
	}

	if !caps.Supports(ModeAuto) {
		return Plan{Strategy: StrategyUnwindowed, Mode: currentMode, Degraded: true}
	}
	return plan
}
