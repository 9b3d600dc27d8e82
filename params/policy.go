package params

import (
	"fmt"
	"strings"

	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/focus"
)

// FocusSetting is the focus behavior asked for by the host
type FocusSetting int

const (
	FocusOff FocusSetting = iota
	FocusContinuous
	FocusTap
)

func (f FocusSetting) String() string {
	switch f {
	case FocusContinuous:
		return "continuous"
	case FocusTap:
		return "tap"
	default:
		return "off"
	}
}

func ParseFocusSetting(s string) (FocusSetting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return FocusOff, nil
	case "continuous":
		return FocusContinuous, nil
	case "tap":
		return FocusTap, nil
	default:
		return FocusOff, fmt.Errorf("invalid focus setting: %s", s)
	}
}

func (f FocusSetting) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FocusSetting) UnmarshalText(text []byte) error {
	parsed, err := ParseFocusSetting(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// focusPriorities lists, per setting, the modes to try in order. Continuous
// falls through to the Off list when continuous-picture is unavailable.
var focusPriorities = map[FocusSetting][]focus.Mode{
	FocusContinuous: {focus.ModeContinuousPicture, focus.ModeFixed, focus.ModeInfinity, focus.ModeAuto},
	FocusTap:        {focus.ModeContinuousPicture},
	FocusOff:        {focus.ModeFixed, focus.ModeInfinity, focus.ModeAuto},
}

// FocusModeFor returns the first mode of the setting's priority list the
// device supports. Off settles on auto as the last resort even when the
// device does not list it. Tap leaves current untouched when continuous-picture
// is unavailable.
func FocusModeFor(setting FocusSetting, caps device.Capabilities, current focus.Mode) focus.Mode {
	priorities, ok := focusPriorities[setting]
	if !ok {
		return current
	}
	for _, mode := range priorities {
		if caps.SupportsFocusMode(mode) {
			return mode
		}
	}
	if setting == FocusTap {
		return current
	}
	return focus.ModeAuto
}

// FlashModeFor returns requested when supported, otherwise current when
// supported, otherwise off
func FlashModeFor(requested, current device.FlashMode, caps device.Capabilities) device.FlashMode {
	for _, mode := range []device.FlashMode{requested, current} {
		if mode != "" && caps.SupportsFlashMode(mode) {
			return mode
		}
	}
	return device.FlashOff
}
