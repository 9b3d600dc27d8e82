// Package params composes a full parameter set for an open device and
// submits it, rolling back to the last accepted set on rejection and retrying
// while sizes cannot be resolved.
package params

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/events"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/resolution"
	"github.com/yeti47/camkit/zoom"
)

const (
	DefaultMaxAttempts = 100
	DefaultRetryDelay  = time.Millisecond
)

// Parameter groups as they are reported in rejection events
const (
	FieldPreviewSize   = "preview-size"
	FieldPictureSize   = "picture-size"
	FieldConfiguration = "configuration"
)

type Settings struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

var DefaultSettings = Settings{
	MaxAttempts: DefaultMaxAttempts,
	RetryDelay:  DefaultRetryDelay,
}

// Desired is the configuration the host asks for
type Desired struct {
	Orientation  orientation.State
	RequestedFps float64
	Focus        FocusSetting
	Flash        device.FlashMode
	ZoomFactor   float64
}

// Result describes what Apply achieved
type Result struct {
	// Parameters is the last parameter set the device accepted
	Parameters device.Parameters
	Selection  resolution.Selection
	Rotation   orientation.Rotation
	// SurfaceSize is the preview size as the display surface sees it, nil without a preview size
	SurfaceSize *resolution.Size
	ZoomFactor  float64
	FlashMode   device.FlashMode
	Attempts    int
	// Rejected lists the parameter groups the device refused, in order
	Rejected []string
	// Resolved is false when sizes were still missing after the last attempt
	Resolved bool
	// Aborted is set when the session went away before Apply finished
	Aborted bool
}

type Applier struct {
	dev        device.Device
	selector   *resolution.Selector
	dispatcher events.Dispatcher
	logger     logging.Logger
	settings   Settings
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewApplier(dev device.Device, selector *resolution.Selector, dispatcher events.Dispatcher, settings Settings, logger logging.Logger) *Applier {
	if logger == nil {
		logger = logging.NopLogger
	}
	if dispatcher == nil {
		dispatcher = events.NopDispatcher
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}
	if settings.RetryDelay < 0 {
		settings.RetryDelay = 0
	}
	return &Applier{
		dev:        dev,
		selector:   selector,
		dispatcher: dispatcher,
		logger:     logger,
		settings:   settings,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Apply composes and submits the desired configuration. alive is checked
// before every attempt; once it reports false Apply stops without touching
// the device again. Missing sizes are retried up to MaxAttempts attempts in
// total, after which Apply gives up and returns the partial result without
// an error.
func (a *Applier) Apply(ctx context.Context, desired Desired, alive func() bool) (*Result, error) {
	current, err := a.dev.Parameters()
	if err != nil {
		return nil, NewTransientDeviceError("read parameters", err)
	}
	caps := a.dev.Capabilities()

	lastGood := current.Clone()
	result := &Result{}

	for attempt := 1; ; attempt++ {
		if alive != nil && !alive() {
			result.Aborted = true
			break
		}
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			result.Parameters = lastGood
			return result, err
		}

		result.Attempts = attempt
		result.Rejected = nil

		missing, err := a.applyOnce(desired, caps, &lastGood, result)
		if err != nil {
			result.Parameters = lastGood
			return result, err
		}
		if len(missing) == 0 {
			result.Resolved = true
			break
		}

		if attempt >= a.settings.MaxAttempts {
			gap := NewCapabilityGapError(missing, attempt)
			a.logger.Warn("Giving up on parameter adjustment", "attempts", attempt, "error", gap)
			a.dispatcher.Dispatch(events.FromError(events.KindCapabilityGap, gap).With("attempts", attempt))
			break
		}

		a.dispatcher.Dispatch(events.New(events.KindError, fmt.Sprintf("parameter adjustment incomplete, retrying (attempt %d)", attempt)))
		if err := a.sleep(ctx, a.settings.RetryDelay); err != nil {
			result.Aborted = true
			result.Parameters = lastGood
			return result, err
		}
	}

	result.Parameters = lastGood
	return result, nil
}

// applyOnce runs one pass over all parameter groups and returns which sizes
// could not be resolved
func (a *Applier) applyOnce(desired Desired, caps device.Capabilities, lastGood *device.Parameters, result *Result) ([]string, error) {
	state := desired.Orientation
	params := lastGood.Clone()
	var missing []string

	selection := a.selector.Select(state)
	result.Selection = selection

	if selection.Preview != nil {
		preview := *selection.Preview
		surface := preview
		if !state.IsPortraitDevice() {
			surface = preview.Inverted()
		}
		result.SurfaceSize = &surface

		// the device takes the preview size in sensor orientation
		if state.InvertsPreview() {
			preview = preview.Inverted()
		}
		params.PreviewSize = preview

		if fpsRange, ok := SelectFpsRange(caps.FpsRanges, desired.RequestedFps); ok {
			params.FpsRange = fpsRange
		}
		if err := a.submit(FieldPreviewSize, &params, lastGood, result); err != nil {
			return nil, err
		}
	} else {
		missing = append(missing, "preview size")
	}

	if selection.Capture != nil {
		params.PictureSize = *selection.Capture
		if err := a.submit(FieldPictureSize, &params, lastGood, result); err != nil {
			return nil, err
		}
	} else {
		missing = append(missing, "capture size")
	}

	result.Rotation = state.Rotation()
	params.Rotation = result.Rotation.CaptureDegrees

	params.FocusMode = FocusModeFor(desired.Focus, caps, params.FocusMode)
	params.FlashMode = FlashModeFor(desired.Flash, params.FlashMode, caps)
	result.FlashMode = params.FlashMode

	if caps.ZoomSupported {
		factor, index := zoom.Resolve(desired.ZoomFactor, caps.ZoomRatios)
		params.ZoomIndex = index
		result.ZoomFactor = factor
	} else {
		result.ZoomFactor = zoom.ClampFactor(desired.ZoomFactor, nil)
	}

	if err := a.submit(FieldConfiguration, &params, lastGood, result); err != nil {
		return nil, err
	}
	return missing, nil
}

// submit hands params to the device. On rejection params is rolled back to
// lastGood and the rejection is reported; only a closed device is an error.
func (a *Applier) submit(field string, params *device.Parameters, lastGood *device.Parameters, result *Result) error {
	err := a.dev.SetParameters(*params)
	if err == nil {
		*lastGood = params.Clone()
		return nil
	}
	if errors.Is(err, device.ErrDeviceClosed) {
		return NewTransientDeviceError("submit "+field, err)
	}

	rejected := NewDeviceRejectedParametersError(field, err)
	a.logger.Warn("Device rejected parameters", "field", field, "error", err)
	a.dispatcher.Dispatch(events.FromError(events.KindDeviceRejected, rejected).With("field", field))

	result.Rejected = append(result.Rejected, field)
	*params = lastGood.Clone()
	return nil
}
