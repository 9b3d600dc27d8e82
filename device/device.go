// Package device describes the camera driver collaborator: what it reports
// about itself, the parameter set it accepts and the calls the session makes
// against it.
package device

import (
	"context"

	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/resolution"
)

type FlashMode string

const (
	FlashOff    FlashMode = "off"
	FlashOn     FlashMode = "on"
	FlashAuto   FlashMode = "auto"
	FlashTorch  FlashMode = "torch"
	FlashRedEye FlashMode = "red-eye"
)

// ParseFlashMode accepts the lower case names of the flash modes. An empty string means off.
func ParseFlashMode(s string) (FlashMode, error) {
	switch mode := FlashMode(s); mode {
	case "":
		return FlashOff, nil
	case FlashOff, FlashOn, FlashAuto, FlashTorch, FlashRedEye:
		return mode, nil
	default:
		return FlashOff, NewUnknownModeError("flash", s)
	}
}

// FpsRange is a preview frame rate range scaled by 1000 (30fps is 30000)
type FpsRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Capabilities are the read-only lists a device reports once it is open
type Capabilities struct {
	PreviewSizes []resolution.Size
	PictureSizes []resolution.Size
	// VideoSizes is nil when the device has no dedicated video sizes
	VideoSizes []resolution.Size

	ZoomSupported bool
	// ZoomRatios are ascending and percent-scaled (100 is no zoom)
	ZoomRatios []int

	FpsRanges  []FpsRange
	FocusModes []focus.Mode
	FlashModes []FlashMode

	MaxFocusAreas    int
	MaxMeteringAreas int

	// PreviewBitsPerPixel is the bit depth of the preview frame format
	PreviewBitsPerPixel int

	VerticalViewAngle   float64
	HorizontalViewAngle float64
}

// SizeLists returns the size capabilities in the form the resolution selector uses
func (c Capabilities) SizeLists() resolution.SizeLists {
	return resolution.SizeLists{
		Preview: c.PreviewSizes,
		Picture: c.PictureSizes,
		Video:   c.VideoSizes,
	}
}

// FocusCapabilities returns the focus related part of the capabilities
func (c Capabilities) FocusCapabilities() focus.Capabilities {
	return focus.Capabilities{
		SupportedModes:   c.FocusModes,
		MaxFocusAreas:    c.MaxFocusAreas,
		MaxMeteringAreas: c.MaxMeteringAreas,
	}
}

func (c Capabilities) SupportsFocusMode(mode focus.Mode) bool {
	for _, m := range c.FocusModes {
		if m == mode {
			return true
		}
	}
	return false
}

func (c Capabilities) SupportsFlashMode(mode FlashMode) bool {
	for _, m := range c.FlashModes {
		if m == mode {
			return true
		}
	}
	return false
}

// FrameLength is the byte length of one preview frame at size
func (c Capabilities) FrameLength(size resolution.Size) int {
	return size.Width * size.Height * c.PreviewBitsPerPixel / 8
}

// Info is the fixed description of the physical sensor
type Info struct {
	Facing           orientation.Facing
	SensorMountAngle int
}

// Parameters is the parameter set submitted to and read back from a device
type Parameters struct {
	PreviewSize   resolution.Size
	PictureSize   resolution.Size
	FpsRange      FpsRange
	Rotation      int
	FocusMode     focus.Mode
	FlashMode     FlashMode
	ZoomIndex     int
	FocusAreas    []focus.Area
	MeteringAreas []focus.Area
}

// Clone returns a deep copy so snapshots never share area slices
func (p Parameters) Clone() Parameters {
	clone := p
	if p.FocusAreas != nil {
		clone.FocusAreas = append([]focus.Area(nil), p.FocusAreas...)
	}
	if p.MeteringAreas != nil {
		clone.MeteringAreas = append([]focus.Area(nil), p.MeteringAreas...)
	}
	return clone
}

// FrameHandler receives a preview frame in a buffer handed to the device
// through AddFrameBuffer. The buffer must be returned with AddFrameBuffer
// once the frame has been consumed.
type FrameHandler func(frame []byte)

// AutoFocusCallback is invoked when an auto-focus cycle completes
type AutoFocusCallback func(success bool)

// PictureCallback is invoked with the encoded picture or the error that prevented it
type PictureCallback func(data []byte, err error)

// FocusMoveCallback is invoked when continuous focus starts or stops moving
type FocusMoveCallback func(started bool)

// Device is a camera driver. Callbacks may be invoked from any goroutine and
// are never invoked while a call into the device is still running.
type Device interface {
	// Open acquires the device. Opening an open device is a no-op.
	Open(ctx context.Context) error
	// Close releases the device. Closing a closed device is a no-op.
	Close() error
	IsOpen() bool

	Info() Info
	// Capabilities returns the lists reported by the open device
	Capabilities() Capabilities
	// Parameters returns the parameter set currently in effect
	Parameters() (Parameters, error)
	// SetParameters submits a full parameter set. An error means the device
	// rejected it and the previous parameters are still in effect.
	SetParameters(params Parameters) error
	SetDisplayOrientation(degrees int) error

	StartPreview() error
	StopPreview() error

	AutoFocus(callback AutoFocusCallback) error
	CancelAutoFocus() error
	SetFocusMoveCallback(callback FocusMoveCallback)

	TakePicture(callback PictureCallback) error

	SetFrameHandler(handler FrameHandler)
	AddFrameBuffer(buffer []byte)
}
