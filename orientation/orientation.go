// Package orientation computes how preview frames and captured media must be
// rotated given which way the sensor faces, how it is mounted, how the display
// is rotated and how the device is physically held.
package orientation

import (
	"fmt"
	"strings"
)

type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	switch f {
	case FacingFront:
		return "front"
	default:
		return "back"
	}
}

// ParseFacing accepts "front" or "back" (case insensitive)
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return FacingFront, nil
	case "back", "":
		return FacingBack, nil
	default:
		return FacingBack, fmt.Errorf("invalid camera facing: %s", s)
	}
}

// State is the orientation input shared by rotation and preview-size selection.
// All angles are in degrees.
type State struct {
	Facing             Facing
	SensorMountAngle   int
	DisplayOrientation int
	DeviceOrientation  int
}

// Rotation holds the two rotations derived from a State, both in [0,360)
type Rotation struct {
	PreviewDegrees int `json:"preview_degrees"`
	CaptureDegrees int `json:"capture_degrees"`
}

// Normalize wraps degrees into [0,360)
func Normalize(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

// PreviewRotation returns the rotation to apply to the preview surface.
// Front-facing previews are mirrored, so the rotation runs the other way.
func PreviewRotation(facing Facing, sensorMountAngle, displayOrientation int) int {
	if facing == FacingFront {
		result := Normalize(sensorMountAngle + displayOrientation)
		return Normalize(360 - result)
	}
	return Normalize(sensorMountAngle - displayOrientation + 360)
}

// CaptureRotation returns the rotation to record in captured images and video.
// It additionally corrects for the device being held at a different angle than
// the (possibly locked) display orientation at the moment of capture.
func CaptureRotation(facing Facing, sensorMountAngle, displayOrientation, deviceOrientation int) int {
	delta := displayOrientation - deviceOrientation

	if facing == FacingFront {
		base := Normalize(sensorMountAngle + displayOrientation)
		return Normalize(base - delta + 360)
	}

	base := Normalize(sensorMountAngle - displayOrientation + 360)
	return Normalize(base + delta + 360)
}

// Compute returns both rotations for the given inputs
func Compute(facing Facing, sensorMountAngle, displayOrientation, deviceOrientation int) Rotation {
	return Rotation{
		PreviewDegrees: PreviewRotation(facing, sensorMountAngle, displayOrientation),
		CaptureDegrees: CaptureRotation(facing, sensorMountAngle, displayOrientation, deviceOrientation),
	}
}

func (s State) PreviewRotation() int {
	return PreviewRotation(s.Facing, s.SensorMountAngle, s.DisplayOrientation)
}

func (s State) CaptureRotation() int {
	return CaptureRotation(s.Facing, s.SensorMountAngle, s.DisplayOrientation, s.DeviceOrientation)
}

func (s State) Rotation() Rotation {
	return Compute(s.Facing, s.SensorMountAngle, s.DisplayOrientation, s.DeviceOrientation)
}

// InvertsPreview reports whether the sensor ends up rotated by a quarter turn
// relative to the device, in which case preview width and height swap.
func (s State) InvertsPreview() bool {
	return Normalize(s.SensorMountAngle+s.DeviceOrientation)%180 == 90
}

// IsPortraitDevice reports whether the device is held upright or upside down
func (s State) IsPortraitDevice() bool {
	return Normalize(s.DeviceOrientation)%180 == 0
}

// ValidateDegrees rejects angles that are not one of the four canonical orientations
func ValidateDegrees(degrees int) error {
	switch degrees {
	case 0, 90, 180, 270:
		return nil
	default:
		return fmt.Errorf("invalid orientation %d: must be one of 0, 90, 180, 270", degrees)
	}
}
