package device

import (
	"errors"
	"fmt"
)

// ErrDeviceClosed is returned by calls that need an open device
var ErrDeviceClosed = errors.New("camera device is not open")

// ErrPreviewNotRunning is returned by calls that need a running preview
var ErrPreviewNotRunning = errors.New("camera preview is not running")

type UnknownModeError struct {
	Kind  string
	Value string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown %s mode: %q", e.Kind, e.Value)
}

func NewUnknownModeError(kind, value string) error {
	return &UnknownModeError{Kind: kind, Value: value}
}

func IsUnknownModeError(err error) bool {
	var target *UnknownModeError
	return errors.As(err, &target)
}
