package params

import (
	"errors"
	"fmt"
	"strings"
)

// CapabilityGapError means no size could be resolved for the device's lists
type CapabilityGapError struct {
	Missing  []string
	Attempts int
}

func (e *CapabilityGapError) Error() string {
	return fmt.Sprintf("no resolvable %s after %d attempts", strings.Join(e.Missing, " and "), e.Attempts)
}

func NewCapabilityGapError(missing []string, attempts int) error {
	return &CapabilityGapError{Missing: missing, Attempts: attempts}
}

func IsCapabilityGapError(err error) bool {
	var target *CapabilityGapError
	return errors.As(err, &target)
}

// DeviceRejectedParametersError means the device refused a submitted parameter set
type DeviceRejectedParametersError struct {
	Field      string
	InnerError error
}

func (e *DeviceRejectedParametersError) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("device rejected %s: %v", e.Field, e.InnerError)
	}
	return "device rejected " + e.Field
}

func (e *DeviceRejectedParametersError) Unwrap() error {
	return e.InnerError
}

func NewDeviceRejectedParametersError(field string, inner error) error {
	return &DeviceRejectedParametersError{Field: field, InnerError: inner}
}

func IsDeviceRejectedParametersError(err error) bool {
	var target *DeviceRejectedParametersError
	return errors.As(err, &target)
}

// UnsupportedFocusOperationError means a tap could not be carried out with a focus window
type UnsupportedFocusOperationError struct {
	Operation string
}

func (e *UnsupportedFocusOperationError) Error() string {
	return "unsupported focus operation: " + e.Operation
}

func NewUnsupportedFocusOperationError(operation string) error {
	return &UnsupportedFocusOperationError{Operation: operation}
}

func IsUnsupportedFocusOperationError(err error) bool {
	var target *UnsupportedFocusOperationError
	return errors.As(err, &target)
}

// TransientDeviceError wraps a device call failure during a best-effort operation
type TransientDeviceError struct {
	Operation  string
	InnerError error
}

func (e *TransientDeviceError) Error() string {
	return fmt.Sprintf("device call failed during %s: %v", e.Operation, e.InnerError)
}

func (e *TransientDeviceError) Unwrap() error {
	return e.InnerError
}

func NewTransientDeviceError(operation string, inner error) error {
	return &TransientDeviceError{Operation: operation, InnerError: inner}
}

func IsTransientDeviceError(err error) bool {
	var target *TransientDeviceError
	return errors.As(err, &target)
}
