// Package events carries what happens to a camera session to the host:
// lifecycle changes, focus movement and every degraded failure.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCameraOpen  Kind = "camera-open"
	KindCameraClose Kind = "camera-close"
	KindFocusMoved  Kind = "focus-moved"
	// KindError is a generic error report, e.g. a failed retry attempt
	KindError            Kind = "error"
	KindCapabilityGap    Kind = "capability-gap"
	KindDeviceRejected   Kind = "device-rejected"
	KindUnsupportedFocus Kind = "unsupported-focus"
	KindTransientError   Kind = "transient-error"
	KindImageCaptured    Kind = "image-captured"
)

// IsFailure reports whether events of this kind describe something that went wrong
func (k Kind) IsFailure() bool {
	switch k {
	case KindError, KindCapabilityGap, KindDeviceRejected, KindUnsupportedFocus, KindTransientError:
		return true
	default:
		return false
	}
}

type Event struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"session_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates an event with a fresh ID and the current time
func New(kind Kind, message string) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// FromError creates an event of kind carrying err's message
func FromError(kind Kind, err error) Event {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return New(kind, message)
}

// With returns a copy of the event with key set in its data
func (e Event) With(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}
