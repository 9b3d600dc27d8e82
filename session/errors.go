package session

import "errors"

var (
	// ErrPreviewNotShowing is returned by operations that need a running preview
	ErrPreviewNotShowing = errors.New("preview is not showing")
	// ErrCaptureInProgress is returned when a capture is requested while one is in flight
	ErrCaptureInProgress = errors.New("capture already in progress")
)
