package device

import (
	"context"
	"sync"

	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/resolution"
)

// MockDevice is an in-memory device for tests and for running the host
// without camera hardware. Callbacks are invoked on their own goroutine, as a
// real driver would.
type MockDevice struct {
	mu     sync.Mutex
	logger logging.Logger

	info         Info
	capabilities Capabilities
	params       Parameters

	open               bool
	previewing         bool
	displayOrientation int

	frames    FrameQueue
	focusMove FocusMoveCallback

	calls     []string
	submitted []Parameters

	// OpenErr is returned by Open when set
	OpenErr error
	// RejectFunc decides whether a submitted parameter set is refused
	RejectFunc func(params Parameters) error
	// AutoFocusResult is reported to auto-focus callbacks
	AutoFocusResult bool
	// PictureData is handed to picture callbacks
	PictureData []byte
	// HoldPictures keeps picture callbacks pending until ReleasePictures is called
	HoldPictures bool
	// HoldAutoFocus keeps auto-focus callbacks pending until ReleaseAutoFocus is called
	HoldAutoFocus bool

	heldPictures  []PictureCallback
	heldAutoFocus []AutoFocusCallback
}

// NewMockDevice creates a closed mock device
func NewMockDevice(info Info, capabilities Capabilities, logger logging.Logger) *MockDevice {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &MockDevice{
		logger:          logger,
		info:            info,
		capabilities:    capabilities,
		AutoFocusResult: true,
		PictureData:     []byte{0xFF, 0xD8, 0xFF, 0xD9},
	}
}

// DefaultMockCapabilities resemble what a typical phone sensor reports
func DefaultMockCapabilities() Capabilities {
	return Capabilities{
		PreviewSizes: []resolution.Size{
			{Width: 1920, Height: 1080},
			{Width: 1440, Height: 1080},
			{Width: 1280, Height: 720},
			{Width: 640, Height: 480},
			{Width: 352, Height: 288},
		},
		PictureSizes: []resolution.Size{
			{Width: 4000, Height: 3000},
			{Width: 4000, Height: 2250},
			{Width: 3840, Height: 2160},
			{Width: 1920, Height: 1080},
			{Width: 1280, Height: 720},
			{Width: 640, Height: 480},
		},
		VideoSizes: []resolution.Size{
			{Width: 3840, Height: 2160},
			{Width: 1920, Height: 1080},
			{Width: 1280, Height: 720},
		},
		ZoomSupported:       true,
		ZoomRatios:          []int{100, 120, 150, 200, 250, 300, 400},
		FpsRanges:           []FpsRange{{15000, 15000}, {7000, 30000}, {30000, 30000}},
		FocusModes:          []focus.Mode{focus.ModeAuto, focus.ModeContinuousPicture, focus.ModeContinuousVideo, focus.ModeInfinity},
		FlashModes:          []FlashMode{FlashOff, FlashOn, FlashAuto, FlashTorch},
		MaxFocusAreas:       1,
		MaxMeteringAreas:    1,
		PreviewBitsPerPixel: 12,
		VerticalViewAngle:   49.6,
		HorizontalViewAngle: 63.4,
	}
}

// DefaultMockInfo is a back-facing sensor mounted a quarter turn off natural orientation
func DefaultMockInfo() Info {
	return Info{Facing: orientation.FacingBack, SensorMountAngle: 90}
}

func (m *MockDevice) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *MockDevice) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("open")

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.OpenErr != nil {
		return m.OpenErr
	}
	if m.open {
		return nil
	}

	m.open = true
	m.params = Parameters{FocusMode: focus.ModeAuto, FlashMode: FlashOff}
	if len(m.capabilities.PreviewSizes) > 0 {
		m.params.PreviewSize = m.capabilities.PreviewSizes[0]
	}
	if len(m.capabilities.PictureSizes) > 0 {
		m.params.PictureSize = m.capabilities.PictureSizes[0]
	}
	m.logger.Debug("[MOCK] Device opened", "facing", m.info.Facing.String())
	return nil
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("close")

	m.open = false
	m.previewing = false
	m.frames.Clear()
	m.logger.Debug("[MOCK] Device closed")
	return nil
}

func (m *MockDevice) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockDevice) Info() Info {
	return m.info
}

func (m *MockDevice) Capabilities() Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capabilities
}

// SetCapabilities replaces the reported capabilities, effective for the next caller
func (m *MockDevice) SetCapabilities(capabilities Capabilities) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities = capabilities
}

func (m *MockDevice) Parameters() (Parameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return Parameters{}, ErrDeviceClosed
	}
	return m.params.Clone(), nil
}

func (m *MockDevice) SetParameters(params Parameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("set-parameters")

	if !m.open {
		return ErrDeviceClosed
	}
	m.submitted = append(m.submitted, params.Clone())
	if m.RejectFunc != nil {
		if err := m.RejectFunc(params); err != nil {
			m.logger.Debug("[MOCK] Rejected parameters", "error", err)
			return err
		}
	}
	m.params = params.Clone()
	return nil
}

func (m *MockDevice) SetDisplayOrientation(degrees int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("set-display-orientation")

	if !m.open {
		return ErrDeviceClosed
	}
	m.displayOrientation = degrees
	return nil
}

// DisplayOrientation returns the last rotation set with SetDisplayOrientation
func (m *MockDevice) DisplayOrientation() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayOrientation
}

func (m *MockDevice) StartPreview() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("start-preview")

	if !m.open {
		return ErrDeviceClosed
	}
	m.previewing = true
	return nil
}

func (m *MockDevice) StopPreview() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("stop-preview")

	m.previewing = false
	return nil
}

func (m *MockDevice) IsPreviewing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previewing
}

func (m *MockDevice) AutoFocus(callback AutoFocusCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("auto-focus")

	if !m.open {
		return ErrDeviceClosed
	}
	if callback == nil {
		return nil
	}
	if m.HoldAutoFocus {
		m.heldAutoFocus = append(m.heldAutoFocus, callback)
		return nil
	}
	go callback(m.AutoFocusResult)
	return nil
}

// ReleaseAutoFocus completes every held auto-focus cycle
func (m *MockDevice) ReleaseAutoFocus() {
	m.mu.Lock()
	held := m.heldAutoFocus
	m.heldAutoFocus = nil
	result := m.AutoFocusResult
	m.mu.Unlock()

	for _, callback := range held {
		callback(result)
	}
}

func (m *MockDevice) CancelAutoFocus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("cancel-auto-focus")

	if !m.open {
		return ErrDeviceClosed
	}
	return nil
}

func (m *MockDevice) SetFocusMoveCallback(callback FocusMoveCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusMove = callback
}

// MoveFocus simulates continuous focus starting or stopping
func (m *MockDevice) MoveFocus(started bool) {
	m.mu.Lock()
	callback := m.focusMove
	m.mu.Unlock()

	if callback != nil {
		callback(started)
	}
}

func (m *MockDevice) TakePicture(callback PictureCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("take-picture")

	if !m.open {
		return ErrDeviceClosed
	}
	if !m.previewing {
		return ErrPreviewNotRunning
	}
	if callback == nil {
		return nil
	}
	if m.HoldPictures {
		m.heldPictures = append(m.heldPictures, callback)
		return nil
	}

	data := append([]byte(nil), m.PictureData...)
	go callback(data, nil)
	return nil
}

// ReleasePictures completes every held picture request
func (m *MockDevice) ReleasePictures() {
	m.mu.Lock()
	held := m.heldPictures
	m.heldPictures = nil
	data := m.PictureData
	m.mu.Unlock()

	for _, callback := range held {
		callback(append([]byte(nil), data...), nil)
	}
}

func (m *MockDevice) SetFrameHandler(handler FrameHandler) {
	m.frames.SetHandler(handler)
}

func (m *MockDevice) AddFrameBuffer(buffer []byte) {
	m.frames.Add(buffer)
}

// PushFrame delivers a preview frame, reporting false when it was dropped
func (m *MockDevice) PushFrame(data []byte) bool {
	m.mu.Lock()
	ready := m.open && m.previewing
	m.mu.Unlock()

	if !ready {
		return false
	}
	return m.frames.Deliver(data)
}

// FreeFrameBuffers returns how many buffers are waiting for a frame
func (m *MockDevice) FreeFrameBuffers() int {
	return m.frames.Available()
}

// Calls returns the names of all calls made so far, in order
func (m *MockDevice) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how often call was made
func (m *MockDevice) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c == call {
			count++
		}
	}
	return count
}

// Submitted returns every parameter set passed to SetParameters while open
func (m *MockDevice) Submitted() []Parameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Parameters, len(m.submitted))
	for i, p := range m.submitted {
		result[i] = p.Clone()
	}
	return result
}

// ResetCalls clears the recorded calls and submitted parameters
func (m *MockDevice) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.submitted = nil
}
