// Package session owns one open camera device. Every configuration change
// (open, close, orientation, parameters, focus, zoom, capture trigger) runs
// behind a single lock; device callbacks post back into the same lock.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/events"
	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/params"
	"github.com/yeti47/camkit/resolution"
	"github.com/yeti47/camkit/zoom"
)

// Settings configure a session. Orientation and the desired configuration
// can be changed later through SetOrientation and ApplyConfiguration.
type Settings struct {
	// Screen is the display size in its natural orientation
	Screen         resolution.Size
	LockVideoRatio bool

	DisplayOrientation int
	DeviceOrientation  int

	RequestedFps float64
	Focus        params.FocusSetting
	Flash        device.FlashMode
	ZoomFactor   float64

	Apply            params.Settings
	FocusSettleDelay time.Duration
	FocusAreaSize    int
	FramePoolSize    int
}

// Configuration is a partial update of the desired configuration; nil fields are left as they are
type Configuration struct {
	RequestedFps *float64            `json:"requested_fps,omitempty"`
	Focus        *params.FocusSetting `json:"focus,omitempty"`
	Flash        *device.FlashMode    `json:"flash,omitempty"`
	ZoomFactor   *float64            `json:"zoom,omitempty"`
}

// Properties are read from the device when it is opened
type Properties struct {
	VerticalViewAngle   float64 `json:"vertical_view_angle"`
	HorizontalViewAngle float64 `json:"horizontal_view_angle"`
}

// FrameConsumer receives preview frames. The frame is recycled as soon as
// the consumer returns and must not be retained.
type FrameConsumer func(frame []byte)

// TapCallback is invoked once a tap-to-focus cycle has settled
type TapCallback func(success bool)

// CaptureCallback receives the captured picture or the error that prevented it
type CaptureCallback func(data []byte, err error)

// Status is a snapshot of the session for the host
type Status struct {
	ID          string               `json:"id"`
	Open        bool                 `json:"open"`
	Previewing  bool                 `json:"previewing"`
	Capturing   bool                 `json:"capturing"`
	Facing      string               `json:"facing"`
	Rotation    orientation.Rotation `json:"rotation"`
	ZoomFactor  float64              `json:"zoom"`
	Focus       params.FocusSetting  `json:"focus"`
	Flash       device.FlashMode     `json:"flash"`
	Selection   resolution.Selection `json:"selection"`
	Properties  *Properties          `json:"properties,omitempty"`
	SurfaceSize *resolution.Size     `json:"surface_size,omitempty"`
}

type Session struct {
	id         string
	dev        device.Device
	dispatcher events.Dispatcher
	logger     logging.Logger
	settings   Settings

	mu             sync.Mutex
	alive          atomic.Bool
	generation     atomic.Uint64
	state          orientation.State
	selector       *resolution.Selector
	applier        *params.Applier
	pool           *device.FramePool
	settle         focus.SettleTimer
	showingPreview bool
	capturing      bool
	zoomFactor     float64
	properties     *Properties
	lastResult     *params.Result

	consumerMu sync.RWMutex
	consumer   FrameConsumer

	cancelMu    sync.Mutex
	cancelApply context.CancelFunc
}

// New creates a session for dev. The device is not opened until Start.
func New(dev device.Device, settings Settings, dispatcher events.Dispatcher, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.NopLogger
	}
	if dispatcher == nil {
		dispatcher = events.NopDispatcher
	}
	if settings.RequestedFps <= 0 {
		settings.RequestedFps = params.DefaultRequestedFps
	}
	if settings.ZoomFactor < zoom.MinFactor {
		settings.ZoomFactor = zoom.MinFactor
	}
	if settings.FocusSettleDelay <= 0 {
		settings.FocusSettleDelay = focus.DefaultSettleDelay
	}
	if settings.FocusAreaSize <= 0 {
		settings.FocusAreaSize = focus.DefaultWindowSize
	}
	if settings.Flash == "" {
		settings.Flash = device.FlashOff
	}

	s := &Session{
		id:         uuid.New().String(),
		dev:        dev,
		logger:     logger,
		settings:   settings,
		selector:   resolution.NewSelector(resolution.SizeLists{}, settings.Screen, settings.LockVideoRatio),
		pool:       device.NewFramePool(settings.FramePoolSize),
		zoomFactor: settings.ZoomFactor,
		state: orientation.State{
			DisplayOrientation: settings.DisplayOrientation,
			DeviceOrientation:  settings.DeviceOrientation,
		},
	}
	// every event leaving the session carries its ID
	s.dispatcher = events.DispatcherFunc(func(event events.Event) {
		event.SessionID = s.id
		dispatcher.Dispatch(event)
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// IsOpen reports whether the device is held by this session
func (s *Session) IsOpen() bool {
	return s.alive.Load()
}

func (s *Session) IsPreviewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showingPreview
}

// SetFrameConsumer sets the receiver for preview frames; nil drops frames
func (s *Session) SetFrameConsumer(consumer FrameConsumer) {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()
	s.consumer = consumer
}

// Start opens the device, applies the desired configuration and starts the preview
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	if s.alive.Load() {
		return nil
	}

	if err := s.dev.Open(ctx); err != nil {
		return fmt.Errorf("failed to open camera device: %w", err)
	}
	s.alive.Store(true)
	s.generation.Add(1)

	info := s.dev.Info()
	caps := s.dev.Capabilities()
	s.state.Facing = info.Facing
	s.state.SensorMountAngle = info.SensorMountAngle

	// sizes and buffers belong to the previous open
	s.selector.Reset(caps.SizeLists(), s.settings.Screen, s.settings.LockVideoRatio)
	s.pool.Reset()
	s.lastResult = nil
	s.properties = &Properties{
		VerticalViewAngle:   caps.VerticalViewAngle,
		HorizontalViewAngle: caps.HorizontalViewAngle,
	}

	s.applier = params.NewApplier(s.dev, s.selector, s.dispatcher, s.settings.Apply, s.logger)
	s.dev.SetFocusMoveCallback(s.onFocusMoved)

	if _, err := s.adjustLocked(ctx); err != nil {
		s.logger.Error("Failed to configure camera device", "error", err)
		s.releaseLocked()
		return fmt.Errorf("failed to configure camera device: %w", err)
	}
	if !s.alive.Load() {
		// stopped while the parameters were being applied
		s.releaseLocked()
		return device.ErrDeviceClosed
	}

	s.logger.Info("Camera opened", "session", s.id, "facing", info.Facing.String(), "mount_angle", info.SensorMountAngle)
	s.dispatcher.Dispatch(events.New(events.KindCameraOpen, "camera opened").
		With("facing", info.Facing.String()).
		With("vertical_view_angle", caps.VerticalViewAngle).
		With("horizontal_view_angle", caps.HorizontalViewAngle))

	if err := s.dev.SetDisplayOrientation(s.state.PreviewRotation()); err != nil {
		s.reportTransient("set display orientation", err)
	}
	s.setupPreviewLocked(caps)
	s.startPreviewLocked()
	return nil
}

// Stop releases the device. Pending focus timers are cancelled and a running
// parameter retry loop is abandoned before it touches the device again.
func (s *Session) Stop() {
	s.alive.Store(false)
	s.abortApply()
	s.settle.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.alive.Store(false)
	s.settle.Cancel()

	if !s.dev.IsOpen() {
		return
	}

	if s.showingPreview {
		if err := s.dev.StopPreview(); err != nil {
			s.reportTransient("stop preview", err)
		}
		s.showingPreview = false
	}
	s.releaseLocked()

	s.logger.Info("Camera closed", "session", s.id)
	s.dispatcher.Dispatch(events.New(events.KindCameraClose, "camera closed"))
}

// releaseLocked closes the device and drops everything tied to it
func (s *Session) releaseLocked() {
	s.alive.Store(false)
	s.dev.SetFocusMoveCallback(nil)
	if err := s.dev.Close(); err != nil {
		s.reportTransient("close", err)
	}
	s.showingPreview = false
	s.capturing = false
	s.selector.Reset(resolution.SizeLists{}, s.settings.Screen, s.settings.LockVideoRatio)
	s.pool.Reset()
	s.generation.Add(1)
}

// adjustLocked stops the preview if it is showing, applies the desired
// configuration and restarts the preview
func (s *Session) adjustLocked(ctx context.Context) (*params.Result, error) {
	showing := s.showingPreview
	if showing {
		if err := s.dev.StopPreview(); err != nil {
			s.reportTransient("stop preview", err)
		}
		s.showingPreview = false
	}

	ctx, cancel := context.WithCancel(ctx)
	s.setApplyCancel(cancel)
	defer func() {
		s.setApplyCancel(nil)
		cancel()
	}()

	result, err := s.applier.Apply(ctx, s.desiredLocked(), s.alive.Load)
	if result != nil {
		s.lastResult = result
		if result.Attempts > 0 {
			s.zoomFactor = result.ZoomFactor
		}
	}
	if err != nil {
		return result, err
	}

	if showing && s.alive.Load() {
		s.startPreviewLocked()
	}
	return result, nil
}

func (s *Session) desiredLocked() params.Desired {
	return params.Desired{
		Orientation:  s.state,
		RequestedFps: s.settings.RequestedFps,
		Focus:        s.settings.Focus,
		Flash:        s.settings.Flash,
		ZoomFactor:   s.zoomFactor,
	}
}

func (s *Session) setApplyCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	s.cancelApply = cancel
}

func (s *Session) abortApply() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelApply != nil {
		s.cancelApply()
	}
}

func (s *Session) startPreviewLocked() {
	if err := s.dev.StartPreview(); err != nil {
		s.reportTransient("start preview", err)
		return
	}
	s.showingPreview = true
}

// setupPreviewLocked hands the pool's buffers to the device. The buffer
// length is fixed by the preview size in effect at the first setup after open.
func (s *Session) setupPreviewLocked(caps device.Capabilities) {
	current, err := s.dev.Parameters()
	if err != nil {
		s.reportTransient("read parameters", err)
		return
	}

	buffers := s.pool.Buffers(caps.FrameLength(current.PreviewSize))
	if len(buffers) == 0 {
		s.logger.Warn("No preview buffers allocated", "preview_size", current.PreviewSize.String())
		return
	}

	generation := s.generation.Load()
	s.dev.SetFrameHandler(func(frame []byte) {
		s.deliverFrame(generation, frame)
	})
	for _, buffer := range buffers {
		s.dev.AddFrameBuffer(buffer)
	}
}

// deliverFrame hands a frame to the consumer and recycles its buffer unless
// the device was reopened in the meantime
func (s *Session) deliverFrame(generation uint64, frame []byte) {
	s.consumerMu.RLock()
	consumer := s.consumer
	s.consumerMu.RUnlock()

	if consumer != nil {
		consumer(frame)
	}

	if s.generation.Load() == generation && s.alive.Load() {
		s.dev.AddFrameBuffer(frame)
	}
}

func (s *Session) onFocusMoved(started bool) {
	s.dispatcher.Dispatch(events.New(events.KindFocusMoved, "").With("started", started))
}

// SetOrientation updates display and device orientation and reconfigures an
// open device for it. The returned rotation is in effect from now on.
func (s *Session) SetOrientation(ctx context.Context, displayOrientation, deviceOrientation int) (orientation.Rotation, error) {
	if err := orientation.ValidateDegrees(displayOrientation); err != nil {
		return orientation.Rotation{}, err
	}
	if err := orientation.ValidateDegrees(deviceOrientation); err != nil {
		return orientation.Rotation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DisplayOrientation = displayOrientation
	s.state.DeviceOrientation = deviceOrientation
	rotation := s.state.Rotation()

	if !s.alive.Load() {
		return rotation, nil
	}

	if err := s.dev.SetDisplayOrientation(rotation.PreviewDegrees); err != nil {
		s.reportTransient("set display orientation", err)
	}
	if _, err := s.adjustLocked(ctx); err != nil {
		return rotation, err
	}
	return rotation, nil
}

// SelectResolutions returns the preview, capture and video sizes for the
// current orientation. Sizes are nil while the device is closed.
func (s *Session) SelectResolutions() resolution.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive.Load() {
		return resolution.Selection{}
	}
	return s.selector.Select(s.state)
}

// ComputeRotation returns the preview and capture rotation for the current orientation
func (s *Session) ComputeRotation() orientation.Rotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Rotation()
}

// ApplyConfiguration merges update into the desired configuration and
// applies it. With the device closed the update is kept for the next Start
// and device.ErrDeviceClosed is returned.
func (s *Session) ApplyConfiguration(ctx context.Context, update Configuration) (*params.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.RequestedFps != nil && *update.RequestedFps > 0 {
		s.settings.RequestedFps = *update.RequestedFps
	}
	if update.Focus != nil {
		s.settings.Focus = *update.Focus
	}
	if update.Flash != nil {
		s.settings.Flash = *update.Flash
	}
	if update.ZoomFactor != nil {
		s.zoomFactor = sanitizeFactor(*update.ZoomFactor)
	}

	if !s.alive.Load() {
		return nil, device.ErrDeviceClosed
	}
	return s.adjustLocked(ctx)
}

// LastResult returns the outcome of the most recent parameter application
func (s *Session) LastResult() *params.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *Session) ZoomFactor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomFactor
}

// ApplyZoomFactor sets the zoom factor and returns it clamped to what the device supports
func (s *Session) ApplyZoomFactor(factor float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyZoomLocked(factor)
}

// ModifyZoom multiplies the current zoom factor by multiplier
func (s *Session) ModifyZoom(multiplier float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyZoomLocked(s.zoomFactor * multiplier)
}

func (s *Session) applyZoomLocked(factor float64) float64 {
	s.zoomFactor = sanitizeFactor(factor)
	if !s.alive.Load() {
		return s.zoomFactor
	}

	caps := s.dev.Capabilities()
	if !caps.ZoomSupported {
		return s.zoomFactor
	}

	clamped, index := zoom.Resolve(s.zoomFactor, caps.ZoomRatios)
	current, err := s.dev.Parameters()
	if err != nil {
		s.reportTransient("read parameters", err)
		return s.zoomFactor
	}

	next := current.Clone()
	next.ZoomIndex = index
	if err := s.dev.SetParameters(next); err != nil {
		s.reportRejected("zoom", err)
	}

	s.zoomFactor = clamped
	return clamped
}

func sanitizeFactor(factor float64) float64 {
	if math.IsNaN(factor) || factor < zoom.MinFactor {
		return zoom.MinFactor
	}
	return factor
}

// HandleTap focuses on the normalized point (x, y) of the preview surface.
// callback runs once the cycle has completed and, for windowed focus, after
// focus has returned to continuous mode.
func (s *Session) HandleTap(x, y float64, callback TapCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive.Load() || !s.showingPreview {
		return ErrPreviewNotShowing
	}

	current, err := s.dev.Parameters()
	if err != nil {
		return s.reportTransient("read parameters", err)
	}
	caps := s.dev.Capabilities()

	window := focus.TapToWindow(x, y, s.settings.FocusAreaSize, focus.DefaultCoordSpan)
	plan := focus.PlanTap(window, current.FocusMode, caps.FocusCapabilities())

	// a new tap replaces the previous settle
	s.settle.Cancel()

	if plan.Degraded {
		unsupported := params.NewUnsupportedFocusOperationError("focus areas without auto focus mode")
		s.logger.Warn("Falling back to unwindowed focus", "error", unsupported)
		s.dispatcher.Dispatch(events.FromError(events.KindUnsupportedFocus, unsupported).
			With("x", x).
			With("y", y))
	}

	if !plan.NeedsReset() {
		err = s.dev.AutoFocus(func(success bool) {
			if callback != nil {
				callback(success)
			}
		})
		if err != nil {
			return s.reportTransient("auto focus", err)
		}
		return nil
	}

	next := current.Clone()
	next.FocusMode = plan.Mode
	next.FocusAreas = plan.FocusAreas
	next.MeteringAreas = plan.MeteringAreas
	if err := s.dev.SetParameters(next); err != nil {
		s.reportRejected("focus-areas", err)
	}

	previousMode := current.FocusMode
	generation := s.generation.Load()
	err = s.dev.AutoFocus(func(success bool) {
		// the device was reopened since the tap
		if s.generation.Load() != generation {
			return
		}
		s.settle.Schedule(s.settings.FocusSettleDelay, func() {
			s.resetFocus(generation, success, previousMode, callback)
		})
	})
	if err != nil {
		return s.reportTransient("auto focus", err)
	}
	return nil
}

// resetFocus ends a windowed focus cycle: continuous focus comes back and
// the areas are cleared
func (s *Session) resetFocus(generation uint64, success bool, previousMode focus.Mode, callback TapCallback) {
	s.mu.Lock()
	if !s.alive.Load() || s.generation.Load() != generation {
		s.mu.Unlock()
		return
	}

	if err := s.dev.CancelAutoFocus(); err != nil {
		s.reportTransient("cancel auto focus", err)
	}

	current, err := s.dev.Parameters()
	if err != nil {
		s.reportTransient("read parameters", err)
	} else {
		target := previousMode
		if s.dev.Capabilities().SupportsFocusMode(focus.ModeContinuousPicture) {
			target = focus.ModeContinuousPicture
		}
		if current.FocusMode != target || len(current.FocusAreas) > 0 || len(current.MeteringAreas) > 0 {
			next := current.Clone()
			next.FocusMode = target
			next.FocusAreas = nil
			next.MeteringAreas = nil
			if err := s.dev.SetParameters(next); err != nil {
				s.reportRejected("focus-areas", err)
			}
		}
	}
	s.mu.Unlock()

	if callback != nil {
		callback(success)
	}
}

// Capture takes a picture with the capture rotation recomputed for the
// current orientation. Once the picture arrives the device is reopened and
// callback receives the result.
func (s *Session) Capture(callback CaptureCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive.Load() {
		return device.ErrDeviceClosed
	}
	if !s.showingPreview {
		return ErrPreviewNotShowing
	}
	if s.capturing {
		return ErrCaptureInProgress
	}

	rotation := s.state.Rotation()
	current, err := s.dev.Parameters()
	if err != nil {
		return s.reportTransient("read parameters", err)
	}
	if current.Rotation != rotation.CaptureDegrees {
		next := current.Clone()
		next.Rotation = rotation.CaptureDegrees
		if err := s.dev.SetParameters(next); err != nil {
			s.reportRejected("rotation", err)
		}
	}

	s.capturing = true
	generation := s.generation.Load()
	err = s.dev.TakePicture(func(data []byte, err error) {
		s.onPictureTaken(generation, rotation.CaptureDegrees, data, err, callback)
	})
	if err != nil {
		s.capturing = false
		return s.reportTransient("take picture", err)
	}
	return nil
}

func (s *Session) onPictureTaken(generation uint64, rotation int, data []byte, err error, callback CaptureCallback) {
	s.mu.Lock()
	if s.generation.Load() == generation {
		s.capturing = false
	}

	if err != nil {
		err = s.reportTransient("take picture", err)
	} else {
		s.dispatcher.Dispatch(events.New(events.KindImageCaptured, "image captured").
			With("bytes", len(data)).
			With("rotation", rotation))
	}

	// the device is reopened for the next capture unless the session went away
	if s.alive.Load() && s.generation.Load() == generation {
		s.stopLocked()
		if startErr := s.startLocked(context.Background()); startErr != nil {
			s.logger.Error("Failed to restart camera after capture", "error", startErr)
			s.reportTransient("restart after capture", startErr)
		}
	}
	s.mu.Unlock()

	if callback != nil {
		callback(data, err)
	}
}

// PreviewSurface returns the size of a surface covering container for the
// preview in effect, and false before a preview size was selected
func (s *Session) PreviewSurface(container resolution.Size) (resolution.Size, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastResult == nil || s.lastResult.SurfaceSize == nil {
		return resolution.Size{}, false
	}
	return resolution.FitPreview(container, *s.lastResult.SurfaceSize, s.state.DisplayOrientation), true
}

// Properties returns the properties read at the last open, nil before
func (s *Session) Properties() *Properties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.properties
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		ID:         s.id,
		Open:       s.alive.Load(),
		Previewing: s.showingPreview,
		Capturing:  s.capturing,
		Facing:     s.state.Facing.String(),
		Rotation:   s.state.Rotation(),
		ZoomFactor: s.zoomFactor,
		Focus:      s.settings.Focus,
		Flash:      s.settings.Flash,
		Properties: s.properties,
	}
	if s.lastResult != nil {
		status.Selection = s.lastResult.Selection
		status.SurfaceSize = s.lastResult.SurfaceSize
		status.Flash = s.lastResult.FlashMode
	}
	return status
}

// reportTransient logs and dispatches a failed device call and returns it wrapped
func (s *Session) reportTransient(operation string, err error) error {
	transient := params.NewTransientDeviceError(operation, err)
	s.logger.Warn("Device call failed", "operation", operation, "error", err)
	s.dispatcher.Dispatch(events.FromError(events.KindTransientError, transient).With("operation", operation))
	return transient
}

func (s *Session) reportRejected(field string, err error) {
	rejected := params.NewDeviceRejectedParametersError(field, err)
	s.logger.Warn("Device rejected parameters", "field", field, "error", err)
	s.dispatcher.Dispatch(events.FromError(events.KindDeviceRejected, rejected).With("field", field))
}
