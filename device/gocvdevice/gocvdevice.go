// Package gocvdevice drives a camera through OpenCV's VideoCapture.
//
// VideoCapture cannot enumerate sizes, zoom ratios or focus modes, so those
// lists come from Settings. Rejection is detected by reading properties back
// after they were set.
package gocvdevice

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/resolution"
	"gocv.io/x/gocv"
)

type Settings struct {
	// DeviceID is an index ("0") or a device path ("/dev/video0")
	DeviceID     string
	Info         device.Info
	Capabilities device.Capabilities
}

var _ device.Device = (*GoCVDevice)(nil)

// GoCVDevice implements device.Device on top of gocv.VideoCapture
type GoCVDevice struct {
	settings Settings
	logger   logging.Logger

	mu                 sync.Mutex
	webcam             *gocv.VideoCapture
	params             device.Parameters
	displayOrientation int
	isPreviewing       bool
	previewDone        chan struct{}

	frames device.FrameQueue
}

func NewGoCVDevice(settings Settings, logger logging.Logger) *GoCVDevice {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &GoCVDevice{
		settings: settings,
		logger:   logger,
	}
}

func (d *GoCVDevice) openTarget() any {
	if d.settings.DeviceID == "" || d.settings.DeviceID == "0" {
		return 0
	}
	if id, err := strconv.Atoi(d.settings.DeviceID); err == nil {
		return id
	}
	return d.settings.DeviceID
}

func (d *GoCVDevice) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam != nil {
		return nil
	}

	webcam, err := gocv.OpenVideoCapture(d.openTarget())
	if err != nil {
		return fmt.Errorf("failed to open webcam: %w", err)
	}
	d.webcam = webcam

	d.params = device.Parameters{
		PreviewSize: resolution.NewSize(
			int(webcam.Get(gocv.VideoCaptureFrameWidth)),
			int(webcam.Get(gocv.VideoCaptureFrameHeight)),
		),
		FpsRange:  fpsRangeOf(webcam.Get(gocv.VideoCaptureFPS)),
		FocusMode: focus.ModeFixed,
		FlashMode: device.FlashOff,
	}
	d.params.PictureSize = d.params.PreviewSize
	if webcam.Get(gocv.VideoCaptureAutoFocus) > 0 {
		d.params.FocusMode = focus.ModeContinuousPicture
	}

	d.logger.Info("Opened webcam", "device", d.settings.DeviceID, "size", d.params.PreviewSize.String())
	return nil
}

func fpsRangeOf(fps float64) device.FpsRange {
	scaled := int(math.Round(fps * 1000))
	return device.FpsRange{Min: scaled, Max: scaled}
}

func (d *GoCVDevice) Close() error {
	d.stopPreview()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.frames.Clear()
	if d.webcam == nil {
		return nil
	}
	err := d.webcam.Close()
	d.webcam = nil
	d.logger.Info("Closed webcam", "device", d.settings.DeviceID)
	return err
}

func (d *GoCVDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.webcam != nil
}

func (d *GoCVDevice) Info() device.Info {
	return d.settings.Info
}

// Capabilities returns the configured lists. Without configured preview
// sizes the size the device opened with is the only one reported.
func (d *GoCVDevice) Capabilities() device.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := d.settings.Capabilities
	if len(caps.PreviewSizes) == 0 && !d.params.PreviewSize.IsEmpty() {
		caps.PreviewSizes = []resolution.Size{d.params.PreviewSize}
	}
	if len(caps.PictureSizes) == 0 {
		caps.PictureSizes = caps.PreviewSizes
	}
	if len(caps.FpsRanges) == 0 && d.params.FpsRange.Max > 0 {
		caps.FpsRanges = []device.FpsRange{d.params.FpsRange}
	}
	if caps.PreviewBitsPerPixel == 0 {
		// frames are delivered as packed BGR
		caps.PreviewBitsPerPixel = 24
	}
	return caps
}

func (d *GoCVDevice) Parameters() (device.Parameters, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.webcam == nil {
		return device.Parameters{}, device.ErrDeviceClosed
	}
	return d.params.Clone(), nil
}

// SetParameters writes the capture properties and reads the frame size back.
// A device that does not accept the size gets the previous parameters again.
func (d *GoCVDevice) SetParameters(params device.Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return device.ErrDeviceClosed
	}

	d.writeProperties(params)

	width := int(d.webcam.Get(gocv.VideoCaptureFrameWidth))
	height := int(d.webcam.Get(gocv.VideoCaptureFrameHeight))
	if !params.PreviewSize.IsEmpty() && (width != params.PreviewSize.Width || height != params.PreviewSize.Height) {
		d.writeProperties(d.params)
		return fmt.Errorf("device kept frame size %dx%d instead of %s", width, height, params.PreviewSize)
	}

	d.params = params.Clone()
	return nil
}

func (d *GoCVDevice) writeProperties(params device.Parameters) {
	if !params.PreviewSize.IsEmpty() {
		d.webcam.Set(gocv.VideoCaptureFrameWidth, float64(params.PreviewSize.Width))
		d.webcam.Set(gocv.VideoCaptureFrameHeight, float64(params.PreviewSize.Height))
	}
	if params.FpsRange.Max > 0 {
		d.webcam.Set(gocv.VideoCaptureFPS, float64(params.FpsRange.Max)/1000)
	}

	caps := d.settings.Capabilities
	if caps.ZoomSupported && params.ZoomIndex >= 0 && params.ZoomIndex < len(caps.ZoomRatios) {
		d.webcam.Set(gocv.VideoCaptureZoom, float64(caps.ZoomRatios[params.ZoomIndex]))
	}

	switch params.FocusMode {
	case focus.ModeContinuousPicture, focus.ModeContinuousVideo:
		d.webcam.Set(gocv.VideoCaptureAutoFocus, 1)
	case focus.ModeFixed, focus.ModeInfinity:
		d.webcam.Set(gocv.VideoCaptureAutoFocus, 0)
	}
}

func (d *GoCVDevice) SetDisplayOrientation(degrees int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.webcam == nil {
		return device.ErrDeviceClosed
	}
	d.displayOrientation = degrees
	return nil
}

// StartPreview starts the read loop feeding frames into the handed-in buffers
func (d *GoCVDevice) StartPreview() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return device.ErrDeviceClosed
	}
	if d.isPreviewing {
		return nil
	}
	d.isPreviewing = true
	d.previewDone = make(chan struct{})

	go d.previewLoop(d.previewDone)
	return nil
}

func (d *GoCVDevice) previewLoop(done chan struct{}) {
	defer close(done)

	img := gocv.NewMat()
	defer img.Close()

	for {
		d.mu.Lock()
		if !d.isPreviewing || d.webcam == nil {
			d.mu.Unlock()
			return
		}
		ok := d.webcam.Read(&img)
		d.mu.Unlock()

		if !ok || img.Empty() {
			continue
		}
		d.frames.Deliver(img.ToBytes())
	}
}

func (d *GoCVDevice) StopPreview() error {
	d.stopPreview()
	return nil
}

func (d *GoCVDevice) stopPreview() {
	d.mu.Lock()
	done := d.previewDone
	d.isPreviewing = false
	d.previewDone = nil
	d.mu.Unlock()

	if done != nil {
		<-done
	}
}

// AutoFocus enables the device's auto focus and reports whether it stuck
func (d *GoCVDevice) AutoFocus(callback device.AutoFocusCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return device.ErrDeviceClosed
	}
	d.webcam.Set(gocv.VideoCaptureAutoFocus, 1)
	success := d.webcam.Get(gocv.VideoCaptureAutoFocus) > 0

	if callback != nil {
		go callback(success)
	}
	return nil
}

func (d *GoCVDevice) CancelAutoFocus() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return device.ErrDeviceClosed
	}
	if d.params.FocusMode != focus.ModeContinuousPicture && d.params.FocusMode != focus.ModeContinuousVideo {
		d.webcam.Set(gocv.VideoCaptureAutoFocus, 0)
	}
	return nil
}

// SetFocusMoveCallback is accepted but never invoked, VideoCapture does not report focus movement
func (d *GoCVDevice) SetFocusMoveCallback(device.FocusMoveCallback) {}

// TakePicture grabs the next frame, rotates it by the submitted rotation and
// encodes it as JPEG
func (d *GoCVDevice) TakePicture(callback device.PictureCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return device.ErrDeviceClosed
	}
	if !d.isPreviewing {
		return device.ErrPreviewNotRunning
	}

	img := gocv.NewMat()
	if ok := d.webcam.Read(&img); !ok || img.Empty() {
		img.Close()
		return fmt.Errorf("failed to read frame from webcam")
	}
	rotation := d.params.Rotation

	go func() {
		defer img.Close()
		data, err := encodeRotated(img, rotation)
		if callback != nil {
			callback(data, err)
		}
	}()
	return nil
}

func encodeRotated(img gocv.Mat, rotation int) ([]byte, error) {
	src := img
	if flag, ok := rotateFlag(rotation); ok {
		rotated := gocv.NewMat()
		defer rotated.Close()
		gocv.Rotate(img, &rotated, flag)
		src = rotated
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, src)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

func rotateFlag(rotation int) (gocv.RotateFlag, bool) {
	switch rotation {
	case 90:
		return gocv.Rotate90Clockwise, true
	case 180:
		return gocv.Rotate180Clockwise, true
	case 270:
		return gocv.Rotate90CounterClockwise, true
	default:
		return 0, false
	}
}

func (d *GoCVDevice) SetFrameHandler(handler device.FrameHandler) {
	d.frames.SetHandler(handler)
}

func (d *GoCVDevice) AddFrameBuffer(buffer []byte) {
	d.frames.Add(buffer)
}
