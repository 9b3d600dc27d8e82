// Package v4l2device drives a Video4Linux2 camera with MJPEG output.
package v4l2device

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
	"github.com/yeti47/camkit/ccc/logging"
	camdevice "github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/resolution"
)

// V4L2 camera class control IDs
const (
	ctrlFocusAbsolute v4l2.CtrlID = 0x009a090a
	ctrlFocusAuto     v4l2.CtrlID = 0x009a090c
	ctrlZoomAbsolute  v4l2.CtrlID = 0x009a090d
)

const defaultFPS = 30

type Settings struct {
	// Path is the device node, e.g. "/dev/video0"
	Path string
	Info camdevice.Info
	// Capabilities fill in what the driver cannot enumerate. Sizes reported
	// by the driver replace the configured preview and picture sizes.
	Capabilities camdevice.Capabilities
}

var _ camdevice.Device = (*V4L2Device)(nil)

type V4L2Device struct {
	settings Settings
	logger   logging.Logger

	mu           sync.Mutex
	dev          *device.Device
	caps         camdevice.Capabilities
	params       camdevice.Parameters
	cancelStream context.CancelFunc
	streamDone   chan struct{}
	lastFrame    []byte

	frames camdevice.FrameQueue
}

func NewV4L2Device(settings Settings, logger logging.Logger) *V4L2Device {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &V4L2Device{settings: settings, logger: logger}
}

func (d *V4L2Device) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev != nil {
		return nil
	}

	dev, err := device.Open(d.settings.Path,
		device.WithIOType(v4l2.IOTypeMMAP),
		device.WithPixFormat(v4l2.PixFormat{PixelFormat: v4l2.PixelFmtMJPEG, Field: v4l2.FieldNone}),
		device.WithFPS(defaultFPS),
	)
	if err != nil {
		return fmt.Errorf("failed to open camera device: %w", err)
	}
	d.dev = dev

	d.caps = d.settings.Capabilities
	if sizes := d.enumerateSizes(); len(sizes) > 0 {
		d.caps.PreviewSizes = sizes
		d.caps.PictureSizes = sizes
	}
	if d.caps.PreviewBitsPerPixel == 0 {
		// worst case for a compressed frame, two bytes per pixel
		d.caps.PreviewBitsPerPixel = 16
	}

	d.params = camdevice.Parameters{FocusMode: focus.ModeFixed, FlashMode: camdevice.FlashOff}
	if pixFmt, err := dev.GetPixFormat(); err == nil {
		d.params.PreviewSize = resolution.NewSize(int(pixFmt.Width), int(pixFmt.Height))
		d.params.PictureSize = d.params.PreviewSize
	}
	if fps, err := dev.GetFrameRate(); err == nil {
		d.params.FpsRange = camdevice.FpsRange{Min: int(fps) * 1000, Max: int(fps) * 1000}
	}
	if ctrl, err := v4l2.GetControl(dev.Fd(), ctrlFocusAuto); err == nil && ctrl.Value > 0 {
		d.params.FocusMode = focus.ModeContinuousPicture
	}

	d.logger.Info("Opened camera device", "path", d.settings.Path, "sizes", len(d.caps.PreviewSizes))
	return nil
}

// enumerateSizes lists the discrete MJPEG frame sizes the driver reports
func (d *V4L2Device) enumerateSizes() []resolution.Size {
	frameSizes, err := v4l2.GetFormatFrameSizes(d.dev.Fd(), v4l2.PixelFmtMJPEG)
	if err != nil {
		d.logger.Warn("Failed to enumerate frame sizes", "path", d.settings.Path, "error", err)
		return nil
	}

	sizes := make([]resolution.Size, 0, len(frameSizes))
	for _, fs := range frameSizes {
		size := resolution.NewSize(int(fs.Size.MinWidth), int(fs.Size.MinHeight))
		if !size.IsEmpty() {
			sizes = append(sizes, size)
		}
	}
	return resolution.SortedDescending(sizes)
}

func (d *V4L2Device) Close() error {
	d.stopStream()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.frames.Clear()
	d.lastFrame = nil
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	d.logger.Info("Closed camera device", "path", d.settings.Path)
	return err
}

func (d *V4L2Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev != nil
}

func (d *V4L2Device) Info() camdevice.Info {
	return d.settings.Info
}

func (d *V4L2Device) Capabilities() camdevice.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

func (d *V4L2Device) Parameters() (camdevice.Parameters, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return camdevice.Parameters{}, camdevice.ErrDeviceClosed
	}
	return d.params.Clone(), nil
}

// SetParameters changes the pixel format, frame rate and camera controls.
// The format can only change while the stream is stopped.
func (d *V4L2Device) SetParameters(params camdevice.Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return camdevice.ErrDeviceClosed
	}

	if !params.PreviewSize.IsEmpty() && params.PreviewSize != d.params.PreviewSize {
		if d.cancelStream != nil {
			return fmt.Errorf("cannot change frame size to %s while streaming", params.PreviewSize)
		}
		err := d.dev.SetPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(params.PreviewSize.Width),
			Height:      uint32(params.PreviewSize.Height),
			Field:       v4l2.FieldNone,
		})
		if err != nil {
			return fmt.Errorf("failed to set frame size %s: %w", params.PreviewSize, err)
		}
		if got, err := d.dev.GetPixFormat(); err == nil && (int(got.Width) != params.PreviewSize.Width || int(got.Height) != params.PreviewSize.Height) {
			d.restoreFormat()
			return fmt.Errorf("device adjusted frame size %s to %dx%d", params.PreviewSize, got.Width, got.Height)
		}
	}

	if params.FpsRange.Max > 0 && params.FpsRange != d.params.FpsRange && d.cancelStream == nil {
		if err := d.dev.SetFrameRate(uint32(params.FpsRange.Max / 1000)); err != nil {
			d.logger.Warn("Failed to set frame rate", "fps", params.FpsRange.Max/1000, "error", err)
		}
	}

	if d.caps.ZoomSupported && params.ZoomIndex >= 0 && params.ZoomIndex < len(d.caps.ZoomRatios) {
		if err := d.dev.SetControlValue(ctrlZoomAbsolute, v4l2.CtrlValue(d.caps.ZoomRatios[params.ZoomIndex])); err != nil {
			d.logger.Debug("Zoom control not accepted", "error", err)
		}
	}

	d.applyFocusMode(params.FocusMode)

	d.params = params.Clone()
	return nil
}

func (d *V4L2Device) restoreFormat() {
	_ = d.dev.SetPixFormat(v4l2.PixFormat{
		PixelFormat: v4l2.PixelFmtMJPEG,
		Width:       uint32(d.params.PreviewSize.Width),
		Height:      uint32(d.params.PreviewSize.Height),
		Field:       v4l2.FieldNone,
	})
}

func (d *V4L2Device) applyFocusMode(mode focus.Mode) {
	var value v4l2.CtrlValue
	switch mode {
	case focus.ModeContinuousPicture, focus.ModeContinuousVideo, focus.ModeAuto:
		value = 1
	case focus.ModeInfinity:
		_ = d.dev.SetControlValue(ctrlFocusAuto, 0)
		if err := d.dev.SetControlValue(ctrlFocusAbsolute, 0); err != nil {
			d.logger.Debug("Focus control not accepted", "error", err)
		}
		return
	}
	if err := d.dev.SetControlValue(ctrlFocusAuto, value); err != nil {
		d.logger.Debug("Auto focus control not accepted", "error", err)
	}
}

// SetDisplayOrientation is a no-op, rotation is applied by the consumer
func (d *V4L2Device) SetDisplayOrientation(int) error {
	if !d.IsOpen() {
		return camdevice.ErrDeviceClosed
	}
	return nil
}

func (d *V4L2Device) StartPreview() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return camdevice.ErrDeviceClosed
	}
	if d.cancelStream != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.dev.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	d.cancelStream = cancel
	d.streamDone = make(chan struct{})

	go d.streamLoop(ctx, d.dev.GetOutput(), d.streamDone)
	return nil
}

func (d *V4L2Device) streamLoop(ctx context.Context, output <-chan []byte, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-output:
			if !ok {
				return
			}
			d.mu.Lock()
			d.lastFrame = append(d.lastFrame[:0], frame...)
			d.mu.Unlock()
			d.frames.Deliver(frame)
		}
	}
}

func (d *V4L2Device) StopPreview() error {
	d.stopStream()
	return nil
}

func (d *V4L2Device) stopStream() {
	d.mu.Lock()
	cancel := d.cancelStream
	done := d.streamDone
	d.cancelStream = nil
	d.streamDone = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *V4L2Device) AutoFocus(callback camdevice.AutoFocusCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return camdevice.ErrDeviceClosed
	}
	err := d.dev.SetControlValue(ctrlFocusAuto, 1)
	if callback != nil {
		go callback(err == nil)
	}
	return nil
}

func (d *V4L2Device) CancelAutoFocus() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return camdevice.ErrDeviceClosed
	}
	d.applyFocusMode(d.params.FocusMode)
	return nil
}

// SetFocusMoveCallback is accepted but never invoked
func (d *V4L2Device) SetFocusMoveCallback(camdevice.FocusMoveCallback) {}

// TakePicture hands out the most recent MJPEG frame
func (d *V4L2Device) TakePicture(callback camdevice.PictureCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return camdevice.ErrDeviceClosed
	}
	if d.cancelStream == nil {
		return camdevice.ErrPreviewNotRunning
	}
	if len(d.lastFrame) == 0 {
		return fmt.Errorf("no frame received yet")
	}

	data := append([]byte(nil), d.lastFrame...)
	if callback != nil {
		go callback(data, nil)
	}
	return nil
}

func (d *V4L2Device) SetFrameHandler(handler camdevice.FrameHandler) {
	d.frames.SetHandler(handler)
}

func (d *V4L2Device) AddFrameBuffer(buffer []byte) {
	d.frames.Add(buffer)
}
