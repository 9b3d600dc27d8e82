package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/params"
	"github.com/yeti47/camkit/resolution"
	"github.com/yeti47/camkit/session"
)

const defaultCaptureTimeout = 10 * time.Second

// CameraController is the part of a camera session exposed over HTTP
type CameraController interface {
	Start(ctx context.Context) error
	Stop()
	IsOpen() bool
	Status() session.Status
	SelectResolutions() resolution.Selection
	ComputeRotation() orientation.Rotation
	SetOrientation(ctx context.Context, displayOrientation, deviceOrientation int) (orientation.Rotation, error)
	ApplyConfiguration(ctx context.Context, update session.Configuration) (*params.Result, error)
	ApplyZoomFactor(factor float64) float64
	ModifyZoom(multiplier float64) float64
	HandleTap(x, y float64, callback session.TapCallback) error
	Capture(callback session.CaptureCallback) error
	PreviewSurface(container resolution.Size) (resolution.Size, bool)
}

var _ CameraController = (*session.Session)(nil)

// CameraHandler handles camera session operations
type CameraHandler struct {
	logger         logging.Logger
	camera         CameraController
	captureTimeout time.Duration
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(logger logging.Logger, camera CameraController) *CameraHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &CameraHandler{
		logger:         logger,
		camera:         camera,
		captureTimeout: defaultCaptureTimeout,
	}
}

// OrientationRequest carries display and device orientation in degrees
type OrientationRequest struct {
	DisplayOrientation *int `json:"display_orientation" binding:"required"`
	DeviceOrientation  *int `json:"device_orientation" binding:"required"`
}

// ZoomRequest sets an absolute factor or scales the current one; exactly one must be set
type ZoomRequest struct {
	Factor     *float64 `json:"factor"`
	Multiplier *float64 `json:"multiplier"`
}

// TapRequest is a tap in normalized preview coordinates
type TapRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// ConfigurationResponse describes what the device ended up with
type ConfigurationResponse struct {
	Selection   resolution.Selection `json:"selection"`
	Rotation    orientation.Rotation `json:"rotation"`
	SurfaceSize *resolution.Size     `json:"surface_size,omitempty"`
	ZoomFactor  float64              `json:"zoom"`
	FlashMode   device.FlashMode     `json:"flash"`
	Attempts    int                  `json:"attempts"`
	Rejected    []string             `json:"rejected,omitempty"`
	Resolved    bool                 `json:"resolved"`
}

func newConfigurationResponse(result *params.Result) ConfigurationResponse {
	return ConfigurationResponse{
		Selection:   result.Selection,
		Rotation:    result.Rotation,
		SurfaceSize: result.SurfaceSize,
		ZoomFactor:  result.ZoomFactor,
		FlashMode:   result.FlashMode,
		Attempts:    result.Attempts,
		Rejected:    result.Rejected,
		Resolved:    result.Resolved,
	}
}

// GetStatus handles GET /api/status
func (h *CameraHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.camera.Status())
}

// StartSession handles POST /api/session/start
func (h *CameraHandler) StartSession(c *gin.Context) {
	if err := h.camera.Start(c.Request.Context()); err != nil {
		h.logger.Error("Failed to start camera session", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.camera.Status())
}

// StopSession handles POST /api/session/stop
func (h *CameraHandler) StopSession(c *gin.Context) {
	h.camera.Stop()
	c.JSON(http.StatusOK, h.camera.Status())
}

// GetResolutions handles GET /api/resolutions
func (h *CameraHandler) GetResolutions(c *gin.Context) {
	if !h.camera.IsOpen() {
		c.JSON(http.StatusConflict, gin.H{"error": device.ErrDeviceClosed.Error()})
		return
	}
	c.JSON(http.StatusOK, h.camera.SelectResolutions())
}

// GetRotation handles GET /api/rotation
func (h *CameraHandler) GetRotation(c *gin.Context) {
	c.JSON(http.StatusOK, h.camera.ComputeRotation())
}

// SetOrientation handles POST /api/orientation
func (h *CameraHandler) SetOrientation(c *gin.Context) {
	var req OrientationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rotation, err := h.camera.SetOrientation(c.Request.Context(), *req.DisplayOrientation, *req.DeviceOrientation)
	if err != nil {
		if params.IsTransientDeviceError(err) || errors.Is(err, context.Canceled) {
			h.logger.Warn("Orientation change did not complete", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rotation)
}

// SetZoom handles POST /api/zoom
func (h *CameraHandler) SetZoom(c *gin.Context) {
	var req ZoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if (req.Factor == nil) == (req.Multiplier == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one of factor and multiplier is required"})
		return
	}

	var zoom float64
	if req.Factor != nil {
		zoom = h.camera.ApplyZoomFactor(*req.Factor)
	} else {
		if *req.Multiplier <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Multiplier must be positive"})
			return
		}
		zoom = h.camera.ModifyZoom(*req.Multiplier)
	}

	c.JSON(http.StatusOK, gin.H{"zoom": zoom})
}

// Tap handles POST /api/focus/tap
func (h *CameraHandler) Tap(c *gin.Context) {
	var req TapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	logger := h.logger
	err := h.camera.HandleTap(*req.X, *req.Y, func(success bool) {
		logger.Debug("Tap focus settled", "success", success)
	})
	if err != nil {
		if errors.Is(err, session.ErrPreviewNotShowing) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Warn("Tap focus failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "focusing"})
}

// ApplyConfiguration handles POST /api/configuration
func (h *CameraHandler) ApplyConfiguration(c *gin.Context) {
	var req session.Configuration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Flash != nil {
		if _, err := device.ParseFlashMode(string(*req.Flash)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.camera.ApplyConfiguration(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, device.ErrDeviceClosed) {
			// kept for the next start
			c.JSON(http.StatusAccepted, gin.H{"status": "stored"})
			return
		}
		h.logger.Error("Failed to apply configuration", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newConfigurationResponse(result))
}

// Capture handles POST /api/capture and responds with the JPEG picture
func (h *CameraHandler) Capture(c *gin.Context) {
	type captureResult struct {
		data []byte
		err  error
	}
	done := make(chan captureResult, 1)

	err := h.camera.Capture(func(data []byte, err error) {
		done <- captureResult{data: data, err: err}
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrCaptureInProgress), errors.Is(err, session.ErrPreviewNotShowing), errors.Is(err, device.ErrDeviceClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to trigger capture", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		}
		return
	}

	select {
	case result := <-done:
		if result.err != nil {
			h.logger.Error("Capture failed", "error", result.err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": result.err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", result.data)
	case <-time.After(h.captureTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Capture timed out"})
	case <-c.Request.Context().Done():
		c.Status(http.StatusRequestTimeout)
	}
}

// GetPreviewSurface handles GET /api/preview/surface?width=W&height=H
func (h *CameraHandler) GetPreviewSurface(c *gin.Context) {
	width, errW := strconv.Atoi(c.Query("width"))
	height, errH := strconv.Atoi(c.Query("height"))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height are required"})
		return
	}

	surface, ok := h.camera.PreviewSurface(resolution.NewSize(width, height))
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "No preview size selected"})
		return
	}
	c.JSON(http.StatusOK, surface)
}
