package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/params"
	"github.com/yeti47/camkit/resolution"
)

// Supported camera drivers
const (
	DriverGoCV = "gocv"
	DriverV4L2 = "v4l2"
	DriverMock = "mock"
)

// FpsRangeConfig is a preview frame rate range scaled by 1000 (30000 = 30 fps)
type FpsRangeConfig struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Config holds the configuration for the camera host application
type Config struct {
	Driver           string `json:"driver"`
	CameraDevice     string `json:"camera_device"`
	Facing           string `json:"facing"`
	SensorMountAngle int    `json:"sensor_mount_angle"`

	ScreenWidth        int  `json:"screen_width"`
	ScreenHeight       int  `json:"screen_height"`
	DisplayOrientation int  `json:"display_orientation"`
	DeviceOrientation  int  `json:"device_orientation"`
	LockVideoRatio     bool `json:"lock_video_ratio"`

	RequestedFps float64 `json:"requested_fps"`
	Focus        string  `json:"focus"`
	Flash        string  `json:"flash"`
	Zoom         float64 `json:"zoom"`

	MaxApplyAttempts int `json:"max_apply_attempts"`
	RetryDelayMs     int `json:"retry_delay_ms"`
	FocusSettleMs    int `json:"focus_settle_ms"`
	FocusAreaSize    int `json:"focus_area_size"`

	// Failures of the same kind within the window that close the session, 0 disables
	EscalationThreshold     int `json:"escalation_threshold"`
	EscalationWindowSeconds int `json:"escalation_window_seconds"`
	EventRetentionDays      int `json:"event_retention_days"`

	WebAddr        string   `json:"web_addr"`
	WebPort        int      `json:"web_port"`
	TrustedProxies []string `json:"trusted_proxies,omitempty"`
	APIKeyHash     string   `json:"api_key_hash"`
	APIKeySalt     string   `json:"api_key_salt"`

	DatabasePath string `json:"database_path"`
	LogPath      string `json:"log_path"`
	LogLevel     string `json:"log_level"`

	// Capability lists for devices that cannot enumerate them
	PreviewSizes []string         `json:"preview_sizes,omitempty"`
	PictureSizes []string         `json:"picture_sizes,omitempty"`
	VideoSizes   []string         `json:"video_sizes,omitempty"`
	ZoomRatios   []int            `json:"zoom_ratios,omitempty"`
	FpsRanges    []FpsRangeConfig `json:"fps_ranges,omitempty"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {

	dataDir := "."

	homeDir, err := os.UserHomeDir()
	if err == nil && homeDir != "" {
		dataDir = filepath.Join(homeDir, "camkit")

		// Ensure the directory exists
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			dataDir = "."
		}
	}

	return &Config{
		Driver:                  DriverGoCV,
		CameraDevice:            "0",
		Facing:                  "back",
		SensorMountAngle:        0,
		ScreenWidth:             1080,
		ScreenHeight:            1920,
		RequestedFps:            params.DefaultRequestedFps,
		Focus:                   "continuous",
		Flash:                   string(device.FlashOff),
		Zoom:                    1.0,
		MaxApplyAttempts:        params.DefaultMaxAttempts,
		RetryDelayMs:            1,
		FocusSettleMs:           3000,
		FocusAreaSize:           300,
		EscalationThreshold:     10,
		EscalationWindowSeconds: 60,
		EventRetentionDays:      30,
		WebAddr:                 "127.0.0.1",
		WebPort:                 8090,
		DatabasePath:            filepath.Join(dataDir, "camkit.db"),
		LogPath:                 "logs",
		LogLevel:                "info",
	}
}

// LoadConfig loads the configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file doesn't exist, we can proceed with the default config
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverGoCV, DriverV4L2, DriverMock:
	default:
		return fmt.Errorf("invalid driver: %s", c.Driver)
	}
	if _, err := orientation.ParseFacing(c.Facing); err != nil {
		return err
	}
	if err := orientation.ValidateDegrees(c.SensorMountAngle); err != nil {
		return fmt.Errorf("invalid sensor mount angle: %w", err)
	}
	if err := orientation.ValidateDegrees(c.DisplayOrientation); err != nil {
		return fmt.Errorf("invalid display orientation: %w", err)
	}
	if err := orientation.ValidateDegrees(c.DeviceOrientation); err != nil {
		return fmt.Errorf("invalid device orientation: %w", err)
	}
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("invalid screen size: %dx%d", c.ScreenWidth, c.ScreenHeight)
	}
	if c.RequestedFps <= 0 {
		return fmt.Errorf("invalid requested fps: %v", c.RequestedFps)
	}
	if _, err := params.ParseFocusSetting(c.Focus); err != nil {
		return err
	}
	if _, err := device.ParseFlashMode(c.Flash); err != nil {
		return err
	}
	if c.Zoom < 1 {
		return fmt.Errorf("invalid zoom factor: %v", c.Zoom)
	}
	if c.MaxApplyAttempts <= 0 {
		return fmt.Errorf("invalid max apply attempts: %d", c.MaxApplyAttempts)
	}
	if c.RetryDelayMs < 0 || c.FocusSettleMs < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.FocusAreaSize <= 0 || c.FocusAreaSize > 2000 {
		return fmt.Errorf("invalid focus area size: %d", c.FocusAreaSize)
	}
	if c.EscalationThreshold < 0 || c.EscalationWindowSeconds < 0 {
		return fmt.Errorf("escalation settings must not be negative")
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port: %d", c.WebPort)
	}
	if (c.APIKeyHash == "") != (c.APIKeySalt == "") {
		return fmt.Errorf("api_key_hash and api_key_salt must be set together")
	}

	for _, list := range [][]string{c.PreviewSizes, c.PictureSizes, c.VideoSizes} {
		if _, err := resolution.ParseList(list); err != nil {
			return err
		}
	}
	for i := 1; i < len(c.ZoomRatios); i++ {
		if c.ZoomRatios[i] <= c.ZoomRatios[i-1] {
			return fmt.Errorf("zoom ratios must be ascending")
		}
	}
	for _, r := range c.FpsRanges {
		if r.Min <= 0 || r.Min > r.Max {
			return fmt.Errorf("invalid fps range: %d-%d", r.Min, r.Max)
		}
	}
	return nil
}

// ScreenSize returns the configured display size
func (c *Config) ScreenSize() resolution.Size {
	return resolution.NewSize(c.ScreenWidth, c.ScreenHeight)
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c *Config) FocusSettleDelay() time.Duration {
	return time.Duration(c.FocusSettleMs) * time.Millisecond
}

func (c *Config) EscalationWindow() time.Duration {
	return time.Duration(c.EscalationWindowSeconds) * time.Second
}

// ApplyCapabilityOverrides replaces the lists in caps with the configured
// ones. Lists that are not configured are left as reported by the device.
func (c *Config) ApplyCapabilityOverrides(caps device.Capabilities) (device.Capabilities, error) {
	if len(c.PreviewSizes) > 0 {
		sizes, err := resolution.ParseList(c.PreviewSizes)
		if err != nil {
			return caps, err
		}
		caps.PreviewSizes = sizes
	}
	if len(c.PictureSizes) > 0 {
		sizes, err := resolution.ParseList(c.PictureSizes)
		if err != nil {
			return caps, err
		}
		caps.PictureSizes = sizes
	}
	if len(c.VideoSizes) > 0 {
		sizes, err := resolution.ParseList(c.VideoSizes)
		if err != nil {
			return caps, err
		}
		caps.VideoSizes = sizes
	}
	if len(c.ZoomRatios) > 0 {
		caps.ZoomRatios = append([]int(nil), c.ZoomRatios...)
		caps.ZoomSupported = true
	}
	if len(c.FpsRanges) > 0 {
		caps.FpsRanges = make([]device.FpsRange, len(c.FpsRanges))
		for i, r := range c.FpsRanges {
			caps.FpsRanges[i] = device.FpsRange{Min: r.Min, Max: r.Max}
		}
	}
	return caps, nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	return nil
}

// ConfigOverrides holds potential override values for configuration
type ConfigOverrides struct {
	Driver             *string
	CameraDevice       *string
	Facing             *string
	DisplayOrientation *int
	DeviceOrientation  *int
	WebAddr            *string
	WebPort            *int
	DatabasePath       *string
	LogPath            *string
	LogLevel           *string
}

// Override allows overriding specific configuration values using ConfigOverrides struct
func (c *Config) Override(overrides ConfigOverrides) {
	if overrides.Driver != nil && *overrides.Driver != "" {
		c.Driver = *overrides.Driver
	}
	if overrides.CameraDevice != nil && *overrides.CameraDevice != "" {
		c.CameraDevice = *overrides.CameraDevice
	}
	if overrides.Facing != nil && *overrides.Facing != "" {
		c.Facing = *overrides.Facing
	}
	// orientations of 0 are meaningful, so negative values mean "not set"
	if overrides.DisplayOrientation != nil && *overrides.DisplayOrientation >= 0 {
		c.DisplayOrientation = *overrides.DisplayOrientation
	}
	if overrides.DeviceOrientation != nil && *overrides.DeviceOrientation >= 0 {
		c.DeviceOrientation = *overrides.DeviceOrientation
	}
	if overrides.WebAddr != nil && *overrides.WebAddr != "" {
		c.WebAddr = *overrides.WebAddr
	}
	if overrides.WebPort != nil && *overrides.WebPort > 0 {
		c.WebPort = *overrides.WebPort
	}
	if overrides.DatabasePath != nil && *overrides.DatabasePath != "" {
		c.DatabasePath = *overrides.DatabasePath
	}
	if overrides.LogPath != nil && *overrides.LogPath != "" {
		c.LogPath = *overrides.LogPath
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		c.LogLevel = *overrides.LogLevel
	}
}
