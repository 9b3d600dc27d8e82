package main

import (
	"fmt"

	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/config"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/device/gocvdevice"
	"github.com/yeti47/camkit/device/v4l2device"
	"github.com/yeti47/camkit/orientation"
)

// newDevice creates the camera driver selected in the configuration
func newDevice(cfg *config.Config, logger logging.Logger) (device.Device, error) {
	facing, err := orientation.ParseFacing(cfg.Facing)
	if err != nil {
		return nil, err
	}
	info := device.Info{Facing: facing, SensorMountAngle: cfg.SensorMountAngle}

	switch cfg.Driver {
	case config.DriverMock:
		caps, err := cfg.ApplyCapabilityOverrides(device.DefaultMockCapabilities())
		if err != nil {
			return nil, err
		}
		return device.NewMockDevice(info, caps, logger), nil

	case config.DriverV4L2:
		caps, err := cfg.ApplyCapabilityOverrides(device.Capabilities{})
		if err != nil {
			return nil, err
		}
		return v4l2device.NewV4L2Device(v4l2device.Settings{
			Path:         cfg.CameraDevice,
			Info:         info,
			Capabilities: caps,
		}, logger), nil

	case config.DriverGoCV:
		caps, err := cfg.ApplyCapabilityOverrides(device.Capabilities{})
		if err != nil {
			return nil, err
		}
		return gocvdevice.NewGoCVDevice(gocvdevice.Settings{
			DeviceID:     cfg.CameraDevice,
			Info:         info,
			Capabilities: caps,
		}, logger), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
