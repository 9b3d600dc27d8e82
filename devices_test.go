package main

import (
	"testing"

	"github.com/yeti47/camkit/config"
	"github.com/yeti47/camkit/device"
	"github.com/yeti47/camkit/orientation"
	"github.com/yeti47/camkit/resolution"
)

func TestNewDevice_Mock(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Driver = config.DriverMock
	cfg.Facing = "front"
	cfg.SensorMountAngle = 270
	cfg.PreviewSizes = []string{"640x480"}

	dev, err := newDevice(cfg, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := dev.(*device.MockDevice); !ok {
		t.Fatalf("Expected mock device, got %T", dev)
	}

	info := dev.Info()
	if info.Facing != orientation.FacingFront || info.SensorMountAngle != 270 {
		t.Errorf("Unexpected device info: %+v", info)
	}
	caps := dev.Capabilities()
	if len(caps.PreviewSizes) != 1 || caps.PreviewSizes[0] != resolution.NewSize(640, 480) {
		t.Errorf("Expected configured preview sizes, got %v", caps.PreviewSizes)
	}
}

func TestNewDevice_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Driver = "usb" }},
		{"unknown facing", func(c *config.Config) { c.Driver = config.DriverMock; c.Facing = "side" }},
		{"invalid size", func(c *config.Config) { c.Driver = config.DriverMock; c.PreviewSizes = []string{"big"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)
			if _, err := newDevice(cfg, nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
