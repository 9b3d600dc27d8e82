package orientation

import "testing"

func TestPreviewRotation(t *testing.T) {
	tests := []struct {
		name     string
		facing   Facing
		mount    int
		display  int
		expected int
	}{
		{"back mount 90 display 0", FacingBack, 90, 0, 90},
		{"back mount 90 display 90", FacingBack, 90, 90, 0},
		{"back mount 90 display 180", FacingBack, 90, 180, 270},
		{"back mount 90 display 270", FacingBack, 90, 270, 180},
		{"back mount 0 display 0", FacingBack, 0, 0, 0},
		{"front mount 90 display 0", FacingFront, 90, 0, 270},
		{"front mount 270 display 0", FacingFront, 270, 0, 90},
		{"front mount 270 display 90", FacingFront, 270, 90, 0},
		{"front mount 270 display 180", FacingFront, 270, 180, 270},
		{"front mount 270 display 270", FacingFront, 270, 270, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreviewRotation(tt.facing, tt.mount, tt.display)
			if got != tt.expected {
				t.Errorf("Expected preview rotation %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCaptureRotation(t *testing.T) {
	tests := []struct {
		name     string
		facing   Facing
		mount    int
		display  int
		device   int
		expected int
	}{
		{"back portrait held portrait", FacingBack, 90, 0, 0, 90},
		{"back portrait locked held landscape", FacingBack, 90, 0, 90, 0},
		{"back portrait locked held reverse landscape", FacingBack, 90, 0, 270, 180},
		{"back landscape display matches device", FacingBack, 90, 90, 90, 0},
		{"front portrait held portrait", FacingFront, 270, 0, 0, 270},
		{"front portrait locked held landscape", FacingFront, 270, 0, 90, 0},
		{"front landscape display matches device", FacingFront, 270, 90, 90, 0},
		{"front upside down", FacingFront, 270, 180, 180, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CaptureRotation(tt.facing, tt.mount, tt.display, tt.device)
			if got != tt.expected {
				t.Errorf("Expected capture rotation %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestRotationsAlwaysInRange(t *testing.T) {
	angles := []int{0, 90, 180, 270}
	for _, facing := range []Facing{FacingBack, FacingFront} {
		for _, mount := range angles {
			for _, display := range angles {
				for _, device := range angles {
					r := Compute(facing, mount, display, device)
					if r.PreviewDegrees < 0 || r.PreviewDegrees >= 360 || r.PreviewDegrees%90 != 0 {
						t.Errorf("Preview rotation out of range for %v/%d/%d: %d", facing, mount, display, r.PreviewDegrees)
					}
					if r.CaptureDegrees < 0 || r.CaptureDegrees >= 360 || r.CaptureDegrees%90 != 0 {
						t.Errorf("Capture rotation out of range for %v/%d/%d/%d: %d", facing, mount, display, device, r.CaptureDegrees)
					}
				}
			}
		}
	}
}

func TestCaptureMatchesPreviewWhenNotLocked(t *testing.T) {
	// with display == device only the facing-dependent base remains
	for _, display := range []int{0, 90, 180, 270} {
		back := CaptureRotation(FacingBack, 90, display, display)
		if back != PreviewRotation(FacingBack, 90, display) {
			t.Errorf("Expected back capture rotation to equal preview rotation for display %d, got %d", display, back)
		}
	}
}

func TestInvertsPreview(t *testing.T) {
	tests := []struct {
		mount, device int
		expected      bool
	}{
		{90, 0, true},
		{270, 0, true},
		{90, 90, false},
		{0, 0, false},
		{0, 270, true},
		{180, 180, false},
	}

	for _, tt := range tests {
		s := State{SensorMountAngle: tt.mount, DeviceOrientation: tt.device}
		if got := s.InvertsPreview(); got != tt.expected {
			t.Errorf("InvertsPreview(mount=%d, device=%d): expected %v, got %v", tt.mount, tt.device, tt.expected, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[int]int{0: 0, 360: 0, -90: 270, 450: 90, -450: 270, 719: 359}
	for in, expected := range cases {
		if got := Normalize(in); got != expected {
			t.Errorf("Normalize(%d): expected %d, got %d", in, expected, got)
		}
	}
}

func TestParseFacing(t *testing.T) {
	if f, err := ParseFacing("Front"); err != nil || f != FacingFront {
		t.Errorf("Expected front facing, got %v (err %v)", f, err)
	}
	if f, err := ParseFacing(""); err != nil || f != FacingBack {
		t.Errorf("Expected empty string to default to back, got %v (err %v)", f, err)
	}
	if _, err := ParseFacing("sideways"); err == nil {
		t.Error("Expected error for invalid facing")
	}
}

func TestValidateDegrees(t *testing.T) {
	for _, d := range []int{0, 90, 180, 270} {
		if err := ValidateDegrees(d); err != nil {
			t.Errorf("Expected %d to be valid: %v", d, err)
		}
	}
	for _, d := range []int{-90, 45, 360} {
		if err := ValidateDegrees(d); err == nil {
			t.Errorf("Expected %d to be invalid", d)
		}
	}
}
