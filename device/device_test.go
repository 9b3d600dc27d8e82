package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeti47/camkit/focus"
	"github.com/yeti47/camkit/resolution"
)

func TestFramePool_FixedAtFirstUse(t *testing.T) {
	pool := NewFramePool(0)
	if pool.Size() != DefaultFramePoolSize {
		t.Fatalf("Expected pool size %d, got %d", DefaultFramePoolSize, pool.Size())
	}

	first := pool.Buffers(1024)
	if len(first) != DefaultFramePoolSize {
		t.Fatalf("Expected %d buffers, got %d", DefaultFramePoolSize, len(first))
	}
	for _, b := range first {
		if len(b) != 1024 {
			t.Errorf("Expected buffer length 1024, got %d", len(b))
		}
	}

	second := pool.Buffers(4096)
	if pool.Length() != 1024 {
		t.Errorf("Expected length to stay 1024, got %d", pool.Length())
	}
	if &second[0][0] != &first[0][0] {
		t.Error("Expected the same buffers on later calls")
	}

	pool.Reset()
	if pool.Length() != 0 {
		t.Errorf("Expected length 0 after reset, got %d", pool.Length())
	}
	third := pool.Buffers(4096)
	if len(third[0]) != 4096 {
		t.Errorf("Expected reallocated buffers of 4096 bytes, got %d", len(third[0]))
	}
}

func TestFramePool_ZeroLengthAllocatesNothing(t *testing.T) {
	pool := NewFramePool(3)
	if buffers := pool.Buffers(0); buffers != nil {
		t.Errorf("Expected no buffers, got %d", len(buffers))
	}
}

func TestCapabilities_FrameLength(t *testing.T) {
	caps := Capabilities{PreviewBitsPerPixel: 12}
	if got := caps.FrameLength(resolution.NewSize(1920, 1080)); got != 3110400 {
		t.Errorf("Expected 3110400, got %d", got)
	}
}

func TestParameters_CloneDoesNotShareAreas(t *testing.T) {
	original := Parameters{FocusAreas: []focus.Area{{Window: focus.Window{Left: 1}, Weight: 1000}}}
	clone := original.Clone()
	clone.FocusAreas[0].Weight = 1

	if original.FocusAreas[0].Weight != 1000 {
		t.Error("Clone shares the focus area slice with the original")
	}
}

func TestParseFlashMode(t *testing.T) {
	mode, err := ParseFlashMode("torch")
	if err != nil || mode != FlashTorch {
		t.Errorf("Expected torch, got %v (%v)", mode, err)
	}
	mode, err = ParseFlashMode("")
	if err != nil || mode != FlashOff {
		t.Errorf("Expected off for empty string, got %v (%v)", mode, err)
	}
	if _, err := ParseFlashMode("strobe"); !IsUnknownModeError(err) {
		t.Errorf("Expected UnknownModeError, got %v", err)
	}
}

func openMock(t *testing.T) *MockDevice {
	t.Helper()
	dev := NewMockDevice(DefaultMockInfo(), DefaultMockCapabilities(), nil)
	if err := dev.Open(context.Background()); err != nil {
		t.Fatalf("Failed to open mock device: %v", err)
	}
	return dev
}

func TestMockDevice_RejectKeepsPreviousParameters(t *testing.T) {
	dev := openMock(t)
	before, _ := dev.Parameters()

	dev.RejectFunc = func(p Parameters) error {
		if p.PreviewSize.Width > 1280 {
			return errors.New("preview too large")
		}
		return nil
	}

	err := dev.SetParameters(Parameters{PreviewSize: resolution.NewSize(1920, 1080)})
	if err == nil {
		t.Fatal("Expected rejection")
	}
	after, _ := dev.Parameters()
	if after.PreviewSize != before.PreviewSize {
		t.Errorf("Expected parameters to stay %v, got %v", before.PreviewSize, after.PreviewSize)
	}

	if err := dev.SetParameters(Parameters{PreviewSize: resolution.NewSize(1280, 720)}); err != nil {
		t.Fatalf("Unexpected rejection: %v", err)
	}
	if len(dev.Submitted()) != 2 {
		t.Errorf("Expected 2 submitted parameter sets, got %d", len(dev.Submitted()))
	}
}

func TestMockDevice_ClosedDeviceRefusesCalls(t *testing.T) {
	dev := NewMockDevice(DefaultMockInfo(), DefaultMockCapabilities(), nil)

	if err := dev.SetParameters(Parameters{}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Expected ErrDeviceClosed, got %v", err)
	}
	if _, err := dev.Parameters(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Expected ErrDeviceClosed, got %v", err)
	}
	if err := dev.AutoFocus(nil); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Expected ErrDeviceClosed, got %v", err)
	}
}

func TestMockDevice_FrameBuffersAreRecycled(t *testing.T) {
	dev := openMock(t)
	if err := dev.StartPreview(); err != nil {
		t.Fatalf("Failed to start preview: %v", err)
	}

	pool := NewFramePool(DefaultFramePoolSize)
	delivered := 0
	dev.SetFrameHandler(func(frame []byte) {
		delivered++
		dev.AddFrameBuffer(frame)
	})
	for _, b := range pool.Buffers(8) {
		dev.AddFrameBuffer(b)
	}

	for i := 0; i < 10; i++ {
		if !dev.PushFrame([]byte{1, 2, 3}) {
			t.Fatalf("Frame %d was dropped", i)
		}
	}
	if delivered != 10 {
		t.Errorf("Expected 10 delivered frames, got %d", delivered)
	}
	if dev.FreeFrameBuffers() != DefaultFramePoolSize {
		t.Errorf("Expected %d free buffers, got %d", DefaultFramePoolSize, dev.FreeFrameBuffers())
	}
}

func TestMockDevice_FramesDroppedWithoutFreeBuffer(t *testing.T) {
	dev := openMock(t)
	_ = dev.StartPreview()

	var held [][]byte
	dev.SetFrameHandler(func(frame []byte) { held = append(held, frame) })
	dev.AddFrameBuffer(make([]byte, 4))

	if !dev.PushFrame([]byte{1}) {
		t.Fatal("Expected first frame to be delivered")
	}
	if dev.PushFrame([]byte{2}) {
		t.Error("Expected second frame to be dropped while the only buffer is held")
	}

	dev.AddFrameBuffer(held[0])
	if !dev.PushFrame([]byte{3, 4, 5, 6}) {
		t.Fatal("Expected frame to be delivered after the buffer was returned")
	}
	if len(held[1]) != 4 {
		t.Errorf("Expected returned buffer to regain its full length, got %d", len(held[1]))
	}
}

func TestMockDevice_AutoFocusCallbackRunsAsynchronously(t *testing.T) {
	dev := openMock(t)
	dev.AutoFocusResult = false

	result := make(chan bool, 1)
	if err := dev.AutoFocus(func(success bool) { result <- success }); err != nil {
		t.Fatalf("AutoFocus failed: %v", err)
	}

	select {
	case success := <-result:
		if success {
			t.Error("Expected auto-focus to report failure")
		}
	case <-time.After(time.Second):
		t.Fatal("Auto-focus callback was not invoked")
	}
}

func TestMockDevice_TakePictureNeedsPreview(t *testing.T) {
	dev := openMock(t)
	if err := dev.TakePicture(func([]byte, error) {}); !errors.Is(err, ErrPreviewNotRunning) {
		t.Errorf("Expected ErrPreviewNotRunning, got %v", err)
	}
}
