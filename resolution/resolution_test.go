package resolution

import (
	"testing"

	"github.com/yeti47/camkit/orientation"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Size
		wantErr  bool
	}{
		{"1920x1080", Size{1920, 1080}, false},
		{"640:480", Size{640, 480}, false},
		{"720p", Size{1280, 720}, false},
		{" 1080p ", Size{1920, 1080}, false},
		{"4k", Size{}, true},
		{"axb", Size{}, true},
		{"-1x20", Size{}, true},
		{"999p", Size{}, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Parse(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestSortedDescending(t *testing.T) {
	input := []Size{{640, 480}, {1600, 1200}, {1920, 1000}, {640, 480}, {1280, 720}}
	got := SortedDescending(input)

	expected := []Size{{1920, 1000}, {1600, 1200}, {1280, 720}, {640, 480}}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d sizes, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Index %d: expected %v, got %v", i, expected[i], got[i])
		}
	}

	if input[0] != (Size{640, 480}) {
		t.Error("SortedDescending must not reorder its input")
	}
}

func TestAspectRatioMatches(t *testing.T) {
	r := RatioOf(Size{1920, 1080})
	if r.String() != "16:9" {
		t.Fatalf("Expected 16:9, got %s", r)
	}

	for _, s := range []Size{{1280, 720}, {3840, 2160}, {16, 9}} {
		if !r.Matches(s) {
			t.Errorf("Expected 16:9 to match %v", s)
		}
	}
	for _, s := range []Size{{1440, 1080}, {1080, 1920}, {0, 0}} {
		if r.Matches(s) {
			t.Errorf("Expected 16:9 not to match %v", s)
		}
	}

	if AspectRatioOf(0, 0).Matches(Size{0, 0}) {
		t.Error("Zero ratio must not match anything")
	}
}

func TestAspectRatioCompare(t *testing.T) {
	fourThree := AspectRatioOf(4, 3)
	sixteenNine := AspectRatioOf(16, 9)

	if fourThree.Compare(sixteenNine) >= 0 {
		t.Error("Expected 4:3 < 16:9")
	}
	if sixteenNine.Compare(fourThree) <= 0 {
		t.Error("Expected 16:9 > 4:3")
	}
	if AspectRatioOf(8, 6).Compare(fourThree) != 0 {
		t.Error("Expected 8:6 == 4:3")
	}
	if fourThree.Inverse() != AspectRatioOf(3, 4) {
		t.Errorf("Expected inverse 3:4, got %s", fourThree.Inverse())
	}
}

func TestCommonRatios_DisplayRatioMatch(t *testing.T) {
	preview := []Size{{4, 3}}
	target := []Size{{4, 3}, {16, 9}}

	got := CommonRatios(preview, target, AspectRatioOf(4, 3))
	if len(got) != 1 || got[0] != AspectRatioOf(4, 3) {
		t.Errorf("Expected [4:3], got %v", got)
	}
}

func TestCommonRatios_FallsBackToFirstPreviewSize(t *testing.T) {
	preview := []Size{{4, 3}}
	target := []Size{{4, 3}, {16, 9}}

	got := CommonRatios(preview, target, AspectRatioOf(16, 9))
	if len(got) != 1 || got[0] != AspectRatioOf(4, 3) {
		t.Errorf("Expected fallback [4:3], got %v", got)
	}
}

func TestCommonRatios_FallbackUsesFirstNotLargest(t *testing.T) {
	// the larger 16:9 preview size is second in device order and must be ignored
	preview := []Size{{640, 480}, {1920, 1080}}
	target := []Size{{1920, 1080}, {1600, 1200}}

	got := CommonRatios(preview, target, AspectRatioOf(3, 2))
	if len(got) != 1 || got[0] != AspectRatioOf(4, 3) {
		t.Errorf("Expected fallback [4:3], got %v", got)
	}
}

func TestCommonRatios_NoOverlap(t *testing.T) {
	got := CommonRatios([]Size{{1920, 1080}}, []Size{{1600, 1200}}, AspectRatioOf(16, 9))
	if len(got) != 0 {
		t.Errorf("Expected no common ratios, got %v", got)
	}

	if got := CommonRatios(nil, []Size{{1600, 1200}}, AspectRatioOf(16, 9)); got != nil {
		t.Errorf("Expected nil for empty preview list, got %v", got)
	}
}

// phoneLists models a typical phone camera with a 1080x1920 portrait screen
func phoneLists() SizeLists {
	return SizeLists{
		Preview: []Size{{1920, 1080}, {1440, 1080}, {1280, 720}, {640, 480}, {352, 288}},
		Picture: []Size{{4000, 3000}, {4000, 2250}, {3840, 2160}, {1920, 1080}, {1280, 720}, {640, 480}},
	}
}

var portraitBack = orientation.State{Facing: orientation.FacingBack, SensorMountAngle: 90}

func TestSelector_PreviewSize(t *testing.T) {
	selector := NewSelector(phoneLists(), Size{1080, 1920}, false)

	upright := selector.PreviewSize(orientation.State{SensorMountAngle: 90, DeviceOrientation: 90})
	if upright == nil || *upright != (Size{1920, 1080}) {
		t.Fatalf("Expected 1920x1080, got %v", upright)
	}

	inverted := selector.PreviewSize(portraitBack)
	if inverted == nil || *inverted != (Size{1080, 1920}) {
		t.Errorf("Expected inverted 1080x1920, got %v", inverted)
	}
}

func TestSelector_PreviewSizeIsMemoized(t *testing.T) {
	selector := NewSelector(phoneLists(), Size{1080, 1920}, false)

	first := selector.PreviewSize(portraitBack)
	second := selector.PreviewSize(portraitBack)
	if first == nil || first != second {
		t.Errorf("Expected the identical cached size, got %p and %p", first, second)
	}
}

func TestSelector_PreviewFallsBackToFirstMatchWhenNoneCoversScreen(t *testing.T) {
	lists := SizeLists{
		Preview: []Size{{1280, 720}, {640, 360}},
		Picture: []Size{{1280, 720}},
	}
	selector := NewSelector(lists, Size{1080, 1920}, false)

	got := selector.PreviewSize(orientation.State{})
	if got == nil || *got != (Size{1280, 720}) {
		t.Errorf("Expected first matching size 1280x720, got %v", got)
	}
}

func TestSelector_CaptureSizeIsSmallestCoveringPreview(t *testing.T) {
	selector := NewSelector(phoneLists(), Size{1080, 1920}, false)

	got := selector.CaptureSize(portraitBack)
	if got == nil || *got != (Size{1920, 1080}) {
		t.Fatalf("Expected 1920x1080, got %v", got)
	}

	// no picture size that covers the preview may be smaller than the selection
	preview := selector.PreviewSize(portraitBack)
	target := AspectRatioOf(16, 9)
	for _, size := range phoneLists().Picture {
		covers := size.Width >= preview.Height && size.Height >= preview.Width
		if covers && target.Matches(size) && size.Area() < got.Area() {
			t.Errorf("Found smaller covering size %v than selected %v", size, got)
		}
	}
}

func TestSelector_CaptureSizeWithoutCommonRatioIsLargest(t *testing.T) {
	lists := SizeLists{
		Preview: []Size{{1920, 1080}, {1440, 1080}},
		Picture: []Size{{2592, 1944}, {4000, 3000}},
	}
	selector := NewSelector(lists, Size{1080, 1920}, false)

	got := selector.CaptureSize(portraitBack)
	if got == nil || *got != (Size{4000, 3000}) {
		t.Errorf("Expected largest picture size 4000x3000, got %v", got)
	}

	preview := selector.PreviewSize(orientation.State{})
	if preview == nil || *preview != (Size{1920, 1080}) {
		t.Errorf("Expected largest preview size 1920x1080, got %v", preview)
	}
}

func TestSelector_VideoSize(t *testing.T) {
	lists := phoneLists()
	lists.Video = []Size{{1280, 720}, {3840, 2160}, {1920, 1080}, {720, 480}}
	selector := NewSelector(lists, Size{1080, 1920}, false)

	got := selector.VideoSize(portraitBack)
	if got == nil || *got != (Size{3840, 2160}) {
		t.Errorf("Expected largest matching video size 3840x2160, got %v", got)
	}
}

func TestSelector_VideoSizeFallsBackToCapture(t *testing.T) {
	selector := NewSelector(phoneLists(), Size{1080, 1920}, false)

	video := selector.VideoSize(portraitBack)
	capture := selector.CaptureSize(portraitBack)
	if video == nil || video != capture {
		t.Errorf("Expected video size to be the capture size, got %v and %v", video, capture)
	}
}

func TestSelector_VideoSizeWithoutCommonRatio(t *testing.T) {
	lists := phoneLists()
	lists.Video = []Size{{720, 480}, {1600, 1200}}
	selector := NewSelector(lists, Size{1080, 1920}, false)

	got := selector.VideoSize(portraitBack)
	if got == nil || *got != (Size{1600, 1200}) {
		t.Errorf("Expected largest video size 1600x1200, got %v", got)
	}
}

func TestSelector_LockVideoRatioKeepsPictureRatioWhenVideoDiffers(t *testing.T) {
	lists := phoneLists()
	lists.Video = []Size{{640, 480}}
	selector := NewSelector(lists, Size{1080, 1920}, true)

	got := selector.PreviewSize(orientation.State{})
	if got == nil || *got != (Size{1920, 1080}) {
		t.Errorf("Expected 1920x1080, got %v", got)
	}
}

func TestSelector_EmptyListsYieldNone(t *testing.T) {
	selector := NewSelector(SizeLists{}, Size{1080, 1920}, false)
	selection := selector.Select(portraitBack)

	if selection.Preview != nil || selection.Capture != nil || selection.Video != nil {
		t.Errorf("Expected no sizes, got %+v", selection)
	}
}

func TestSelector_ResetDropsCache(t *testing.T) {
	selector := NewSelector(phoneLists(), Size{1080, 1920}, false)
	first := selector.PreviewSize(orientation.State{})

	selector.Reset(SizeLists{Preview: []Size{{640, 480}}, Picture: []Size{{640, 480}}}, Size{480, 640}, false)
	second := selector.PreviewSize(orientation.State{})

	if second == nil || *second != (Size{640, 480}) {
		t.Fatalf("Expected 640x480 after reset, got %v", second)
	}
	if first == second {
		t.Error("Expected a fresh selection after reset")
	}
}

func TestFitPreview(t *testing.T) {
	tests := []struct {
		name        string
		container   Size
		preview     Size
		orientation int
		expected    Size
	}{
		{"matching ratio sideways", Size{1080, 1920}, Size{1920, 1080}, 90, Size{1080, 1920}},
		{"narrower preview overflows width", Size{1080, 1920}, Size{1440, 1080}, 90, Size{1440, 1920}},
		{"landscape overflows height", Size{1920, 1080}, Size{1440, 1080}, 0, Size{1920, 1440}},
		{"negative orientation is normalized", Size{1080, 1920}, Size{1440, 1080}, -90, Size{1440, 1920}},
		{"empty preview leaves container", Size{1080, 1920}, Size{}, 0, Size{1080, 1920}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitPreview(tt.container, tt.preview, tt.orientation)
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
