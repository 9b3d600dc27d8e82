package resolution

import (
	"sync"

	"github.com/yeti47/camkit/orientation"
)

// SizeLists are the size capabilities reported by an open device.
// A nil Video list means the device reports no dedicated video sizes.
type SizeLists struct {
	Preview []Size
	Picture []Size
	Video   []Size
}

// Selection is the result of selecting all three sizes; nil means "not yet configurable"
type Selection struct {
	Preview *Size `json:"preview"`
	Capture *Size `json:"capture"`
	Video   *Size `json:"video"`
}

// Selector picks preview, capture and video sizes for one device session.
// Results are memoized until Reset is called (the device was reopened).
// Returned pointers are shared and must not be modified by callers.
type Selector struct {
	mu             sync.Mutex
	lists          SizeLists
	screen         Size
	lockVideoRatio bool

	preview         *Size
	previewInverted *Size
	capture         *Size
	video           *Size
}

// NewSelector creates a selector over the given capability lists. screen is
// the display size in its natural (portrait) orientation.
func NewSelector(lists SizeLists, screen Size, lockVideoRatio bool) *Selector {
	return &Selector{
		lists:          lists,
		screen:         screen,
		lockVideoRatio: lockVideoRatio,
	}
}

// Reset drops all memoized sizes and replaces the inputs
func (s *Selector) Reset(lists SizeLists, screen Size, lockVideoRatio bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists = lists
	s.screen = screen
	s.lockVideoRatio = lockVideoRatio
	s.preview = nil
	s.previewInverted = nil
	s.capture = nil
	s.video = nil
}

// Select resolves all three sizes at once
func (s *Selector) Select(state orientation.State) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Selection{
		Preview: s.previewSize(state),
		Capture: s.captureSize(state),
		Video:   s.videoSize(state),
	}
}

// PreviewSize returns the preview size, swapped when the sensor is a quarter
// turn off the device orientation
func (s *Selector) PreviewSize(state orientation.State) *Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewSize(state)
}

// CaptureSize returns the picture size to capture at
func (s *Selector) CaptureSize(state orientation.State) *Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureSize(state)
}

// VideoSize returns the video size to record at
func (s *Selector) VideoSize(state orientation.State) *Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoSize(state)
}

func (s *Selector) displayRatio() AspectRatio {
	return AspectRatioOf(s.screen.Height, s.screen.Width)
}

func (s *Selector) previewSize(state orientation.State) *Size {
	if s.preview == nil {
		s.preview = s.selectPreview()
	}
	if s.preview == nil {
		return nil
	}

	if !state.InvertsPreview() {
		return s.preview
	}
	if s.previewInverted == nil {
		inverted := s.preview.Inverted()
		s.previewInverted = &inverted
	}
	return s.previewInverted
}

func (s *Selector) selectPreview() *Size {
	bound := s.displayRatio()
	ratios := CommonRatios(s.lists.Preview, s.lists.Picture, bound)

	var target AspectRatio
	found := false

	if s.lockVideoRatio {
		videoSizes := s.lists.Video
		if videoSizes == nil {
			videoSizes = s.lists.Picture
		}
		videoRatios := CommonRatios(s.lists.Preview, videoSizes, bound)
		for i := len(ratios) - 1; i >= 0; i-- {
			if containsRatio(videoRatios, ratios[i]) {
				target, found = ratios[i], true
				break
			}
		}
	}

	if !found {
		target, found = Largest(ratios)
	}

	// the screen is portrait while sizes are reported landscape
	return walkDescending(s.lists.Preview, target, found, s.screen.Height, s.screen.Width)
}

func (s *Selector) captureSize(state orientation.State) *Size {
	if s.capture != nil {
		return s.capture
	}

	target, found := Largest(CommonRatios(s.lists.Preview, s.lists.Picture, s.displayRatio()))

	var minWidth, minHeight int
	if found {
		preview := s.previewSize(state)
		if preview == nil {
			return nil
		}
		minWidth, minHeight = preview.Height, preview.Width
	}

	s.capture = walkDescending(s.lists.Picture, target, found, minWidth, minHeight)
	return s.capture
}

func (s *Selector) videoSize(state orientation.State) *Size {
	if s.video != nil {
		return s.video
	}

	if s.lists.Video == nil {
		s.video = s.captureSize(state)
		return s.video
	}

	target, found := Largest(CommonRatios(s.lists.Preview, s.lists.Video, s.displayRatio()))
	for _, size := range SortedDescending(s.lists.Video) {
		if !found || target.Matches(size) {
			selected := size
			s.video = &selected
			break
		}
	}
	return s.video
}

// walkDescending scans sizes largest first. Without a target ratio the largest
// size wins. Otherwise, among sizes matching the ratio, it keeps the last one
// that is at least minWidth x minHeight and stops at the first one that is not;
// if the very first match already falls short it is kept anyway.
func walkDescending(sizes []Size, target AspectRatio, hasTarget bool, minWidth, minHeight int) *Size {
	var candidate *Size
	for _, size := range SortedDescending(sizes) {
		current := size
		if !hasTarget {
			return &current
		}
		if !target.Matches(current) {
			continue
		}
		if current.Width >= minWidth && current.Height >= minHeight {
			candidate = &current
			continue
		}
		if candidate == nil {
			candidate = &current
		}
		break
	}
	return candidate
}
