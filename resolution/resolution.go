package resolution

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Size is an immutable width x height pair in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

func Size240p() Size {
	return Size{Width: 426, Height: 240}
}
func Size360p() Size {
	return Size{Width: 640, Height: 360}
}
func Size480p() Size {
	return Size{Width: 854, Height: 480}
}
func Size720p() Size {
	return Size{Width: 1280, Height: 720}
}
func Size1080p() Size {
	return Size{Width: 1920, Height: 1080}
}

// Returns the string representation of this Size (e.g. 640x480)
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func (s Size) Area() int {
	return s.Width * s.Height
}

// IsEmpty checks if the size is empty (both width and height are zero).
func (s Size) IsEmpty() bool {
	return s.Width == 0 && s.Height == 0
}

// Inverted returns the size with width and height swapped
func (s Size) Inverted() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// Compare orders sizes by area, breaking ties by width
func Compare(a, b Size) int {
	switch {
	case a.Area() < b.Area():
		return -1
	case a.Area() > b.Area():
		return 1
	case a.Width < b.Width:
		return -1
	case a.Width > b.Width:
		return 1
	default:
		return 0
	}
}

// SortedDescending returns a deduplicated copy of sizes ordered largest first.
// The input slice is left untouched.
func SortedDescending(sizes []Size) []Size {
	out := make([]Size, 0, len(sizes))
	seen := make(map[Size]struct{}, len(sizes))
	for _, s := range sizes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return Compare(out[i], out[j]) > 0
	})
	return out
}

// Parse converts a string representation of a size (e.g., "1920x1080") into a Size.
// Supported formats:
// - "1920x1080"
// - "1920:1080"
// - "1080p" (interpreted as 1920x1080)
// - "720p" (interpreted as 1280x720)
func Parse(sizeStr string) (Size, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	var res Size
	var err error
	switch {
	case strings.Contains(sizeStr, "x"):
		res, err = parseDimensions(sizeStr)
	case strings.Contains(sizeStr, ":"):
		res, err = parseDimensions(strings.ReplaceAll(sizeStr, ":", "x"))
	case strings.HasSuffix(sizeStr, "p"):
		res, err = parsePreset(sizeStr)
	default:
		err = fmt.Errorf("invalid size format: %s", sizeStr)
	}
	if err != nil {
		return Size{}, err
	}
	return res, nil
}

// ParseList parses every entry of sizes, failing on the first invalid one
func ParseList(sizes []string) ([]Size, error) {
	out := make([]Size, 0, len(sizes))
	for _, s := range sizes {
		size, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, size)
	}
	return out, nil
}

func parseDimensions(dimStr string) (Size, error) {
	parts := strings.Split(dimStr, "x")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("invalid dimensions: %s", dimStr)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil || width < 0 {
		return Size{}, fmt.Errorf("invalid width: %s", parts[0])
	}

	height, err := strconv.Atoi(parts[1])
	if err != nil || height < 0 {
		return Size{}, fmt.Errorf("invalid height: %s", parts[1])
	}

	return Size{Width: width, Height: height}, nil
}

func parsePreset(preset string) (Size, error) {
	switch preset {
	case "1080p":
		return Size1080p(), nil
	case "720p":
		return Size720p(), nil
	case "480p":
		return Size480p(), nil
	case "360p":
		return Size360p(), nil
	case "240p":
		return Size240p(), nil
	default:
		return Size{}, fmt.Errorf("unsupported size preset: %s", preset)
	}
}
