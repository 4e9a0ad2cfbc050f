package capture

import (
	"fmt"
	"strconv"
)

// DefaultIndex is the device index used when no source is given.
const DefaultIndex = 1

// Source selects a video device by numeric index or by filesystem/URI
// path. The two forms are mutually exclusive.
type Source struct {
	index  int
	path   string
	isPath bool
}

// ByIndex selects the device with the given driver index.
func ByIndex(i int) Source {
	return Source{index: i}
}

// ByPath selects the device behind a filesystem path or URI, such as
// /dev/video0.
func ByPath(p string) Source {
	return Source{path: p, isPath: true}
}

// DefaultSource selects the default device index.
func DefaultSource() Source {
	return ByIndex(DefaultIndex)
}

// ParseSource interprets s as a device index when it is numeric and as
// a path otherwise. An empty string selects the default device.
func ParseSource(s string) Source {
	if s == "" {
		return DefaultSource()
	}
	if i, err := strconv.Atoi(s); err == nil {
		return ByIndex(i)
	}
	return ByPath(s)
}

// Index returns the device index. Only meaningful when Path reports
// no path.
func (s Source) Index() int {
	return s.index
}

// Path returns the device path and whether this source is path-based.
func (s Source) Path() (string, bool) {
	return s.path, s.isPath
}

// String returns the index or path in the form ParseSource accepts.
func (s Source) String() string {
	if s.isPath {
		return s.path
	}
	return strconv.Itoa(s.index)
}

// FourCC is a four-character pixel format code as used in driver
// format negotiation.
type FourCC [4]byte

// DefaultFourCC requests uncompressed BGR capture. The fourth byte is
// the historical version/padding byte, not a printable character.
var DefaultFourCC = FourCC{'B', 'G', 'R', 3}

// Code returns the packed little-endian property value drivers expect.
func (f FourCC) Code() float64 {
	return float64(uint32(f[0]) | uint32(f[1])<<8 | uint32(f[2])<<16 | uint32(f[3])<<24)
}

// String renders the code with non-printable bytes escaped.
func (f FourCC) String() string {
	out := make([]byte, 0, 16)
	for _, b := range f {
		if b >= ' ' && b < 0x7f {
			out = append(out, b)
		} else {
			out = append(out, fmt.Sprintf("\\x%02x", b)...)
		}
	}
	return string(out)
}

// Device is one open capture source. Implementations are not safe for
// concurrent use; callers serialize access themselves. Close must be
// called exactly once per successful open.
type Device interface {
	// Negotiate requests a frame size and pixel format. Drivers are
	// permitted to silently clamp or ignore the request; Resolution
	// reports what was actually configured.
	Negotiate(width, height int, code FourCC) error

	// Resolution reads back the configured frame size.
	Resolution() (width, height int)

	// IsOpened reports whether the underlying source is usable.
	IsOpened() bool

	// Read blocks until one color frame is available. There is no
	// timeout; a stalled driver stalls the caller. Callers needing
	// bounded latency must enforce a deadline externally.
	Read() (Image, error)

	// Close releases the underlying native resource.
	Close() error
}

// Image is a single frame and its layout metadata. Frames are
// transient: they live within one grab and are closed before it
// returns.
type Image interface {
	Width() int
	Height() int

	// Continuous reports whether the backing storage is packed with no
	// inter-row padding.
	Continuous() bool

	// Bytes returns the packed pixel data in row-major order.
	Bytes() ([]byte, error)

	// Grayscale converts a BGR frame to one-byte-per-pixel luminance.
	Grayscale() (Image, error)

	// Median applies a ksize x ksize median filter. ksize must be odd.
	Median(ksize int) (Image, error)

	Close() error
}
