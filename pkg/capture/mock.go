package capture

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Mock implements Device for testing and for the "sim" source. The
// default behavior is a well-behaved BGR device at a fixed native
// resolution; individual methods can be overridden via function
// fields, and every invocation is recorded for verification.
type Mock struct {
	// NativeWidth and NativeHeight are what Resolution reports no
	// matter what was requested, mimicking a driver that clamps
	// silently. NewMock sets them; a test simulates a stubborn driver
	// by changing them after construction.
	NativeWidth  int
	NativeHeight int

	// Frame is the packed BGR data returned (copied) from every Read.
	Frame []byte

	// Open mirrors the not-open failure mode. NewMock opens the device.
	Open bool

	// Overrides. A nil field keeps the default behavior.
	NegotiateFunc func(width, height int, code FourCC) error
	ReadFunc      func() (Image, error)
	CloseFunc     func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock returns an open mock device with the given native resolution
// and frame data. frame must hold width*height*3 packed BGR bytes.
func NewMock(width, height int, frame []byte) *Mock {
	return &Mock{
		NativeWidth:  width,
		NativeHeight: height,
		Frame:        frame,
		Open:         true,
	}
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
	m.mu.Unlock()
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns how many times method was invoked.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears the recorded invocations.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// Negotiate records the request and accepts it. The native resolution
// is unaffected, like a driver that quietly keeps its own idea of the
// frame size.
func (m *Mock) Negotiate(width, height int, code FourCC) error {
	m.record("Negotiate")
	if m.NegotiateFunc != nil {
		return m.NegotiateFunc(width, height, code)
	}
	return nil
}

// Resolution reports the native resolution.
func (m *Mock) Resolution() (int, int) {
	m.record("Resolution")
	return m.NativeWidth, m.NativeHeight
}

// IsOpened reports the Open flag.
func (m *Mock) IsOpened() bool {
	m.record("IsOpened")
	return m.Open
}

// Read returns a synthetic BGR frame built from Frame, or fails when
// the device is closed.
func (m *Mock) Read() (Image, error) {
	m.record("Read")
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	if !m.Open {
		return nil, ErrNotReady
	}
	img, err := NewBGRImage(m.NativeWidth, m.NativeHeight, slices.Clone(m.Frame))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close marks the device closed.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	m.Open = false
	return nil
}

// SyntheticImage is a pure-Go Image backed by a packed byte slice. It
// carries the mock device's frames and the simulated source used when
// no hardware is plugged in.
type SyntheticImage struct {
	w, h     int
	channels int
	pix      []byte

	// Padded makes Continuous report row padding, for exercising the
	// layout gate.
	Padded bool
}

// NewBGRImage wraps packed 3-channel BGR data as an image.
func NewBGRImage(width, height int, pix []byte) (*SyntheticImage, error) {
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("capture: BGR image needs %d bytes, got %d", width*height*3, len(pix))
	}
	return &SyntheticImage{w: width, h: height, channels: 3, pix: pix}, nil
}

// NewGrayImage wraps packed single-channel data as an image.
func NewGrayImage(width, height int, pix []byte) (*SyntheticImage, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("capture: gray image needs %d bytes, got %d", width*height, len(pix))
	}
	return &SyntheticImage{w: width, h: height, channels: 1, pix: pix}, nil
}

func (s *SyntheticImage) Width() int       { return s.w }
func (s *SyntheticImage) Height() int      { return s.h }
func (s *SyntheticImage) Continuous() bool { return !s.Padded }

func (s *SyntheticImage) Bytes() ([]byte, error) {
	return s.pix, nil
}

// Grayscale converts BGR to luminance with the usual BT.601 weights.
func (s *SyntheticImage) Grayscale() (Image, error) {
	if s.channels != 3 {
		return nil, fmt.Errorf("capture: grayscale needs a 3-channel image, got %d", s.channels)
	}
	out := make([]byte, s.w*s.h)
	for i := range out {
		b := int(s.pix[3*i])
		g := int(s.pix[3*i+1])
		r := int(s.pix[3*i+2])
		out[i] = byte((299*r + 587*g + 114*b + 500) / 1000)
	}
	return &SyntheticImage{w: s.w, h: s.h, channels: 1, pix: out, Padded: s.Padded}, nil
}

// Median applies a ksize x ksize median filter with replicated edges.
func (s *SyntheticImage) Median(ksize int) (Image, error) {
	if s.channels != 1 {
		return nil, fmt.Errorf("capture: median needs a single-channel image, got %d channels", s.channels)
	}
	if ksize < 3 || ksize%2 == 0 {
		return nil, fmt.Errorf("capture: median kernel must be odd and >= 3, got %d", ksize)
	}

	radius := ksize / 2
	out := make([]byte, len(s.pix))
	win := make([]byte, 0, ksize*ksize)
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			win = win[:0]
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					cy := clamp(y+dy, 0, s.h-1)
					cx := clamp(x+dx, 0, s.w-1)
					win = append(win, s.pix[cy*s.w+cx])
				}
			}
			slices.Sort(win)
			out[y*s.w+x] = win[len(win)/2]
		}
	}
	return &SyntheticImage{w: s.w, h: s.h, channels: 1, pix: out, Padded: s.Padded}, nil
}

func (s *SyntheticImage) Close() error {
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TestPattern returns a packed BGR gradient frame, a stand-in source
// for development machines with no camera plugged in.
func TestPattern(width, height int) []byte {
	pix := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := 3 * (y*width + x)
			pix[i] = byte(x * 255 / max(width-1, 1))
			pix[i+1] = byte(y * 255 / max(height-1, 1))
			pix[i+2] = byte((x + y) % 256)
		}
	}
	return pix
}
