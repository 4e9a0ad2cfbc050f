package capture

import (
	"fmt"

	"github.com/sourcebots/robotd/internal/log"
)

// MaxDimension bounds requested frame width and height. It is far
// beyond any real sensor and keeps width*height from overflowing or
// driving an absurd allocation when a request comes from an untrusted
// boundary.
const MaxDimension = 8192

// Config holds the tunable parameters of a capture pipeline.
type Config struct {
	// VerifyNegotiation aborts a grab when the driver does not honor
	// the requested resolution exactly. Drivers clamp silently and a
	// mismatched capture comes back corrupted or truncated, so this
	// defaults to on. Turn it off only for drivers whose read-back is
	// known to lie.
	VerifyNegotiation bool

	// MedianKernel is the aperture of the denoise step. Odd, >= 3.
	MedianKernel int

	// FourCC is the pixel format requested during negotiation.
	FourCC FourCC
}

// DefaultConfig returns the strict pipeline configuration.
func DefaultConfig() Config {
	return Config{
		VerifyNegotiation: true,
		MedianKernel:      3,
		FourCC:            DefaultFourCC,
	}
}

// Validate checks the config values.
func (c *Config) Validate() error {
	if c.MedianKernel < 3 || c.MedianKernel%2 == 0 {
		return fmt.Errorf("capture: median kernel must be odd and >= 3, got %d", c.MedianKernel)
	}
	return nil
}

// Pipeline performs single-frame grabs against an open Device. It
// holds no per-device state, so one Pipeline may serve any number of
// devices as long as each device itself is externally serialized.
type Pipeline struct {
	cfg Config
}

// NewPipeline validates cfg and returns a pipeline using it. A zero
// FourCC means the caller built the config by hand and left it out, so
// the default BGR code is filled in rather than negotiating format 0.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.FourCC == (FourCC{}) {
		cfg.FourCC = DefaultFourCC
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Grab captures one frame from dev, converts it to grayscale, median
// denoises it, and copies exactly width*height packed bytes into dst.
//
// Every stage is a hard gate: any failure aborts the grab, returns an
// error describing the failing stage, and leaves dst untouched. On
// success dst holds a row-major single-channel image, one byte per
// pixel. Failures are local to one call; nothing is retried and the
// device stays open for the caller to try again or close.
func (p *Pipeline) Grab(dev Device, dst []byte, width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("capture: invalid frame size %dx%d", width, height)
	}
	if len(dst) < width*height {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, width*height, len(dst))
	}

	if err := dev.Negotiate(width, height, p.cfg.FourCC); err != nil {
		return fmt.Errorf("capture: negotiate %dx%d: %w", width, height, err)
	}

	if p.cfg.VerifyNegotiation {
		aw, ah := dev.Resolution()
		if aw != width || ah != height {
			if aw != width {
				log.Error("incorrect width set on device", "requested", width, "actual", aw)
			}
			if ah != height {
				log.Error("incorrect height set on device", "requested", height, "actual", ah)
			}
			return &NegotiationError{
				RequestedWidth:  width,
				RequestedHeight: height,
				ActualWidth:     aw,
				ActualHeight:    ah,
			}
		}
	}

	if !dev.IsOpened() {
		return ErrNotReady
	}

	frame, err := dev.Read()
	if err != nil {
		return fmt.Errorf("capture: read frame: %w", err)
	}
	defer frame.Close()
	describe("colour", frame)

	grey, err := frame.Grayscale()
	if err != nil {
		return fmt.Errorf("capture: grayscale: %w", err)
	}
	defer grey.Close()
	describe("greyscale", grey)

	denoised, err := grey.Median(p.cfg.MedianKernel)
	if err != nil {
		return fmt.Errorf("capture: denoise: %w", err)
	}
	defer denoised.Close()
	describe("denoised", denoised)

	if !denoised.Continuous() {
		return ErrNotContiguous
	}

	aw, ah := denoised.Width(), denoised.Height()
	if aw != width || ah != height {
		if aw != width {
			log.Error("width mismatch", "expected", width, "actual", aw)
		}
		if ah != height {
			log.Error("height mismatch", "expected", height, "actual", ah)
		}
		return &DimensionError{
			ExpectedWidth:  width,
			ExpectedHeight: height,
			ActualWidth:    aw,
			ActualHeight:   ah,
		}
	}

	pix, err := denoised.Bytes()
	if err != nil {
		return fmt.Errorf("capture: frame bytes: %w", err)
	}
	if len(pix) < width*height {
		return fmt.Errorf("capture: frame holds %d bytes, expected %d", len(pix), width*height)
	}
	copy(dst, pix[:width*height])
	return nil
}

func describe(stage string, img Image) {
	log.Debug("pipeline stage", "stage", stage, "width", img.Width(), "height", img.Height())
}
