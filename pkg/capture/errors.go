package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrNotReady is returned when the device reports not-open at
	// capture time.
	ErrNotReady = errors.New("capture: device is not open")

	// ErrNotContiguous is returned when the denoised frame's storage
	// has row padding. The byte copy assumes tight packing, so this is
	// a defect in the transform stage rather than a transient condition.
	ErrNotContiguous = errors.New("capture: frame storage is not contiguous")

	// ErrShortBuffer is returned when the destination buffer cannot
	// hold width*height bytes.
	ErrShortBuffer = errors.New("capture: destination buffer too small")

	// ErrUnknownHandle is returned by Registry lookups for handles it
	// has never issued or has already removed.
	ErrUnknownHandle = errors.New("capture: unknown device handle")
)

// OpenError reports a video source the driver could not open: invalid
// source, device busy, or missing driver support.
type OpenError struct {
	Source Source
	Err    error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("capture: open %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// NegotiationError reports a driver that accepted a resolution request
// but configured something else. Proceeding with the mismatched size
// usually produces a truncated capture, so the grab is aborted.
type NegotiationError struct {
	RequestedWidth  int
	RequestedHeight int
	ActualWidth     int
	ActualHeight    int
}

// Error implements the error interface.
func (e *NegotiationError) Error() string {
	return fmt.Sprintf("capture: driver negotiated %dx%d for a %dx%d request",
		e.ActualWidth, e.ActualHeight, e.RequestedWidth, e.RequestedHeight)
}

// DimensionError reports a denoised frame whose size disagrees with the
// original request. Each axis is checked independently; a width-only
// mismatch still fails the grab.
type DimensionError struct {
	ExpectedWidth  int
	ExpectedHeight int
	ActualWidth    int
	ActualHeight   int
}

// Error implements the error interface.
func (e *DimensionError) Error() string {
	return fmt.Sprintf("capture: frame is %dx%d, expected %dx%d",
		e.ActualWidth, e.ActualHeight, e.ExpectedWidth, e.ExpectedHeight)
}
