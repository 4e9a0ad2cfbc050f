// Package capture acquires single grayscale frames from video devices.
//
// The unit of work is one synchronous grab: negotiate a resolution and
// pixel format on an open Device, read one color frame, convert it to
// luminance, median denoise it, validate the result, and copy exactly
// width*height packed bytes into a caller-owned buffer. All
// intermediate images are transient; the destination buffer is the
// only side effect a caller sees.
//
// Callers normally hold their own Device from Open and drive a
// Pipeline against it. The package-level Grab is a convenience over a
// single shared default device for hosts that only ever talk to one
// camera; it must not be used for multi-device or multi-session work.
package capture

import "sync"

var (
	sharedMu  sync.Mutex
	sharedDev Device
)

// Grab captures one frame from the shared default device into dst.
// The device is opened lazily on first use and stays open across calls
// until Release. The strict default pipeline configuration applies.
func Grab(dst []byte, width, height int) error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDev == nil {
		dev, err := Open(DefaultSource())
		if err != nil {
			return err
		}
		sharedDev = dev
	}

	p := Pipeline{cfg: DefaultConfig()}
	return p.Grab(sharedDev, dst, width, height)
}

// Release closes the shared device if Grab ever opened it. Safe to
// call when nothing was opened; a later Grab reopens the device.
func Release() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDev == nil {
		return nil
	}
	err := sharedDev.Close()
	sharedDev = nil
	return err
}
