package capture

import (
	"sync"

	"github.com/google/uuid"
)

// HandleID is an opaque identifier for a device held in a Registry.
// Boundary layers that cannot hold Go references (HTTP handlers, IPC)
// pass these instead of raw pointers, so a mistyped or dangling
// reference is caught by lookup rather than crashing in a driver.
type HandleID string

// Registry owns open devices on behalf of a boundary layer, keyed by
// unguessable handle IDs. It serializes grabs per device: the
// underlying sources are not reentrant.
type Registry struct {
	mu      sync.Mutex
	devices map[HandleID]*entry
}

type entry struct {
	dev Device
	mu  sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[HandleID]*entry)}
}

// Add stores an open device and returns its handle. The registry takes
// over ownership; release it with Remove or Close, not Device.Close.
func (r *Registry) Add(dev Device) HandleID {
	id := HandleID(uuid.NewString())
	r.mu.Lock()
	r.devices[id] = &entry{dev: dev}
	r.mu.Unlock()
	return id
}

// Get returns the device for id, or ErrUnknownHandle. The caller is
// responsible for serializing its use of the device against concurrent
// Grab calls; boundary layers should prefer Status and Grab, which
// take the per-device lock themselves.
func (r *Registry) Get(id HandleID) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[id]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return e.dev, nil
}

// Status reports the configured size and open state of the device for
// id, holding that device's lock so the probe cannot interleave with a
// grab in progress.
func (r *Registry) Status(id HandleID) (width, height int, open bool, err error) {
	r.mu.Lock()
	e, ok := r.devices[id]
	r.mu.Unlock()
	if !ok {
		return 0, 0, false, ErrUnknownHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	width, height = e.dev.Resolution()
	return width, height, e.dev.IsOpened(), nil
}

// Grab runs one pipeline grab against the device for id, holding that
// device's lock for the duration.
func (r *Registry) Grab(id HandleID, p *Pipeline, dst []byte, width, height int) error {
	r.mu.Lock()
	e, ok := r.devices[id]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return p.Grab(e.dev, dst, width, height)
}

// Remove closes the device for id and forgets the handle.
func (r *Registry) Remove(id HandleID) error {
	r.mu.Lock()
	e, ok := r.devices[id]
	delete(r.devices, id)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev.Close()
}

// IDs returns the currently issued handles, in no particular order.
func (r *Registry) IDs() []HandleID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]HandleID, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	return ids
}

// Close releases every remaining device. The first close error is
// returned; all devices are closed regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for id, e := range r.devices {
		if err := e.dev.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.devices, id)
	}
	return first
}
