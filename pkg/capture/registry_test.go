package capture_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sourcebots/robotd/pkg/capture"
)

func TestRegistry(t *testing.T) {
	reg := capture.NewRegistry()
	mock := capture.NewMock(32, 24, uniformBGR(32, 24, 7, 7, 7))

	id := reg.Add(mock)

	t.Run("Get returns the device", func(t *testing.T) {
		dev, err := reg.Get(id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dev != capture.Device(mock) {
			t.Error("got a different device back")
		}
	})

	t.Run("unknown handle rejected", func(t *testing.T) {
		if _, err := reg.Get("nope"); !errors.Is(err, capture.ErrUnknownHandle) {
			t.Errorf("expected ErrUnknownHandle, got %v", err)
		}
	})

	t.Run("Grab goes through the pipeline", func(t *testing.T) {
		p, err := capture.NewPipeline(capture.DefaultConfig())
		if err != nil {
			t.Fatalf("pipeline: %v", err)
		}
		buf := make([]byte, 32*24)
		if err := reg.Grab(id, p, buf, 32, 24); err != nil {
			t.Fatalf("grab: %v", err)
		}
		if err := reg.Grab("nope", p, buf, 32, 24); !errors.Is(err, capture.ErrUnknownHandle) {
			t.Errorf("expected ErrUnknownHandle, got %v", err)
		}
	})

	t.Run("Status probes under the device lock", func(t *testing.T) {
		w, h, open, err := reg.Status(id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w != 32 || h != 24 || !open {
			t.Errorf("status = %dx%d open=%v", w, h, open)
		}
		if _, _, _, err := reg.Status("nope"); !errors.Is(err, capture.ErrUnknownHandle) {
			t.Errorf("expected ErrUnknownHandle, got %v", err)
		}
	})

	t.Run("IDs lists issued handles", func(t *testing.T) {
		ids := reg.IDs()
		if len(ids) != 1 || ids[0] != id {
			t.Errorf("unexpected handles: %v", ids)
		}
	})

	t.Run("Remove closes the device", func(t *testing.T) {
		if err := reg.Remove(id); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if mock.CallCount("Close") != 1 {
			t.Errorf("expected 1 close, got %d", mock.CallCount("Close"))
		}
		if _, err := reg.Get(id); !errors.Is(err, capture.ErrUnknownHandle) {
			t.Error("handle still resolvable after remove")
		}
		if err := reg.Remove(id); !errors.Is(err, capture.ErrUnknownHandle) {
			t.Errorf("second remove: expected ErrUnknownHandle, got %v", err)
		}
	})
}

func TestRegistryClose(t *testing.T) {
	reg := capture.NewRegistry()
	a := capture.NewMock(8, 8, nil)
	b := capture.NewMock(8, 8, nil)
	reg.Add(a)
	reg.Add(b)

	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.CallCount("Close") != 1 || b.CallCount("Close") != 1 {
		t.Error("not every device was closed")
	}
	if len(reg.IDs()) != 0 {
		t.Error("handles survive Close")
	}
}

func TestRegistryStatusDoesNotRaceGrab(t *testing.T) {
	// Status and Grab on the same handle serialize on the device lock.
	// Both must keep succeeding under contention, and a lock-ordering
	// mistake between the registry and device locks shows up here as a
	// hang.
	reg := capture.NewRegistry()
	mock := capture.NewMock(32, 24, uniformBGR(32, 24, 3, 3, 3))
	id := reg.Add(mock)

	p, err := capture.NewPipeline(capture.DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]byte, 32*24)
		for i := 0; i < 50; i++ {
			if err := reg.Grab(id, p, buf, 32, 24); err != nil {
				t.Errorf("grab: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, _, _, err := reg.Status(id); err != nil {
				t.Errorf("status: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestRegistryCloseReportsFirstError(t *testing.T) {
	reg := capture.NewRegistry()
	failing := capture.NewMock(8, 8, nil)
	failErr := errors.New("driver wedged")
	failing.CloseFunc = func() error { return failErr }
	reg.Add(failing)

	if err := reg.Close(); !errors.Is(err, failErr) {
		t.Errorf("expected close error, got %v", err)
	}
}
