package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sourcebots/robotd/pkg/capture"
	"github.com/sourcebots/robotd/pkg/web"
)

const testW, testH = 32, 24

func newTestServer(t *testing.T) (*web.Server, *capture.Mock) {
	t.Helper()

	pipeline, err := capture.NewPipeline(capture.DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	mock := capture.NewMock(testW, testH, capture.TestPattern(testW, testH))
	open := func(source string) (capture.Device, error) {
		if source == "missing" {
			return nil, errors.New("no such device")
		}
		return mock, nil
	}

	return web.NewServer(":0", pipeline, open, web.FrameSize{Width: testW, Height: testH}), mock
}

func openCamera(t *testing.T, srv *web.Server, source string) string {
	t.Helper()
	body := strings.NewReader(fmt.Sprintf(`{"source": %q}`, source))
	req, _ := http.NewRequest(http.MethodPost, "/cameras/", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open: status %d", resp.StatusCode)
	}

	data, _ := io.ReadAll(resp.Body)
	var info web.CameraInfo
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ID == "" {
		t.Fatal("open: empty handle")
	}
	return info.ID
}

func TestOpenSnapshotClose(t *testing.T) {
	srv, _ := newTestServer(t)
	id := openCamera(t, srv, "sim")

	t.Run("status reports the camera", func(t *testing.T) {
		resp, err := srv.App().Test(httpGet("/cameras/" + id))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		data, _ := io.ReadAll(resp.Body)
		var info web.CameraInfo
		if err := json.Unmarshal(data, &info); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if info.Width != testW || info.Height != testH || !info.Open {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("snapshot delivers a PGM frame", func(t *testing.T) {
		resp, err := srv.App().Test(httpGet("/cameras/" + id + "/snapshot"))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}

		data, _ := io.ReadAll(resp.Body)
		header := fmt.Sprintf("P5\n%d %d\n255\n", testW, testH)
		if !bytes.HasPrefix(data, []byte(header)) {
			t.Fatalf("bad header: %q", data[:min(len(data), 20)])
		}
		if got := len(data) - len(header); got != testW*testH {
			t.Errorf("payload is %d bytes, want %d", got, testW*testH)
		}
	})

	t.Run("close releases the handle", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/cameras/"+id, nil)
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status %d", resp.StatusCode)
		}

		resp, err = srv.App().Test(httpGet("/cameras/" + id))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status after close = %d", resp.StatusCode)
		}
	})
}

func TestOpenFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"source": "missing"}`)
	req, _ := http.NewRequest(http.MethodPost, "/cameras/", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestSnapshotUnknownHandle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.App().Test(httpGet("/cameras/nope/snapshot"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestSnapshotNegotiationFailure(t *testing.T) {
	srv, mock := newTestServer(t)
	id := openCamera(t, srv, "sim")

	// Driver stuck at a different resolution than requested.
	mock.NativeWidth, mock.NativeHeight = 640, 480

	resp, err := srv.App().Test(httpGet("/cameras/" + id + "/snapshot"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestSnapshotNotReady(t *testing.T) {
	srv, mock := newTestServer(t)
	id := openCamera(t, srv, "sim")

	mock.Open = false

	resp, err := srv.App().Test(httpGet("/cameras/" + id + "/snapshot"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestSnapshotBadSize(t *testing.T) {
	srv, _ := newTestServer(t)
	id := openCamera(t, srv, "sim")

	// Oversized values must be rejected before a buffer is sized:
	// width*height wraps negative for the huge pair and would
	// otherwise reach make, and the merely-large pair would be a
	// request for a terabyte-scale allocation.
	queries := []string{
		"width=0",
		"width=-1&height=240",
		"width=3037000500&height=3037000500",
		"width=1000000&height=1000000",
	}
	for _, q := range queries {
		resp, err := srv.App().Test(httpGet("/cameras/" + id + "/snapshot?" + q))
		if err != nil {
			t.Fatalf("%s: request: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, resp.StatusCode)
		}
	}
}

func httpGet(path string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	return req
}
