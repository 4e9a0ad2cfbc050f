package capture_test

import (
	"testing"

	"github.com/sourcebots/robotd/pkg/capture"
)

func TestParseSource(t *testing.T) {
	cases := []struct {
		in       string
		wantPath bool
		want     string
	}{
		{"", false, "1"},
		{"0", false, "0"},
		{"3", false, "3"},
		{"/dev/video0", true, "/dev/video0"},
		{"rtsp://cam.local/stream", true, "rtsp://cam.local/stream"},
	}

	for _, tc := range cases {
		src := capture.ParseSource(tc.in)
		if _, isPath := src.Path(); isPath != tc.wantPath {
			t.Errorf("ParseSource(%q): path = %v, want %v", tc.in, isPath, tc.wantPath)
		}
		if src.String() != tc.want {
			t.Errorf("ParseSource(%q).String() = %q, want %q", tc.in, src.String(), tc.want)
		}
	}
}

func TestDefaultSource(t *testing.T) {
	src := capture.DefaultSource()
	if src.Index() != capture.DefaultIndex {
		t.Errorf("default index = %d, want %d", src.Index(), capture.DefaultIndex)
	}
	if _, isPath := src.Path(); isPath {
		t.Error("default source should not be path-based")
	}
}

func TestFourCC(t *testing.T) {
	code := capture.DefaultFourCC

	// 'B' | 'G'<<8 | 'R'<<16 | 3<<24
	want := float64(uint32('B') | uint32('G')<<8 | uint32('R')<<16 | uint32(3)<<24)
	if code.Code() != want {
		t.Errorf("Code() = %v, want %v", code.Code(), want)
	}
	if got := code.String(); got != `BGR\x03` {
		t.Errorf("String() = %q", got)
	}
}
