// grab captures one grayscale frame and writes it out as a binary PGM.
// Handy for checking a camera before pointing the daemon at it.
//
// Usage: grab [output.pgm]
//
// ROBOTD_CAMERA selects the source (index, path, or "sim"); the
// default device index is used when unset. ROBOTD_WIDTH and
// ROBOTD_HEIGHT override the 1280x720 default. Output "-" writes the
// PGM to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/sourcebots/robotd/internal/config"
	"github.com/sourcebots/robotd/internal/log"
	"github.com/sourcebots/robotd/pkg/capture"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	out := "frame.pgm"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	width, height := cfg.Camera.Width, cfg.Camera.Height

	var dev capture.Device
	if cfg.Camera.Source == "sim" {
		dev = capture.NewMock(width, height, capture.TestPattern(width, height))
	} else {
		dev, err = capture.Open(capture.ParseSource(cfg.Camera.Source))
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
	defer dev.Close()

	pipeline, err := capture.NewPipeline(capture.Config{
		VerifyNegotiation: cfg.Camera.VerifyNegotiation,
		MedianKernel:      cfg.Camera.MedianKernel,
		FourCC:            capture.DefaultFourCC,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	buf := make([]byte, width*height)
	if err := pipeline.Grab(dev, buf, width, height); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	fmt.Fprintf(w, "P5\n%d %d\n255\n", width, height)
	if _, err := w.Write(buf); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if out != "-" {
		log.Info("frame saved", "path", out, "width", width, "height", height)
	}
}
