// robotd serves single-frame grayscale captures over HTTP.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcebots/robotd/internal/config"
	"github.com/sourcebots/robotd/internal/log"
	"github.com/sourcebots/robotd/pkg/capture"
	"github.com/sourcebots/robotd/pkg/web"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)

	pipeline, err := capture.NewPipeline(capture.Config{
		VerifyNegotiation: cfg.Camera.VerifyNegotiation,
		MedianKernel:      cfg.Camera.MedianKernel,
		FourCC:            capture.DefaultFourCC,
	})
	if err != nil {
		log.Error("bad capture config", "error", err)
		os.Exit(1)
	}

	size := web.FrameSize{Width: cfg.Camera.Width, Height: cfg.Camera.Height}
	srv := web.NewServer(cfg.Server.Listen, pipeline, openSource(size), size)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("shutting down", "signal", sig.String())
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// openSource opens real devices by index or path, and a synthetic
// device for the "sim" source so the daemon runs on machines with no
// camera plugged in.
func openSource(size web.FrameSize) web.OpenFunc {
	return func(source string) (capture.Device, error) {
		if source == "sim" {
			pattern := capture.TestPattern(size.Width, size.Height)
			return capture.NewMock(size.Width, size.Height, pattern), nil
		}
		return capture.Open(capture.ParseSource(source))
	}
}
