// Package web exposes the capture service over HTTP. It is the host
// boundary the capture core treats as an external collaborator: it
// allocates frame buffers, maps failures to status codes, and refers
// to devices only by registry handles.
package web

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sourcebots/robotd/internal/log"
	"github.com/sourcebots/robotd/pkg/capture"
)

// OpenFunc opens a device for a raw source string. The daemon installs
// one that also understands the "sim" source; tests install mocks.
type OpenFunc func(source string) (capture.Device, error)

// FrameSize is the capture size applied when a snapshot request does
// not override it.
type FrameSize struct {
	Width  int
	Height int
}

// Server is the robotd HTTP server.
type Server struct {
	app      *fiber.App
	addr     string
	registry *capture.Registry
	pipeline *capture.Pipeline
	open     OpenFunc
	size     FrameSize

	// source strings by handle, for status reporting
	srcMu   sync.RWMutex
	sources map[capture.HandleID]string
}

// NewServer builds the server around a pipeline and an opener.
func NewServer(addr string, pipeline *capture.Pipeline, open OpenFunc, size FrameSize) *Server {
	s := &Server{
		addr:     addr,
		registry: capture.NewRegistry(),
		pipeline: pipeline,
		open:     open,
		size:     size,
		sources:  make(map[capture.HandleID]string),
	}

	app := fiber.New(fiber.Config{
		AppName:               "robotd",
		DisableStartupMessage: true,
	})

	// A handler panic must not take the daemon and its open devices down.
	app.Use(recover.New())

	cameras := app.Group("/cameras")
	cameras.Post("/", s.handleOpen)
	cameras.Get("/", s.handleList)
	cameras.Get("/:id", s.handleStatus)
	cameras.Get("/:id/snapshot", s.handleSnapshot)
	cameras.Delete("/:id", s.handleClose)

	s.app = app
	return s
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	log.Info("robotd listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the listener and closes every open device.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if cerr := s.registry.Close(); err == nil {
		err = cerr
	}
	return err
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}
