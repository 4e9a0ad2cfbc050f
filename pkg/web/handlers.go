package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/sourcebots/robotd/internal/log"
	"github.com/sourcebots/robotd/pkg/capture"
)

// OpenRequest asks the daemon to open a video source.
type OpenRequest struct {
	// Source is a device index ("1"), a path ("/dev/video0"), or
	// "sim". Empty selects the default device.
	Source string `json:"source"`
}

// CameraInfo describes one open camera.
type CameraInfo struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Open   bool   `json:"open"`
}

func (s *Server) handleOpen(c *fiber.Ctx) error {
	var req OpenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "malformed request body",
			})
		}
	}

	dev, err := s.open(req.Source)
	if err != nil {
		log.Warn("open camera failed", "source", req.Source, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	id := s.registry.Add(dev)
	s.srcMu.Lock()
	s.sources[id] = req.Source
	s.srcMu.Unlock()

	info, err := s.info(id)
	if err != nil {
		return unknownHandle(c, err)
	}

	log.Info("camera opened", "id", string(id), "source", req.Source)
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (s *Server) handleList(c *fiber.Ctx) error {
	infos := make([]CameraInfo, 0)
	for _, id := range s.registry.IDs() {
		info, err := s.info(id)
		if err != nil {
			// closed between IDs and the status probe
			continue
		}
		infos = append(infos, info)
	}
	return c.JSON(infos)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	id := capture.HandleID(c.Params("id"))
	info, err := s.info(id)
	if err != nil {
		return unknownHandle(c, err)
	}
	return c.JSON(info)
}

// handleSnapshot grabs one frame and delivers it as a binary PGM, the
// most direct container for raw grayscale bytes. Width and height
// query parameters override the configured defaults.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	id := capture.HandleID(c.Params("id"))

	// Bound the size before allocating: query parameters are untrusted
	// and width*height sizes the frame buffer.
	width := c.QueryInt("width", s.size.Width)
	height := c.QueryInt("height", s.size.Height)
	if width <= 0 || height <= 0 ||
		width > capture.MaxDimension || height > capture.MaxDimension {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid frame size %dx%d", width, height),
		})
	}

	buf := make([]byte, width*height)
	if err := s.registry.Grab(id, s.pipeline, buf, width, height); err != nil {
		return snapshotError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/x-portable-graymap")
	return c.Send(encodePGM(width, height, buf))
}

func (s *Server) handleClose(c *fiber.Ctx) error {
	id := capture.HandleID(c.Params("id"))
	if err := s.registry.Remove(id); err != nil {
		if errors.Is(err, capture.ErrUnknownHandle) {
			return unknownHandle(c, err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.srcMu.Lock()
	delete(s.sources, id)
	s.srcMu.Unlock()

	log.Info("camera closed", "id", string(id))
	return c.SendStatus(fiber.StatusNoContent)
}

// info probes the device through the registry's locked status accessor
// so it never races a grab in progress on the same device.
func (s *Server) info(id capture.HandleID) (CameraInfo, error) {
	w, h, open, err := s.registry.Status(id)
	if err != nil {
		return CameraInfo{}, err
	}

	s.srcMu.RLock()
	src := s.sources[id]
	s.srcMu.RUnlock()

	return CameraInfo{
		ID:     string(id),
		Source: src,
		Width:  w,
		Height: h,
		Open:   open,
	}, nil
}

func unknownHandle(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// snapshotError maps capture failures to status codes so callers can
// react without parsing diagnostic text.
func snapshotError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var negErr *capture.NegotiationError
	switch {
	case errors.Is(err, capture.ErrUnknownHandle):
		status = fiber.StatusNotFound
	case errors.Is(err, capture.ErrNotReady):
		status = fiber.StatusConflict
	case errors.As(err, &negErr):
		status = fiber.StatusBadGateway
	}
	log.Warn("snapshot failed", "error", err)
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// encodePGM wraps packed grayscale pixels in a binary PGM (P5) header.
func encodePGM(width, height int, pix []byte) []byte {
	header := fmt.Sprintf("P5\n%d %d\n255\n", width, height)
	out := make([]byte, 0, len(header)+len(pix))
	out = append(out, header...)
	return append(out, pix...)
}
