package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// webcam adapts a gocv VideoCapture to the Device interface.
type webcam struct {
	cap *gocv.VideoCapture
	src Source
}

// Open opens the video source behind src. The caller owns the returned
// Device and must Close it exactly once. A driver that cannot open the
// source yields an *OpenError.
func Open(src Source) (Device, error) {
	var (
		cam *gocv.VideoCapture
		err error
	)
	if p, ok := src.Path(); ok {
		cam, err = gocv.OpenVideoCapture(p)
	} else {
		cam, err = gocv.OpenVideoCapture(src.Index())
	}
	if err != nil {
		return nil, &OpenError{Source: src, Err: err}
	}
	if !cam.IsOpened() {
		_ = cam.Close()
		return nil, &OpenError{Source: src, Err: errors.New("driver reported source closed")}
	}
	return &webcam{cap: cam, src: src}, nil
}

func (d *webcam) Negotiate(width, height int, code FourCC) error {
	// Set never reports failure; the read-back in Resolution is the
	// only way to learn what the driver actually configured.
	d.cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	d.cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	d.cap.Set(gocv.VideoCaptureFOURCC, code.Code())
	return nil
}

func (d *webcam) Resolution() (int, int) {
	return int(d.cap.Get(gocv.VideoCaptureFrameWidth)),
		int(d.cap.Get(gocv.VideoCaptureFrameHeight))
}

func (d *webcam) IsOpened() bool {
	return d.cap.IsOpened()
}

func (d *webcam) Read() (Image, error) {
	mat := gocv.NewMat()
	if ok := d.cap.Read(&mat); !ok {
		_ = mat.Close()
		return nil, fmt.Errorf("capture: read frame from %s failed", d.src)
	}
	if mat.Empty() {
		_ = mat.Close()
		return nil, fmt.Errorf("capture: empty frame from %s", d.src)
	}
	return &matImage{mat: mat}, nil
}

func (d *webcam) Close() error {
	return d.cap.Close()
}

// matImage adapts a gocv Mat to the Image interface.
type matImage struct {
	mat gocv.Mat
}

func (m *matImage) Width() int {
	return m.mat.Cols()
}

func (m *matImage) Height() int {
	return m.mat.Rows()
}

func (m *matImage) Continuous() bool {
	return m.mat.IsContinuous()
}

func (m *matImage) Bytes() ([]byte, error) {
	return m.mat.ToBytes()
}

func (m *matImage) Grayscale() (Image, error) {
	dst := gocv.NewMat()
	gocv.CvtColor(m.mat, &dst, gocv.ColorBGRToGray)
	if dst.Empty() {
		_ = dst.Close()
		return nil, errors.New("capture: grayscale conversion produced an empty frame")
	}
	return &matImage{mat: dst}, nil
}

func (m *matImage) Median(ksize int) (Image, error) {
	dst := gocv.NewMat()
	gocv.MedianBlur(m.mat, &dst, ksize)
	if dst.Empty() {
		_ = dst.Close()
		return nil, errors.New("capture: median filter produced an empty frame")
	}
	return &matImage{mat: dst}, nil
}

func (m *matImage) Close() error {
	return m.mat.Close()
}
