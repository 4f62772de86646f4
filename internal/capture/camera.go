// Package capture reads webcam frames with GoCV and shows them in a window.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrFrameRead is returned when the device yields no frame.
	ErrFrameRead = errors.New("failed to read frame")
)

// Camera is a frame source. ReadFrame returns a Mat the caller must Close.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	// Size is the requested capture resolution.
	Size() image.Point
}

// Config selects the device and requested capture format.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

type cameraImpl struct {
	cfg Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera creates a Camera for a local device. Zero sizes and rates fall
// back to 640x480 at 30 fps.
func NewCamera(cfg Config) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{cfg: cfg}
}

func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.cfg.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))

	c.capture = vc
	return nil
}

func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame grabs one frame. Devices that ignore the requested resolution
// get their frames resized so downstream pixel math sees the configured size.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrFrameRead
	}

	if mat.Cols() != c.cfg.Width || mat.Rows() != c.cfg.Height {
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(c.cfg.Width, c.cfg.Height), 0, 0, gocv.InterpolationLinear)
		mat.Close()
		return &resized, nil
	}
	return &mat, nil
}

// SetFPS asks the device for a new frame rate. Non-positive values are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.FPS
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

func (c *cameraImpl) Size() image.Point {
	return image.Pt(c.cfg.Width, c.cfg.Height)
}
