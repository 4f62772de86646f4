package capture

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoMoreFrames is returned by a non-looping MockCamera at the end of its frames.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera plays back a fixed list of frames. With no frames it produces
// solid frames of its configured size forever.
type MockCamera struct {
	size   image.Point
	frames []*gocv.Mat
	loop   bool

	mu      sync.Mutex
	index   int
	reads   int
	fps     int
	running bool
	readErr error
}

// NewMockCamera plays frames, starting over at the end when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	size := image.Pt(DefaultWidth, DefaultHeight)
	if len(frames) > 0 && !frames[0].Empty() {
		size = image.Pt(frames[0].Cols(), frames[0].Rows())
	}
	return &MockCamera{size: size, frames: frames, loop: loop, fps: DefaultFPS}
}

// NewBlankCamera produces black BGR frames of the given size.
func NewBlankCamera(width, height int) *MockCamera {
	return &MockCamera{size: image.Pt(width, height), fps: DefaultFPS}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.readErr != nil {
		return nil, c.readErr
	}
	c.reads++

	if len(c.frames) == 0 {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), c.size.Y, c.size.X, gocv.MatTypeCV8UC3)
		return &mat, nil
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoMoreFrames
		}
		c.index = 0
	}
	frame := c.frames[c.index].Clone()
	c.index++
	return &frame, nil
}

// SetReadError makes every ReadFrame fail with err until cleared with nil.
func (c *MockCamera) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// Reads counts successful ReadFrame calls.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MockCamera) Size() image.Point {
	return c.size
}

// NewSolidFrame returns a BGR frame filled with col. The caller closes it.
func NewSolidFrame(width, height int, col color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(col.B), float64(col.G), float64(col.R), 0),
		height, width, gocv.MatTypeCV8UC3)
}
