package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Display shows annotated frames to the user.
type Display interface {
	Show(frame *gocv.Mat)
	Close() error
}

// Window is a HighGUI window. It must be created and used on the thread
// that runs the session loop.
type Window struct {
	title string

	once sync.Once
	win  *gocv.Window
}

// NewWindow creates a lazily opened window; nothing appears until the first Show.
func NewWindow(title string) *Window {
	return &Window{title: title}
}

// Show draws frame and pumps the GUI event loop for 1 ms.
func (w *Window) Show(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	w.once.Do(func() { w.win = gocv.NewWindow(w.title) })
	w.win.IMShow(*frame)
	w.win.WaitKey(1)
}

func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	return w.win.Close()
}

// NopDisplay discards frames.
type NopDisplay struct{}

func (NopDisplay) Show(*gocv.Mat) {}
func (NopDisplay) Close() error   { return nil }
