// Package actuator implements the pointer and volume sinks on top of the
// operating system.
package actuator

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/airpoint/internal/control"
)

// ErrNoScreen is returned when the screen size cannot be detected.
var ErrNoScreen = errors.New("screen size unavailable")

// ScreenSize returns the main display size in pixels.
func ScreenSize() (width, height int, err error) {
	width, height = robotgo.GetScreenSize()
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: got %dx%d", ErrNoScreen, width, height)
	}
	return width, height, nil
}

// Mouse drives the system pointer with robotgo.
type Mouse struct {
	mu     sync.Mutex
	scroll scrollAccumulator
}

// NewMouse creates a Mouse.
func NewMouse() *Mouse {
	return &Mouse{}
}

var _ control.Pointer = (*Mouse)(nil)

// Move places the cursor at the nearest whole pixel.
func (m *Mouse) Move(x, y float64) error {
	robotgo.Move(int(math.Round(x)), int(math.Round(y)))
	return nil
}

func (m *Mouse) Press(b control.Button) error {
	if err := robotgo.Toggle(string(b)); err != nil {
		return fmt.Errorf("press %s: %w", b, err)
	}
	return nil
}

func (m *Mouse) Release(b control.Button) error {
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return fmt.Errorf("release %s: %w", b, err)
	}
	return nil
}

// Scroll adds amount to the pending wheel movement and sends the whole
// notches that have built up. Positive amounts scroll up.
func (m *Mouse) Scroll(amount float64) error {
	m.mu.Lock()
	notches := m.scroll.add(amount)
	m.mu.Unlock()

	switch {
	case notches > 0:
		robotgo.ScrollDir(notches, "up")
	case notches < 0:
		robotgo.ScrollDir(-notches, "down")
	}
	return nil
}
