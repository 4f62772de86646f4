// Package mapping converts camera-space hand positions into screen coordinates.
//
// A band of Padding pixels at each edge of the camera frame is not mapped 1:1.
// Positions are pushed away from the frame center in proportion to their
// distance from it, so a hand that reaches the padding boundary already drives
// the cursor to the screen edge. Results are not clamped; the OS clamps the
// pointer.
package mapping

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidGeometry is returned for camera, screen or padding values that
// cannot produce a mapping.
var ErrInvalidGeometry = errors.New("invalid mapping geometry")

// Point is a screen position. It may lie outside the screen.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config is the immutable per-session geometry.
type Config struct {
	CameraWidth  int
	CameraHeight int
	ScreenWidth  int
	ScreenHeight int
	Padding      int

	centerX, centerY         float64
	frameRatioX, frameRatioY float64
	scaleX, scaleY           float64
}

// New validates the geometry and derives the mapping ratios.
func New(cameraWidth, cameraHeight, screenWidth, screenHeight, padding int) (Config, error) {
	switch {
	case cameraWidth <= 0 || cameraHeight <= 0:
		return Config{}, fmt.Errorf("%w: camera %dx%d", ErrInvalidGeometry, cameraWidth, cameraHeight)
	case screenWidth <= 0 || screenHeight <= 0:
		return Config{}, fmt.Errorf("%w: screen %dx%d", ErrInvalidGeometry, screenWidth, screenHeight)
	case cameraWidth > screenWidth || cameraHeight > screenHeight:
		return Config{}, fmt.Errorf("%w: camera %dx%d exceeds screen %dx%d",
			ErrInvalidGeometry, cameraWidth, cameraHeight, screenWidth, screenHeight)
	case padding <= 0:
		return Config{}, fmt.Errorf("%w: padding %d", ErrInvalidGeometry, padding)
	}

	c := Config{
		CameraWidth:  cameraWidth,
		CameraHeight: cameraHeight,
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
		Padding:      padding,
		centerX:      float64(cameraWidth) / 2,
		centerY:      float64(cameraHeight) / 2,
		scaleX:       float64(screenWidth) / float64(cameraWidth),
		scaleY:       float64(screenHeight) / float64(cameraHeight),
	}
	c.frameRatioX = c.centerX / float64(padding)
	c.frameRatioY = c.centerY / float64(padding)
	return c, nil
}

// FrameRatio returns the center-to-padding ratio on each axis.
func (c Config) FrameRatio() (x, y float64) {
	return c.frameRatioX, c.frameRatioY
}

// Scale returns the screen-to-camera proportion on each axis.
func (c Config) Scale() (x, y float64) {
	return c.scaleX, c.scaleY
}

// Map converts a camera pixel position to screen coordinates. The X axis is
// mirrored so moving the hand right moves the cursor right in front of the
// camera.
func (c Config) Map(ref image.Point) Point {
	refX, refY := float64(ref.X), float64(ref.Y)

	adjustX := (c.centerX - refX) / c.frameRatioX
	adjustY := (c.centerY - refY) / c.frameRatioY

	return Point{
		X: float64(c.ScreenWidth) - (refX-adjustX)*c.scaleX,
		Y: (refY - adjustY) * c.scaleY,
	}
}
