// Package gesture turns one frame's hand landmarks into the facts the pointer
// engine acts on: which fingers are extended and whether the hand is a fist.
package gesture

import (
	"errors"
	"fmt"
	"image"

	"github.com/ayusman/airpoint/internal/detector"
)

var (
	// ErrNoHand is returned when a classifier is given an empty snapshot.
	ErrNoHand = errors.New("no hand in snapshot")
	// ErrMalformedHand is returned for snapshots that are neither empty nor complete.
	ErrMalformedHand = errors.New("malformed hand snapshot")
)

// Landmark is one keypoint in camera pixel space.
type Landmark struct {
	ID int     `json:"id"`
	X  int     `json:"x"`
	Y  int     `json:"y"`
	Z  float64 `json:"z"`
}

// Point returns the landmark's pixel position.
func (l Landmark) Point() image.Point {
	return image.Pt(l.X, l.Y)
}

// Snapshot is one detected hand in one frame, in camera pixels.
// A snapshot with no landmarks means no hand was detected.
type Snapshot struct {
	Landmarks []Landmark `json:"landmarks"`
}

// NewSnapshot converts normalized detector output into pixel space for a
// frame of the given size.
func NewSnapshot(hand detector.HandLandmarks, width, height int) Snapshot {
	lms := make([]Landmark, detector.NumLandmarks)
	for i := range lms {
		x, y := hand.Pixel(i, width, height)
		lms[i] = Landmark{ID: i, X: x, Y: y, Z: hand.Points[i].Z}
	}
	return Snapshot{Landmarks: lms}
}

// Empty reports whether the snapshot carries no hand.
func (s Snapshot) Empty() bool {
	return len(s.Landmarks) == 0
}

// Validate returns ErrNoHand for an empty snapshot and ErrMalformedHand for
// one without exactly 21 landmarks.
func (s Snapshot) Validate() error {
	switch n := len(s.Landmarks); {
	case n == 0:
		return ErrNoHand
	case n != detector.NumLandmarks:
		return fmt.Errorf("%w: %d landmarks", ErrMalformedHand, n)
	}
	return nil
}

// At returns the landmark with the given anatomical index. The snapshot must
// be valid.
func (s Snapshot) At(id int) Landmark {
	return s.Landmarks[id]
}

// Point returns the pixel position of landmark id. The snapshot must be valid.
func (s Snapshot) Point(id int) image.Point {
	return s.Landmarks[id].Point()
}
