// Package control decides, frame by frame, which interaction a hand is
// performing and drives the pointer and volume sinks accordingly.
package control

import (
	"errors"
	"image"

	"github.com/ayusman/airpoint/internal/detector"
	"github.com/ayusman/airpoint/internal/gesture"
	"github.com/ayusman/airpoint/internal/mapping"
)

// ErrInvalidVolumeRange is returned when a volume endpoint reports a range
// that cannot drive the level formula (its minimum must be below zero).
var ErrInvalidVolumeRange = errors.New("invalid volume range")

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Mode is the interaction selected for a frame.
type Mode string

const (
	// ModeNone means no hand was processed this frame.
	ModeNone    Mode = "none"
	ModePaused  Mode = "paused"
	ModeScroll  Mode = "scroll"
	ModeVolume  Mode = "volume"
	ModePointer Mode = "pointer"
)

// Pointer is the OS pointer injection primitive.
type Pointer interface {
	Move(x, y float64) error
	Press(b Button) error
	Release(b Button) error
	// Scroll turns the wheel; positive amounts scroll up.
	Scroll(amount float64) error
}

// VolumeRange is the master volume level range reported by the endpoint,
// in its own units (dB-like, 0 is maximum).
type VolumeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Volume is the OS audio endpoint.
type Volume interface {
	Range() (VolumeRange, error)
	SetLevel(level float64) error
}

// EventKind names an action sent to a sink.
type EventKind string

const (
	EventMove    EventKind = "move"
	EventPress   EventKind = "press"
	EventRelease EventKind = "release"
	EventScroll  EventKind = "scroll"
	EventVolume  EventKind = "volume"
)

// Event is one action that a sink accepted.
type Event struct {
	Kind   EventKind `json:"kind"`
	Button Button    `json:"button,omitempty"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	Amount float64   `json:"amount,omitempty"`
}

// Result is what the engine did with one frame.
type Result struct {
	Mode   Mode    `json:"mode"`
	Events []Event `json:"events,omitempty"`
}

// Input is everything the engine needs from one frame.
type Input struct {
	Facts    gesture.Facts
	Wrist    image.Point
	Thumb    image.Point
	Index    image.Point
	Middle   image.Point
	IndexMCP image.Point
	Cursor   mapping.Point
}

// NewInput picks the engine's landmarks out of a valid snapshot.
func NewInput(s gesture.Snapshot, facts gesture.Facts, cursor mapping.Point) Input {
	return Input{
		Facts:    facts,
		Wrist:    s.Point(detector.Wrist),
		Thumb:    s.Point(detector.ThumbTip),
		Index:    s.Point(detector.IndexTip),
		Middle:   s.Point(detector.MiddleTip),
		IndexMCP: s.Point(detector.IndexMCP),
		Cursor:   cursor,
	}
}
