// Package detector provides the hand landmark source used by the pointer session.
package detector

import (
	"errors"
	"fmt"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrMalformedHand is returned when the landmark service reports a hand
// without the full set of 21 keypoints.
var ErrMalformedHand = errors.New("malformed hand landmarks")

// names maps landmark indices to the short names used in logs and reports.
var names = [NumLandmarks]string{
	"wrist",
	"thumb-cmc", "thumb-mcp", "thumb-ip", "thumb",
	"index-mcp", "index-pip", "index-dip", "index",
	"middle-mcp", "middle-pip", "middle-dip", "middle",
	"ring-mcp", "ring-pip", "ring-dip", "ring",
	"pinky-mcp", "pinky-pip", "pinky-dip", "pinky",
}

// Name returns the keypoint name for a landmark index, or "" if out of range.
func Name(id int) string {
	if id < 0 || id >= NumLandmarks {
		return ""
	}
	return names[id]
}

// Connections lists the landmark pairs joined when drawing a hand skeleton.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP},
	{PinkyDIP, PinkyTip},
}

// Point3D is a landmark position. X and Y are normalized to [0,1] of the
// frame size; Z is the relative depth reported by the model, unscaled.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Pixel converts landmark id to integer camera pixel coordinates for a frame
// of the given size. Fractions are truncated toward zero.
func (h *HandLandmarks) Pixel(id, width, height int) (x, y int) {
	p := h.Points[id]
	return int(p.X * float64(width)), int(p.Y * float64(height))
}

// handFromPoints builds a HandLandmarks from a raw point list, rejecting lists
// that do not carry exactly NumLandmarks entries.
func handFromPoints(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d points, want %d", ErrMalformedHand, len(points), NumLandmarks)
	}

	h := HandLandmarks{
		Handedness: handedness,
		Score:      score,
	}
	copy(h.Points[:], points)
	return h, nil
}
