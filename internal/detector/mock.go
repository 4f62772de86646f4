package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// Frame size the preset hands below are laid out for.
const (
	PresetFrameWidth  = 640
	PresetFrameHeight = 480
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Queue appends per-frame results. Queued results are returned in order
// before falling back to the hands set with SetHands.
func (m *MockDetector) Queue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// presetHand converts pixel positions on a PresetFrameWidth x PresetFrameHeight
// frame into normalized landmarks.
func presetHand(px [NumLandmarks][2]float64) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}
	for i, p := range px {
		h.Points[i] = Point3D{X: p[0] / PresetFrameWidth, Y: p[1] / PresetFrameHeight}
	}
	return h
}

// curledFingers are tip/joint positions that sit close to the wrist at (320, 440).
var curledFingers = map[int][2]float64{
	IndexMCP: {350, 360}, IndexPIP: {356, 340}, IndexDIP: {352, 355}, IndexTip: {348, 372},
	MiddleMCP: {322, 356}, MiddlePIP: {326, 336}, MiddleDIP: {324, 352}, MiddleTip: {322, 368},
	RingMCP: {298, 362}, RingPIP: {300, 344}, RingDIP: {298, 358}, RingTip: {298, 374},
	PinkyMCP: {276, 372}, PinkyPIP: {276, 358}, PinkyDIP: {276, 370}, PinkyTip: {278, 384},
}

// extendedFingers are tip/joint positions reaching well above the wrist.
var extendedFingers = map[int][2]float64{
	IndexMCP: {350, 340}, IndexPIP: {356, 290}, IndexDIP: {358, 240}, IndexTip: {360, 200},
	MiddleMCP: {320, 335}, MiddlePIP: {320, 280}, MiddleDIP: {320, 225}, MiddleTip: {320, 180},
	RingMCP: {290, 340}, RingPIP: {286, 290}, RingDIP: {282, 240}, RingTip: {280, 200},
	PinkyMCP: {265, 350}, PinkyPIP: {256, 310}, PinkyDIP: {248, 270}, PinkyTip: {240, 240},
}

var fingerJoints = map[int][4]int{
	IndexTip:  {IndexMCP, IndexPIP, IndexDIP, IndexTip},
	MiddleTip: {MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	RingTip:   {RingMCP, RingPIP, RingDIP, RingTip},
	PinkyTip:  {PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// buildPreset lays out a right hand with its wrist at (320, 440) and the
// given fingertips extended; every other finger is curled.
func buildPreset(extended ...int) HandLandmarks {
	var px [NumLandmarks][2]float64
	px[Wrist] = [2]float64{320, 440}
	px[ThumbCMC] = [2]float64{360, 420}
	px[ThumbMCP] = [2]float64{390, 395}
	px[ThumbIP] = [2]float64{410, 365}
	px[ThumbTip] = [2]float64{425, 335}

	for _, joints := range fingerJoints {
		for _, j := range joints {
			px[j] = curledFingers[j]
		}
	}
	for _, tip := range extended {
		for _, j := range fingerJoints[tip] {
			px[j] = extendedFingers[j]
		}
	}

	return presetHand(px)
}

// OpenPalmLandmarks returns a hand with all four fingers extended and the
// thumb held away from the index finger.
func OpenPalmLandmarks() HandLandmarks {
	return buildPreset(IndexTip, MiddleTip, RingTip, PinkyTip)
}

// FistLandmarks returns a closed hand: every fingertip is near the wrist.
func FistLandmarks() HandLandmarks {
	return buildPreset()
}

// PointingLandmarks returns a hand with only the index finger extended,
// pointing up.
func PointingLandmarks() HandLandmarks {
	return buildPreset(IndexTip)
}

// TwoFingerLandmarks returns a hand with index and middle fingers extended.
func TwoFingerLandmarks() HandLandmarks {
	return buildPreset(IndexTip, MiddleTip)
}

// PinchLandmarks returns an open palm whose thumb tip touches the index tip.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	h.Points[ThumbTip] = Point3D{
		X: h.Points[IndexTip].X + 5.0/PresetFrameWidth,
		Y: h.Points[IndexTip].Y + 5.0/PresetFrameHeight,
	}
	return h
}
