package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Only the first hand
	// drives the pointer, so the default is 1.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath points at the landmark service script. Empty means search
	// the usual install locations.
	ScriptPath string

	// PythonPath is the interpreter used to run the service. Empty means a
	// virtual environment next to the binary, then python3.
	PythonPath string
}

// DefaultConfig returns a Config tuned for single-hand pointer control.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.9,
		MinTrackingConf: 0.5,
	}
}
