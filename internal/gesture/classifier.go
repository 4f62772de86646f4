package gesture

import "github.com/ayusman/airpoint/internal/detector"

// Threshold dividers applied to the camera height. A fist is a tighter
// configuration than an extended finger, hence the larger divider.
const (
	FingerUpDivider = 2.7
	FistDivider     = 4.5
)

// Fingertips are the non-thumb tips checked by the classifier, in the order
// they are reported.
var Fingertips = [4]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}

// Facts are the per-frame gesture properties of one hand.
type Facts struct {
	FingersUp []int `json:"fingers_up"`
	Fist      bool  `json:"fist"`
}

// Only reports whether exactly the given fingertips are up, in order.
func (f Facts) Only(tips ...int) bool {
	if len(f.FingersUp) != len(tips) {
		return false
	}
	for i, tip := range tips {
		if f.FingersUp[i] != tip {
			return false
		}
	}
	return true
}

// Classifier holds the pixel thresholds for one camera resolution.
type Classifier struct {
	FingerUpThreshold int
	FistThreshold     int
}

// NewClassifier derives thresholds from the camera frame height so detection
// scales with resolution.
func NewClassifier(cameraHeight int) *Classifier {
	return &Classifier{
		FingerUpThreshold: int(float64(cameraHeight) / FingerUpDivider),
		FistThreshold:     int(float64(cameraHeight) / FistDivider),
	}
}

// Classify computes the facts for one hand.
func (c *Classifier) Classify(s Snapshot) (Facts, error) {
	up, err := FingersUp(s, c.FingerUpThreshold)
	if err != nil {
		return Facts{}, err
	}
	fist, err := IsFist(s, c.FistThreshold)
	if err != nil {
		return Facts{}, err
	}
	return Facts{FingersUp: up, Fist: fist}, nil
}

// FingersUp returns the fingertips whose distance from the wrist reaches
// threshold on either axis. A distance equal to threshold counts as up.
func FingersUp(s Snapshot, threshold int) ([]int, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	wrist := s.At(detector.Wrist)
	up := make([]int, 0, len(Fingertips))
	for _, tip := range Fingertips {
		lm := s.At(tip)
		if abs(wrist.Y-lm.Y) >= threshold || abs(wrist.X-lm.X) >= threshold {
			up = append(up, tip)
		}
	}
	return up, nil
}

// IsFist reports whether every fingertip lies strictly within threshold of
// the wrist on both axes.
func IsFist(s Snapshot, threshold int) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}

	wrist := s.At(detector.Wrist)
	for _, tip := range Fingertips {
		lm := s.At(tip)
		if abs(wrist.X-lm.X) >= threshold || abs(wrist.Y-lm.Y) >= threshold {
			return false, nil
		}
	}
	return true, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
