package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// motionBlurKernel is the Gaussian kernel applied before differencing.
	motionBlurKernel = 21
	// motionPixelDelta is the per-pixel intensity change that counts as moved.
	motionPixelDelta = 25
)

// Motion is the result of comparing a frame with the previous one.
type Motion struct {
	Detected bool
	// Changed is the percentage of pixels that moved, 0..100.
	Changed float64
}

// MotionDetector compares consecutive frames after grayscale conversion and
// blurring. A frame has motion when more than threshold percent of its
// pixels changed.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector; threshold is a percentage (1.0 = 1%).
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Observe compares frame with the last observed frame and keeps it as the
// new reference. The first frame never reports motion.
func (m *MotionDetector) Observe(frame *gocv.Mat) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(motionBlurKernel, motionBlurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return Motion{}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, motionPixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return Motion{Detected: changed > m.threshold, Changed: changed}
}

// Reset forgets the reference frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// SetThreshold changes the threshold. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}
