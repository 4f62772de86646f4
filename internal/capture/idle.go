package capture

import "time"

// IdleGate lowers the frame rate when nothing happens in front of the camera.
// After timeout without motion or a hand it switches to idle; any motion or
// hand switches back to active.
type IdleGate struct {
	timeout   time.Duration
	idleFPS   int
	activeFPS int

	idle         bool
	lastActivity time.Time
}

// NewIdleGate creates a gate that starts active at now.
func NewIdleGate(timeout time.Duration, idleFPS, activeFPS int, now time.Time) *IdleGate {
	return &IdleGate{
		timeout:      timeout,
		idleFPS:      idleFPS,
		activeFPS:    activeFPS,
		lastActivity: now,
	}
}

// Update records one frame's activity. It returns the frame rate to use and
// whether it changed.
func (g *IdleGate) Update(now time.Time, motion, hand bool) (fps int, changed bool) {
	if motion || hand {
		g.lastActivity = now
		if g.idle {
			g.idle = false
			return g.activeFPS, true
		}
		return g.activeFPS, false
	}

	if !g.idle && now.Sub(g.lastActivity) >= g.timeout {
		g.idle = true
		return g.idleFPS, true
	}
	return g.FPS(), false
}

// ShouldDetect reports whether a frame is worth running hand detection on.
// While idle only frames with motion are.
func (g *IdleGate) ShouldDetect(motion bool) bool {
	return !g.idle || motion
}

func (g *IdleGate) Idle() bool {
	return g.idle
}

// FPS is the frame rate for the current state.
func (g *IdleGate) FPS() int {
	if g.idle {
		return g.idleFPS
	}
	return g.activeFPS
}
