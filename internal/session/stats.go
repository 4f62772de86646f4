package session

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// statsWindow is the number of recent frames the rolling figures cover.
const statsWindow = 120

// FrameStats summarizes recent frame timings.
type FrameStats struct {
	Samples int `json:"samples"`
	// MeanMs and StdDevMs describe the time spent processing a frame.
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	// FPS is derived from the spacing between frames.
	FPS float64 `json:"fps"`
}

// ring is a fixed-size window of the most recent values.
type ring struct {
	buf  []float64
	next int
	full bool
}

func newRing(size int) ring {
	return ring{buf: make([]float64, size)}
}

func (r *ring) add(v float64) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) values() []float64 {
	if r.full {
		return r.buf
	}
	return r.buf[:r.next]
}

type frameStats struct {
	durations ring
	intervals ring
	last      time.Time

	totalMs float64
	count   int
}

func newFrameStats(window int) *frameStats {
	return &frameStats{
		durations: newRing(window),
		intervals: newRing(window),
	}
}

// add records a frame that started at now and took elapsed to process.
func (f *frameStats) add(now time.Time, elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	f.durations.add(ms)
	f.totalMs += ms
	f.count++

	if !f.last.IsZero() && now.After(f.last) {
		f.intervals.add(float64(now.Sub(f.last)) / float64(time.Millisecond))
	}
	f.last = now
}

func (f *frameStats) snapshot() FrameStats {
	d := f.durations.values()
	if len(d) == 0 {
		return FrameStats{}
	}

	out := FrameStats{Samples: len(d)}
	if len(d) == 1 {
		out.MeanMs = d[0]
	} else {
		out.MeanMs, out.StdDevMs = stat.MeanStdDev(d, nil)
	}
	if iv := f.intervals.values(); len(iv) > 0 {
		if mean := stat.Mean(iv, nil); mean > 0 {
			out.FPS = 1000 / mean
		}
	}
	return out
}

// overallMeanMs is the mean processing time over the whole session.
func (f *frameStats) overallMeanMs() float64 {
	if f.count == 0 {
		return 0
	}
	return f.totalMs / float64(f.count)
}
