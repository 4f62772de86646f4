package session

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/gesture"
	"github.com/ayusman/airpoint/internal/mapping"
	"github.com/ayusman/airpoint/internal/store"
)

// Report describes what happened on one frame.
type Report struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Enabled bool      `json:"enabled"`
	Idle    bool      `json:"idle"`
	// Detected is false when hand detection was skipped for an idle frame.
	Detected bool              `json:"detected"`
	Mode     control.Mode      `json:"mode"`
	Hand     *gesture.Snapshot `json:"hand,omitempty"`
	Facts    *gesture.Facts    `json:"facts,omitempty"`
	Cursor   *mapping.Point    `json:"cursor,omitempty"`
	Events   []control.Event   `json:"events,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Observer receives every processed frame. It is called on the session
// goroutine and must not block; frame is only valid during the call.
type Observer interface {
	Publish(rep Report, frame *gocv.Mat)
}

// Counters accumulate over the whole session.
type Counters struct {
	Frames        int `json:"frames"`
	HandFrames    int `json:"hand_frames"`
	PausedFrames  int `json:"paused_frames"`
	Presses       int `json:"presses"`
	Releases      int `json:"releases"`
	Scrolls       int `json:"scrolls"`
	VolumeChanges int `json:"volume_changes"`
	Errors        int `json:"errors"`
}

func (c *Counters) count(events []control.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case control.EventPress:
			c.Presses++
		case control.EventRelease:
			c.Releases++
		case control.EventScroll:
			c.Scrolls++
		case control.EventVolume:
			c.VolumeChanges++
		}
	}
}

func (c Counters) apply(rec *store.SessionRecord) {
	rec.Frames = c.Frames
	rec.HandFrames = c.HandFrames
	rec.PausedFrames = c.PausedFrames
	rec.Presses = c.Presses
	rec.Releases = c.Releases
	rec.Scrolls = c.Scrolls
	rec.VolumeChanges = c.VolumeChanges
	rec.Errors = c.Errors
}

// Status is a point-in-time view of the session for the server and tray.
type Status struct {
	Running       bool                 `json:"running"`
	Enabled       bool                 `json:"enabled"`
	Idle          bool                 `json:"idle"`
	FPS           int                  `json:"target_fps"`
	Mode          control.Mode         `json:"mode"`
	Hand          bool                 `json:"hand"`
	Left          bool                 `json:"left_pressed"`
	Right         bool                 `json:"right_pressed"`
	VolumeEnabled bool                 `json:"volume_enabled"`
	VolumeRange   *control.VolumeRange `json:"volume_range,omitempty"`
	SessionID     string               `json:"session_id,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	Counters      Counters             `json:"counters"`
	Stats         FrameStats           `json:"stats"`
	LastError     string               `json:"last_error,omitempty"`
}
