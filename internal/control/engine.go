package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/airpoint/internal/detector"
)

// Click and scroll tuning. Click distances are fractions of the camera height.
const (
	LeftClickDivider  = 18.0
	RightClickDivider = 5.0
	MaxScrollOffset   = 200
	ScrollRate        = 0.005
	ReleaseCooldown   = 200 * time.Millisecond
)

// Config holds the engine thresholds for one session.
type Config struct {
	// LeftClickDistance is the thumb-to-index closeness that holds the left button.
	LeftClickDistance float64
	// RightClickDistance is the wrist-to-middle closeness that holds the right button.
	RightClickDistance float64
	ScreenWidth        int
	Cooldown           time.Duration
}

// DefaultConfig derives thresholds from the camera height.
func DefaultConfig(cameraHeight, screenWidth int) Config {
	return Config{
		LeftClickDistance:  float64(cameraHeight) / LeftClickDivider,
		RightClickDistance: float64(cameraHeight) / RightClickDivider,
		ScreenWidth:        screenWidth,
		Cooldown:           ReleaseCooldown,
	}
}

// Engine is the per-frame interaction state machine. It keeps no state of
// its own; cross-frame memory lives in the State passed to Step.
type Engine struct {
	cfg         Config
	pointer     Pointer
	volume      Volume
	volumeRange VolumeRange
}

// NewEngine creates an engine driving pointer. Volume mode stays off until
// EnableVolume is called.
func NewEngine(cfg Config, pointer Pointer) *Engine {
	return &Engine{cfg: cfg, pointer: pointer}
}

// EnableVolume turns on volume mode using the range queried from v.
func (e *Engine) EnableVolume(v Volume, r VolumeRange) error {
	if r.Min >= 0 || r.Max < r.Min {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidVolumeRange, r.Min, r.Max)
	}
	e.volume = v
	e.volumeRange = r
	return nil
}

// VolumeRange returns the active range and whether volume mode is enabled.
func (e *Engine) VolumeRange() (VolumeRange, bool) {
	return e.volumeRange, e.volume != nil
}

// Config returns the engine thresholds.
func (e *Engine) Config() Config {
	return e.cfg
}

// Step evaluates one frame. Modes are checked in priority order: a fist
// pauses everything, index alone scrolls, index and middle set the volume,
// and anything else clicks and moves the pointer.
//
// A fist does not release held buttons; they stay down until the hand opens
// and the distances exceed the thresholds again.
func (e *Engine) Step(st *State, in Input, now time.Time) (Result, error) {
	switch {
	case in.Facts.Fist:
		return Result{Mode: ModePaused}, nil
	case in.Facts.Only(detector.IndexTip):
		return e.scroll(in)
	case e.volume != nil && in.Facts.Only(detector.IndexTip, detector.MiddleTip):
		return e.adjustVolume(in)
	}
	return e.point(st, in, now)
}

// ScrollDelta converts the index tip's height over its base joint into a
// wheel amount. Pointing up (tip above the joint) scrolls up.
func ScrollDelta(tipY, baseY int) float64 {
	offset := tipY - baseY
	if offset < 0 {
		offset = -offset
	}
	if offset > MaxScrollOffset {
		offset = MaxScrollOffset
	}

	rate := ScrollRate * float64(offset)
	switch {
	case tipY > baseY:
		return -rate
	case tipY < baseY:
		return rate
	}
	return 0
}

func (e *Engine) scroll(in Input) (Result, error) {
	res := Result{Mode: ModeScroll}

	delta := ScrollDelta(in.Index.Y, in.IndexMCP.Y)
	if delta == 0 {
		return res, nil
	}
	if err := e.pointer.Scroll(delta); err != nil {
		return res, fmt.Errorf("scroll: %w", err)
	}
	res.Events = append(res.Events, Event{Kind: EventScroll, Amount: delta})
	return res, nil
}

// VolumeLevel maps a horizontal cursor position to a volume level: the left
// screen edge is the range minimum and the right edge is 0. ok is false for
// levels above 0, which are skipped. Levels below the minimum pass through.
func (e *Engine) VolumeLevel(cursorX float64) (level float64, ok bool) {
	proportion := float64(e.cfg.ScreenWidth) / e.volumeRange.Min
	level = (float64(e.cfg.ScreenWidth) - cursorX) / proportion
	return level, level <= 0
}

func (e *Engine) adjustVolume(in Input) (Result, error) {
	res := Result{Mode: ModeVolume}

	level, ok := e.VolumeLevel(in.Cursor.X)
	if !ok {
		return res, nil
	}
	if err := e.volume.SetLevel(level); err != nil {
		return res, fmt.Errorf("set volume: %w", err)
	}
	res.Events = append(res.Events, Event{Kind: EventVolume, Amount: level})
	return res, nil
}

func (e *Engine) point(st *State, in Input, now time.Time) (Result, error) {
	res := Result{Mode: ModePointer}
	var errs []error

	checks := []struct {
		button Button
		dx, dy int
		limit  float64
	}{
		{ButtonRight, absInt(in.Wrist.X - in.Middle.X), absInt(in.Wrist.Y - in.Middle.Y), e.cfg.RightClickDistance},
		{ButtonLeft, absInt(in.Thumb.X - in.Index.X), absInt(in.Thumb.Y - in.Index.Y), e.cfg.LeftClickDistance},
	}
	for _, c := range checks {
		ev, err := e.debounce(st.Button(c.button), c.button, c.dx, c.dy, c.limit, now)
		if err != nil {
			errs = append(errs, err)
		}
		if ev != nil {
			res.Events = append(res.Events, *ev)
		}
	}

	if err := e.pointer.Move(in.Cursor.X, in.Cursor.Y); err != nil {
		errs = append(errs, fmt.Errorf("move: %w", err))
	} else {
		res.Events = append(res.Events, Event{Kind: EventMove, X: in.Cursor.X, Y: in.Cursor.Y})
	}

	return res, errors.Join(errs...)
}

// debounce presses b while both distances are within limit and releases it
// once either exceeds it, then ignores b until the cooldown passes. The
// state only changes when the sink call succeeds.
func (e *Engine) debounce(bs *ButtonState, b Button, dx, dy int, limit float64, now time.Time) (*Event, error) {
	if bs.Cooling(now) {
		return nil, nil
	}

	if float64(dy) <= limit && float64(dx) <= limit {
		if bs.Pressed {
			return nil, nil
		}
		if err := e.pointer.Press(b); err != nil {
			return nil, fmt.Errorf("press %s: %w", b, err)
		}
		bs.Pressed = true
		return &Event{Kind: EventPress, Button: b}, nil
	}

	if !bs.Pressed {
		return nil, nil
	}
	if err := e.pointer.Release(b); err != nil {
		return nil, fmt.Errorf("release %s: %w", b, err)
	}
	bs.Pressed = false
	bs.CooldownUntil = now.Add(e.cfg.Cooldown)
	return &Event{Kind: EventRelease, Button: b}, nil
}

// ReleaseAll lets go of every held button, e.g. when the session ends.
func (e *Engine) ReleaseAll(st *State) ([]Event, error) {
	var events []Event
	var errs []error
	for _, b := range st.Held() {
		if err := e.pointer.Release(b); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", b, err))
			continue
		}
		st.Button(b).Pressed = false
		events = append(events, Event{Kind: EventRelease, Button: b})
	}
	return events, errors.Join(errs...)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
