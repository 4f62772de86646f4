package control

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/airpoint/internal/gesture"
	"github.com/ayusman/airpoint/internal/mapping"
)

const (
	cameraHeight = 480
	screenWidth  = 1920
	near         = 5
	far          = 200
)

var (
	openPalm = gesture.Facts{FingersUp: []int{8, 12, 16, 20}}
	cursor   = mapping.Point{X: 100, Y: 200}
	t0       = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

// pointerInput places the thumb leftGap pixels from the index tip and the
// middle tip rightGap pixels from the wrist, on both axes.
func pointerInput(leftGap, rightGap int) Input {
	return Input{
		Facts:    openPalm,
		Wrist:    image.Pt(300, 400),
		Middle:   image.Pt(300+rightGap, 400-rightGap),
		Index:    image.Pt(350, 200),
		Thumb:    image.Pt(350+leftGap, 200+leftGap),
		IndexMCP: image.Pt(350, 300),
		Cursor:   cursor,
	}
}

func newTestEngine() (*Engine, *RecordingPointer) {
	p := NewRecordingPointer()
	return NewEngine(DefaultConfig(cameraHeight, screenWidth), p), p
}

func move() Event { return Event{Kind: EventMove, X: cursor.X, Y: cursor.Y} }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(480, 1920)

	assert.InDelta(t, 26.666, cfg.LeftClickDistance, 0.001)
	assert.InDelta(t, 96.0, cfg.RightClickDistance, 1e-9)
	assert.Equal(t, 1920, cfg.ScreenWidth)
	assert.Equal(t, 200*time.Millisecond, cfg.Cooldown)
}

func TestEngine_Debounce(t *testing.T) {
	e, p := newTestEngine()
	var st State

	frames := []struct {
		at  time.Duration
		gap int
	}{
		{0, near},                     // press
		{33 * time.Millisecond, far},  // release, cooldown starts
		{66 * time.Millisecond, near}, // still cooling: ignored
		{199 * time.Millisecond, near},
		{233 * time.Millisecond, near}, // cooldown over: press
		{266 * time.Millisecond, near}, // already held
	}
	for _, f := range frames {
		_, err := e.Step(&st, pointerInput(f.gap, far), t0.Add(f.at))
		require.NoError(t, err)
	}

	want := []Event{
		{Kind: EventPress, Button: ButtonLeft}, move(),
		{Kind: EventRelease, Button: ButtonLeft}, move(),
		move(),
		move(),
		{Kind: EventPress, Button: ButtonLeft}, move(),
		move(),
	}
	if diff := cmp.Diff(want, p.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, st.Left.Pressed)
	assert.False(t, st.Right.Pressed)
}

func TestEngine_NoReleaseWhileReleased(t *testing.T) {
	e, p := newTestEngine()
	var st State

	for i := 0; i < 3; i++ {
		_, err := e.Step(&st, pointerInput(far, far), t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	want := []Event{move(), move(), move()}
	if diff := cmp.Diff(want, p.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, st.Left.CooldownUntil.IsZero(), "no cooldown without a release")
}

func TestEngine_ThresholdIsInclusive(t *testing.T) {
	e, p := newTestEngine()
	var st State

	// right threshold is exactly 96 px at 480 px camera height
	_, err := e.Step(&st, pointerInput(far, 96), t0)
	require.NoError(t, err)
	assert.True(t, st.Right.Pressed)

	_, err = e.Step(&st, pointerInput(far, 97), t0.Add(time.Millisecond))
	require.NoError(t, err)
	assert.False(t, st.Right.Pressed)

	want := []Event{
		{Kind: EventPress, Button: ButtonRight}, move(),
		{Kind: EventRelease, Button: ButtonRight}, move(),
	}
	if diff := cmp.Diff(want, p.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_ButtonsAreIndependent(t *testing.T) {
	e, p := newTestEngine()
	var st State

	_, err := e.Step(&st, pointerInput(near, near), t0)
	require.NoError(t, err)
	// releasing right must not put left in cooldown
	_, err = e.Step(&st, pointerInput(near, far), t0.Add(10*time.Millisecond))
	require.NoError(t, err)
	_, err = e.Step(&st, pointerInput(far, far), t0.Add(20*time.Millisecond))
	require.NoError(t, err)

	want := []Event{
		{Kind: EventPress, Button: ButtonRight}, {Kind: EventPress, Button: ButtonLeft}, move(),
		{Kind: EventRelease, Button: ButtonRight}, move(),
		{Kind: EventRelease, Button: ButtonLeft}, move(),
	}
	if diff := cmp.Diff(want, p.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_FistSkipsEverythingAndKeepsButtonsHeld(t *testing.T) {
	e, p := newTestEngine()
	var st State

	_, err := e.Step(&st, pointerInput(near, far), t0)
	require.NoError(t, err)
	p.Reset()

	in := pointerInput(far, far)
	in.Facts = gesture.Facts{FingersUp: []int{}, Fist: true}
	res, err := e.Step(&st, in, t0.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, ModePaused, res.Mode)
	assert.Empty(t, res.Events)
	assert.Empty(t, p.Events())
	assert.True(t, st.Left.Pressed, "fist does not release a held button")
}

func TestEngine_ScrollPriority(t *testing.T) {
	e, p := newTestEngine()
	var st State

	in := pointerInput(near, near) // would press both buttons in pointer mode
	in.Facts = gesture.Facts{FingersUp: []int{8}}
	in.Index = image.Pt(350, 100)
	in.Thumb = image.Pt(352, 102)
	in.IndexMCP = image.Pt(350, 150)

	res, err := e.Step(&st, in, t0)
	require.NoError(t, err)

	assert.Equal(t, ModeScroll, res.Mode)
	want := []Event{{Kind: EventScroll, Amount: 0.25}}
	if diff := cmp.Diff(want, p.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, State{}, st, "scroll leaves click state alone")
}

func TestEngine_ScrollLevelTipIsSilent(t *testing.T) {
	e, p := newTestEngine()
	var st State

	in := pointerInput(far, far)
	in.Facts = gesture.Facts{FingersUp: []int{8}}
	in.IndexMCP = in.Index

	res, err := e.Step(&st, in, t0)
	require.NoError(t, err)
	assert.Equal(t, ModeScroll, res.Mode)
	assert.Empty(t, p.Events())
}

func TestScrollDelta(t *testing.T) {
	tests := []struct {
		name        string
		tipY, baseY int
		want        float64
	}{
		{"pointing up scrolls up", 100, 150, 0.25},
		{"pointing down scrolls down", 150, 100, -0.25},
		{"level does nothing", 120, 120, 0},
		{"offset clamps at 200", 0, 500, 1.0},
		{"negative offset clamps at 200", 500, 0, -1.0},
		{"exact clamp", 0, 200, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScrollDelta(tt.tipY, tt.baseY), 1e-12)
		})
	}
}

func TestEngine_Volume(t *testing.T) {
	r := VolumeRange{Min: -65.25, Max: 0}

	t.Run("two fingers select volume when enabled", func(t *testing.T) {
		e, p := newTestEngine()
		v := NewRecordingVolume(r)
		require.NoError(t, e.EnableVolume(v, r))

		var st State
		in := pointerInput(near, near)
		in.Facts = gesture.Facts{FingersUp: []int{8, 12}}
		in.Cursor = mapping.Point{X: 960, Y: 10}

		res, err := e.Step(&st, in, t0)
		require.NoError(t, err)

		assert.Equal(t, ModeVolume, res.Mode)
		require.Len(t, v.Levels(), 1)
		assert.InDelta(t, -32.625, v.Levels()[0], 1e-9)
		assert.Empty(t, p.Events())
		assert.Equal(t, State{}, st)
	})

	t.Run("two fingers fall back to pointer without volume", func(t *testing.T) {
		e, p := newTestEngine()
		var st State
		in := pointerInput(far, far)
		in.Facts = gesture.Facts{FingersUp: []int{8, 12}}

		res, err := e.Step(&st, in, t0)
		require.NoError(t, err)

		assert.Equal(t, ModePointer, res.Mode)
		assert.Equal(t, []Event{move()}, p.Events())
	})

	t.Run("levels above zero are skipped", func(t *testing.T) {
		e, _ := newTestEngine()
		v := NewRecordingVolume(r)
		require.NoError(t, e.EnableVolume(v, r))

		var st State
		in := pointerInput(far, far)
		in.Facts = gesture.Facts{FingersUp: []int{8, 12}}
		in.Cursor = mapping.Point{X: 2000}

		res, err := e.Step(&st, in, t0)
		require.NoError(t, err)
		assert.Equal(t, ModeVolume, res.Mode)
		assert.Empty(t, v.Levels())
	})

	t.Run("set failure is reported", func(t *testing.T) {
		e, _ := newTestEngine()
		v := NewRecordingVolume(r)
		v.SetErrors(nil, errors.New("endpoint gone"))
		require.NoError(t, e.EnableVolume(v, r))

		var st State
		in := pointerInput(far, far)
		in.Facts = gesture.Facts{FingersUp: []int{8, 12}}

		_, err := e.Step(&st, in, t0)
		assert.ErrorContains(t, err, "endpoint gone")
	})
}

func TestEngine_VolumeLevel(t *testing.T) {
	e, _ := newTestEngine()
	require.NoError(t, e.EnableVolume(NewRecordingVolume(VolumeRange{}), VolumeRange{Min: -65.25}))

	tests := []struct {
		x      float64
		want   float64
		wantOK bool
	}{
		{0, -65.25, true},
		{1920, 0, true},
		{960, -32.625, true},
		{-100, -65.25 * 2020 / 1920, true}, // below the minimum passes through
		{2000, 65.25 * 80 / 1920, false},
	}

	for _, tt := range tests {
		level, ok := e.VolumeLevel(tt.x)
		assert.InDelta(t, tt.want, level, 1e-9, "x=%v", tt.x)
		assert.Equal(t, tt.wantOK, ok, "x=%v", tt.x)
	}
}

func TestEngine_EnableVolumeRejectsBadRange(t *testing.T) {
	e, _ := newTestEngine()

	assert.ErrorIs(t, e.EnableVolume(NewRecordingVolume(VolumeRange{}), VolumeRange{Min: 0, Max: 100}), ErrInvalidVolumeRange)
	assert.ErrorIs(t, e.EnableVolume(NewRecordingVolume(VolumeRange{}), VolumeRange{Min: -10, Max: -20}), ErrInvalidVolumeRange)

	_, enabled := e.VolumeRange()
	assert.False(t, enabled)
}

func TestEngine_SinkFailureKeepsStateConsistent(t *testing.T) {
	e, p := newTestEngine()
	var st State

	p.Fail(EventPress, errors.New("injection denied"))
	_, err := e.Step(&st, pointerInput(near, far), t0)
	require.Error(t, err)
	assert.False(t, st.Left.Pressed, "failed press must not mark the button")
	assert.Equal(t, []Event{move()}, p.Events(), "move still applied")

	p.Fail(EventPress, nil)
	p.Reset()
	_, err = e.Step(&st, pointerInput(near, far), t0.Add(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, st.Left.Pressed)

	p.Fail(EventRelease, errors.New("injection denied"))
	_, err = e.Step(&st, pointerInput(far, far), t0.Add(2*time.Millisecond))
	require.Error(t, err)
	assert.True(t, st.Left.Pressed, "failed release keeps the button held")
	assert.True(t, st.Left.CooldownUntil.IsZero())
}

func TestEngine_ReleaseAll(t *testing.T) {
	e, p := newTestEngine()
	var st State

	_, err := e.Step(&st, pointerInput(near, near), t0)
	require.NoError(t, err)
	p.Reset()

	events, err := e.ReleaseAll(&st)
	require.NoError(t, err)

	want := []Event{{Kind: EventRelease, Button: ButtonLeft}, {Kind: EventRelease, Button: ButtonRight}}
	assert.Equal(t, want, events)
	assert.Equal(t, want, p.Events())
	assert.Empty(t, st.Held())

	events, err = e.ReleaseAll(&st)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNewInput(t *testing.T) {
	lms := make([]gesture.Landmark, 21)
	for i := range lms {
		lms[i] = gesture.Landmark{ID: i, X: i * 10, Y: i * 20}
	}
	in := NewInput(gesture.Snapshot{Landmarks: lms}, openPalm, cursor)

	assert.Equal(t, image.Pt(0, 0), in.Wrist)
	assert.Equal(t, image.Pt(40, 80), in.Thumb)
	assert.Equal(t, image.Pt(80, 160), in.Index)
	assert.Equal(t, image.Pt(120, 240), in.Middle)
	assert.Equal(t, image.Pt(50, 100), in.IndexMCP)
	assert.Equal(t, cursor, in.Cursor)
}
