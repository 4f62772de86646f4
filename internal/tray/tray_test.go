package tray

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/session"
)

func TestModeTitle(t *testing.T) {
	tests := []struct {
		name string
		st   session.Status
		want string
	}{
		{"stopped", session.Status{}, "Mode: stopped"},
		{"idle", session.Status{Running: true, Idle: true}, "Mode: idle"},
		{"no hand", session.Status{Running: true, Mode: control.ModeNone}, "Mode: no hand"},
		{"hand while paused by toggle", session.Status{Running: true, Hand: true, Mode: control.ModeNone}, "Mode: tracking"},
		{"scroll", session.Status{Running: true, Hand: true, Mode: control.ModeScroll}, "Mode: scroll"},
		{"fist", session.Status{Running: true, Hand: true, Mode: control.ModePaused}, "Mode: paused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modeTitle(tt.st))
		})
	}
}

func TestTray_ToggleCallsBack(t *testing.T) {
	tr := New(true)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	assert.Equal(t, []bool{false, true}, got)
	assert.True(t, tr.IsEnabled())
}

func TestTray_OpenStatus(t *testing.T) {
	tr := New(true)
	tr.handleOpenStatus() // no callback is fine

	called := false
	tr.OnOpenStatus(func() { called = true })
	tr.handleOpenStatus()
	assert.True(t, called)
}

func TestTray_UpdateFollowsSession(t *testing.T) {
	tr := New(true)

	tr.Update(session.Status{Running: true, Enabled: false, Hand: true, Mode: control.ModeVolume})
	assert.False(t, tr.IsEnabled())
	assert.Equal(t, "Mode: volume", tr.Mode())
}

func TestTray_Follow(t *testing.T) {
	tr := New(true)

	var calls atomic.Int32
	status := func() session.Status {
		calls.Add(1)
		return session.Status{Running: true, Enabled: true, Hand: true, Mode: control.ModePointer}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Follow(ctx, status, time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return tr.Mode() == "Mode: pointer" }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Positive(t, calls.Load())
}
