package server

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ayusman/airpoint/internal/capture"
	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/session"
)

func TestHub_FanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	a, cancelA := hub.SubscribeReports()
	b, cancelB := hub.SubscribeReports()
	defer cancelB()

	reports, frames := hub.Clients()
	assert.Equal(t, 2, reports)
	assert.Equal(t, 0, frames)

	hub.Publish(session.Report{Seq: 1, Mode: control.ModeVolume}, nil)

	for _, ch := range []<-chan []byte{a, b} {
		msg := <-ch
		var rep session.Report
		require.NoError(t, json.Unmarshal(msg, &rep))
		assert.Equal(t, uint64(1), rep.Seq)
		assert.Equal(t, control.ModeVolume, rep.Mode)
	}

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok, "cancel closes the channel")
	reports, _ = hub.Clients()
	assert.Equal(t, 1, reports)
}

func TestHub_FramesOnlyForFrameSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	frame := capture.NewSolidFrame(32, 24, color.RGBA{G: 255, A: 255})
	defer frame.Close()

	reports, cancelR := hub.SubscribeReports()
	defer cancelR()
	hub.Publish(session.Report{Seq: 1}, &frame)
	assert.Len(t, reports, 1)

	frames, cancelF := hub.SubscribeFrames()
	defer cancelF()
	hub.Publish(session.Report{Seq: 2}, &frame)
	hub.Publish(session.Report{Seq: 3}, nil)

	require.Len(t, frames, 1, "nil frames are not sent")
	jpeg := <-frames
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	ch, cancel := hub.SubscribeReports()
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		hub.Publish(session.Report{Seq: uint64(i)}, nil)
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, int64(3), hub.Dropped())
}

func TestHub_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	reports, cancelR := hub.SubscribeReports()
	frames, cancelF := hub.SubscribeFrames()

	hub.Close()
	hub.Close()

	_, ok := <-reports
	assert.False(t, ok)
	_, ok = <-frames
	assert.False(t, ok)

	// Cancelling after Close is harmless.
	cancelR()
	cancelF()

	late, cancel := hub.SubscribeReports()
	defer cancel()
	_, ok = <-late
	assert.False(t, ok, "subscriptions after Close are already closed")

	hub.Publish(session.Report{Seq: 1}, nil)
	r, f := hub.Clients()
	assert.Zero(t, r)
	assert.Zero(t, f)
}
