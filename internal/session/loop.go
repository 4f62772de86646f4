package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/detector"
	"github.com/ayusman/airpoint/internal/gesture"
)

// Run ticks at the camera frame rate until ctx is cancelled. Frame errors
// are logged and the loop carries on.
func (s *Session) Run(ctx context.Context) error {
	if !s.started {
		return ErrNotStarted
	}

	// HighGUI windows belong to the thread that created them.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	fps := s.targetFPS()
	ticker := time.NewTicker(frameInterval(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := s.Tick(now); err != nil {
				s.errLog.Error("Frame failed", zap.Error(err))
			}
			if next := s.targetFPS(); next != fps {
				fps = next
				ticker.Reset(frameInterval(fps))
			}
		}
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

// Tick processes one frame. Errors and panics are counted and returned; the
// session stays usable.
func (s *Session) Tick(now time.Time) (rep Report, err error) {
	if !s.started {
		return Report{}, ErrNotStarted
	}

	start := time.Now()
	s.seq++
	rep = Report{
		Seq:     s.seq,
		Time:    now,
		Enabled: s.enabled.Load(),
		Mode:    control.ModeNone,
	}
	read := false

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, r)
			rep.Error = err.Error()
		}
		s.finishTick(rep, err, read, now, time.Since(start))
	}()

	frame, err := s.camera.ReadFrame()
	if err != nil {
		err = fmt.Errorf("read frame: %w", err)
		rep.Error = err.Error()
		return rep, err
	}
	read = true
	defer frame.Close()

	err = s.process(frame, &rep, now)
	if err != nil {
		rep.Error = err.Error()
	}

	s.display.Show(frame)
	if s.observer != nil {
		s.observer.Publish(rep, frame)
	}
	return rep, err
}

func (s *Session) process(frame *gocv.Mat, rep *Report, now time.Time) error {
	motion := false
	if s.motion != nil {
		motion = s.motion.Observe(frame).Detected
	}

	var hands []detector.HandLandmarks
	var err error
	if s.idle == nil || s.idle.ShouldDetect(motion) {
		rep.Detected = true
		hands, err = s.detector.Detect(frame)
		if err != nil {
			err = fmt.Errorf("detect: %w", err)
		}
	}

	if s.idle != nil {
		if fps, changed := s.idle.Update(now, motion, len(hands) > 0); changed {
			s.camera.SetFPS(fps)
			s.logger.Debug("Frame rate changed", zap.Int("fps", fps), zap.Bool("idle", s.idle.Idle()))
		}
		rep.Idle = s.idle.Idle()
	}

	if !rep.Enabled && len(s.state.Held()) > 0 {
		events, relErr := s.engine.ReleaseAll(&s.state)
		rep.Events = append(rep.Events, events...)
		err = errors.Join(err, relErr)
	}

	if err != nil || len(hands) == 0 {
		return err
	}

	if s.cfg.DrawLandmarks {
		detector.DrawHands(frame, hands)
	}

	snap := gesture.NewSnapshot(hands[0], s.cfg.CameraWidth, s.cfg.CameraHeight)
	facts, err := s.classifier.Classify(snap)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	cursor := s.mapper.Map(snap.Point(detector.RingMCP))
	rep.Hand = &snap
	rep.Facts = &facts
	rep.Cursor = &cursor

	if !rep.Enabled {
		return nil
	}

	res, err := s.engine.Step(&s.state, control.NewInput(snap, facts, cursor), now)
	rep.Mode = res.Mode
	rep.Events = append(rep.Events, res.Events...)
	if err != nil {
		return fmt.Errorf("%s: %w", res.Mode, err)
	}
	return nil
}

func (s *Session) finishTick(rep Report, err error, read bool, now time.Time, elapsed time.Duration) {
	if read {
		s.stats.add(now, elapsed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.status.Counters
	if read {
		c.Frames++
	}
	if rep.Hand != nil {
		c.HandFrames++
	}
	if rep.Mode == control.ModePaused {
		c.PausedFrames++
	}
	c.count(rep.Events)
	if err != nil {
		c.Errors++
		s.status.LastError = err.Error()
	}

	s.status.Enabled = s.enabled.Load()
	s.status.Idle = rep.Idle
	s.status.FPS = s.targetFPS()
	s.status.Mode = rep.Mode
	s.status.Hand = rep.Hand != nil
	s.status.Left = s.state.Left.Pressed
	s.status.Right = s.state.Right.Pressed
	s.status.Stats = s.stats.snapshot()
}
