// Package session runs the camera-to-pointer loop. Each tick reads one frame,
// detects a hand, classifies it, maps it to the screen and lets the control
// engine act on the pointer and volume sinks.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airpoint/internal/capture"
	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/detector"
	"github.com/ayusman/airpoint/internal/gesture"
	"github.com/ayusman/airpoint/internal/mapping"
	"github.com/ayusman/airpoint/internal/observability"
	"github.com/ayusman/airpoint/internal/store"
)

var (
	// ErrVolumeUnavailable is returned by Start when volume control is
	// required but the endpoint cannot report its range.
	ErrVolumeUnavailable = errors.New("volume control unavailable")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrNotStarted        = errors.New("session not started")
	// ErrTickPanic wraps a panic recovered while processing a frame.
	ErrTickPanic = errors.New("panic while processing frame")
)

// Rate limit for per-frame error logs.
const (
	errorLogInterval = 2 * time.Second
	errorLogBurst    = 3
)

// IdleConfig controls the low frame rate used while nothing moves in front
// of the camera.
type IdleConfig struct {
	Enabled bool
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64
	Timeout         time.Duration
	IdleFPS         int
	ActiveFPS       int
}

// Config holds the per-session parameters. Screen size must already be
// resolved; see actuator.ScreenSize.
type Config struct {
	CameraWidth   int
	CameraHeight  int
	ScreenWidth   int
	ScreenHeight  int
	Padding       int
	DrawLandmarks bool

	VolumeEnabled  bool
	VolumeRequired bool

	Idle IdleConfig

	// Enabled is the initial dispatch state, used when the store holds no
	// saved toggle.
	Enabled bool
}

// Deps are the collaborators a session drives. Camera, Detector and Pointer
// are required.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Pointer  control.Pointer
	// Volume may be nil, which disables volume mode.
	Volume   control.Volume
	Display  capture.Display
	Store    *store.Store
	Observer Observer
	Logger   *zap.Logger
}

// Session owns one run of the pointer loop. Start, Run, Tick and Close must
// be called from the same goroutine; SetEnabled, Enabled and Status are safe
// from any goroutine.
type Session struct {
	cfg Config

	camera   capture.Camera
	detector detector.Detector
	volume   control.Volume
	display  capture.Display
	store    *store.Store
	observer Observer

	mapper     mapping.Config
	classifier *gesture.Classifier
	engine     *control.Engine
	state      control.State

	motion *capture.MotionDetector
	idle   *capture.IdleGate

	logger *zap.Logger
	errLog *observability.Throttled

	started bool
	seq     uint64
	record  *store.SessionRecord
	stats   *frameStats

	enabled atomic.Bool

	mu     sync.RWMutex
	status Status
}

// New validates the geometry and wires the pipeline. Nothing is opened
// until Start.
func New(cfg Config, deps Deps) (*Session, error) {
	switch {
	case deps.Camera == nil:
		return nil, errors.New("session: camera is required")
	case deps.Detector == nil:
		return nil, errors.New("session: detector is required")
	case deps.Pointer == nil:
		return nil, errors.New("session: pointer is required")
	}

	mapper, err := mapping.New(cfg.CameraWidth, cfg.CameraHeight, cfg.ScreenWidth, cfg.ScreenHeight, cfg.Padding)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	display := deps.Display
	if display == nil {
		display = capture.NopDisplay{}
	}

	s := &Session{
		cfg:        cfg,
		camera:     deps.Camera,
		detector:   deps.Detector,
		volume:     deps.Volume,
		display:    display,
		store:      deps.Store,
		observer:   deps.Observer,
		mapper:     mapper,
		classifier: gesture.NewClassifier(cfg.CameraHeight),
		engine:     control.NewEngine(control.DefaultConfig(cfg.CameraHeight, cfg.ScreenWidth), deps.Pointer),
		logger:     logger,
		errLog:     observability.NewThrottled(logger, errorLogInterval, errorLogBurst),
		stats:      newFrameStats(statsWindow),
	}
	if cfg.Idle.Enabled {
		s.motion = capture.NewMotionDetector(cfg.Idle.MotionThreshold)
	}
	s.enabled.Store(cfg.Enabled)
	s.status.Enabled = cfg.Enabled
	s.status.Mode = control.ModeNone
	return s, nil
}

// Start opens the camera, queries the volume range and records the session.
// The saved enabled toggle, if any, overrides Config.Enabled.
func (s *Session) Start() error {
	if s.started {
		return ErrAlreadyStarted
	}

	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if err := s.setupVolume(); err != nil {
		_ = s.camera.Close()
		return err
	}

	now := time.Now()
	if s.cfg.Idle.Enabled {
		s.idle = capture.NewIdleGate(s.cfg.Idle.Timeout, s.cfg.Idle.IdleFPS, s.cfg.Idle.ActiveFPS, now)
		s.camera.SetFPS(s.cfg.Idle.ActiveFPS)
	}

	volumeRange, volumeOn := s.engine.VolumeRange()
	if s.store != nil {
		s.enabled.Store(s.store.Settings().Bool(store.SettingEnabled, s.enabled.Load()))

		rec := &store.SessionRecord{
			StartedAt:     now,
			CameraWidth:   s.cfg.CameraWidth,
			CameraHeight:  s.cfg.CameraHeight,
			ScreenWidth:   s.cfg.ScreenWidth,
			ScreenHeight:  s.cfg.ScreenHeight,
			VolumeEnabled: volumeOn,
		}
		if err := s.store.Sessions().Create(rec); err != nil {
			s.logger.Warn("Failed to record session", zap.Error(err))
		} else {
			s.record = rec
		}
	}

	s.started = true

	s.mu.Lock()
	s.status.Running = true
	s.status.StartedAt = now
	s.status.Enabled = s.enabled.Load()
	s.status.FPS = s.targetFPS()
	s.status.VolumeEnabled = volumeOn
	if volumeOn {
		s.status.VolumeRange = &volumeRange
	}
	if s.record != nil {
		s.status.SessionID = s.record.ID
	}
	s.mu.Unlock()

	s.logger.Info("Session started",
		zap.Int("camera_width", s.cfg.CameraWidth),
		zap.Int("camera_height", s.cfg.CameraHeight),
		zap.Int("screen_width", s.cfg.ScreenWidth),
		zap.Int("screen_height", s.cfg.ScreenHeight),
		zap.Int("padding", s.cfg.Padding),
		zap.Bool("volume", volumeOn),
		zap.Bool("enabled", s.enabled.Load()),
	)
	return nil
}

func (s *Session) setupVolume() error {
	if !s.cfg.VolumeEnabled {
		return nil
	}
	err := s.enableVolume()
	if err == nil {
		return nil
	}
	if s.cfg.VolumeRequired {
		return fmt.Errorf("%w: %w", ErrVolumeUnavailable, err)
	}
	s.logger.Warn("Volume control unavailable, volume mode disabled", zap.Error(err))
	return nil
}

func (s *Session) enableVolume() error {
	if s.volume == nil {
		return errors.New("no volume endpoint")
	}
	r, err := s.volume.Range()
	if err != nil {
		return fmt.Errorf("query range: %w", err)
	}
	return s.engine.EnableVolume(s.volume, r)
}

// SetEnabled pauses or resumes dispatch. While paused frames are still read,
// classified and published but no sink is called; buttons held at the
// moment of pausing are released on the next frame. The toggle is saved
// when a store is attached.
func (s *Session) SetEnabled(enabled bool) {
	if s.enabled.Swap(enabled) == enabled {
		return
	}

	s.mu.Lock()
	s.status.Enabled = enabled
	s.mu.Unlock()

	s.logger.Info("Dispatch toggled", zap.Bool("enabled", enabled))
	if s.store != nil {
		if err := s.store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
			s.logger.Warn("Failed to save enabled setting", zap.Error(err))
		}
	}
}

func (s *Session) Enabled() bool {
	return s.enabled.Load()
}

// Status returns a snapshot of the session's state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close releases held buttons, closes every device and writes the session
// summary. It is safe to call on a session that never started.
func (s *Session) Close() error {
	var errs []error

	if s.started {
		events, err := s.engine.ReleaseAll(&s.state)
		if err != nil {
			errs = append(errs, err)
		}
		s.mu.Lock()
		s.status.Counters.Releases += len(events)
		s.status.Left = s.state.Left.Pressed
		s.status.Right = s.state.Right.Pressed
		s.mu.Unlock()
	}

	if err := s.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if err := s.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	if err := s.display.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close display: %w", err))
	}
	if s.motion != nil {
		s.motion.Close()
	}

	s.mu.Lock()
	s.status.Running = false
	st := s.status
	s.mu.Unlock()

	if s.record != nil {
		s.record.VolumeEnabled = st.VolumeEnabled
		st.Counters.apply(s.record)
		s.record.MeanFrameMs = s.stats.overallMeanMs()
		if err := s.store.Sessions().Finish(s.record); err != nil {
			errs = append(errs, fmt.Errorf("save session: %w", err))
		}
		s.record = nil
	}

	if s.started {
		s.logger.Info("Session stopped",
			zap.Int("frames", st.Counters.Frames),
			zap.Int("hand_frames", st.Counters.HandFrames),
			zap.Int("errors", st.Counters.Errors),
		)
	}
	s.started = false
	return errors.Join(errs...)
}

func (s *Session) targetFPS() int {
	if s.idle != nil {
		return s.idle.FPS()
	}
	return s.camera.FPS()
}
