package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/airpoint/internal/actuator"
	"github.com/ayusman/airpoint/internal/capture"
	"github.com/ayusman/airpoint/internal/config"
	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/detector"
	"github.com/ayusman/airpoint/internal/observability"
	"github.com/ayusman/airpoint/internal/plugin"
	"github.com/ayusman/airpoint/internal/server"
	"github.com/ayusman/airpoint/internal/session"
	"github.com/ayusman/airpoint/internal/store"
	"github.com/ayusman/airpoint/internal/tray"
)

const (
	windowTitle     = "Airpoint"
	trayRefreshRate = 250 * time.Millisecond
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start tracking and drive the pointer (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts.cfg)
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func addRunFlags(f *pflag.FlagSet) {
	f.Int("camera", 0, "camera device index")
	f.Int("width", 0, "camera frame width")
	f.Int("height", 0, "camera frame height")
	f.Bool("show", true, "show the camera window")
	f.Bool("draw", true, "draw hand landmarks on the camera window")
	f.Int("screen-width", 0, "screen width (0 detects it)")
	f.Int("screen-height", 0, "screen height (0 detects it)")
	f.Int("padding", 0, "camera border in pixels that maps to the screen edges")
	f.Bool("volume", true, "enable pinch volume control")
	f.Bool("volume-required", false, "fail when the volume plugin is unavailable")
	f.Bool("idle", false, "drop the frame rate while nothing moves")
	f.Bool("server", false, "serve the status API")
	f.String("addr", "", "status API listen address")
	f.Bool("tray", false, "show the system tray menu")
}

// runSession wires the devices, starts the session and blocks until ctx is
// cancelled, the tray quits or the status server fails.
func runSession(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	screenW, screenH := cfg.Screen.Width, cfg.Screen.Height
	if screenW == 0 || screenH == 0 {
		w, h, err := actuator.ScreenSize()
		if err != nil {
			return err
		}
		screenW, screenH = w, h
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.DetectionConfidence,
		MinTrackingConf: cfg.Detector.TrackingConfidence,
		ScriptPath:      cfg.Detector.Script,
		PythonPath:      cfg.Detector.Python,
	})
	if err != nil {
		return fmt.Errorf("landmark detector: %w", err)
	}

	var display capture.Display = capture.NopDisplay{}
	switch {
	case cfg.Camera.Show && cfg.Tray.Enabled:
		logger.Info("Camera window is disabled while the tray is shown")
	case cfg.Camera.Show:
		display = capture.NewWindow(windowTitle)
	}

	var (
		hub      *server.Hub
		observer session.Observer
	)
	if cfg.Server.Enabled {
		hub = server.NewHub(logger)
		defer hub.Close()
		observer = hub
	}

	sess, err := session.New(session.Config{
		CameraWidth:    cfg.Camera.Width,
		CameraHeight:   cfg.Camera.Height,
		ScreenWidth:    screenW,
		ScreenHeight:   screenH,
		Padding:        cfg.Mapping.Padding,
		DrawLandmarks:  cfg.Camera.Draw,
		VolumeEnabled:  cfg.Volume.Enabled,
		VolumeRequired: cfg.Volume.Required,
		Idle: session.IdleConfig{
			Enabled:         cfg.Idle.Enabled,
			MotionThreshold: cfg.Idle.MotionThreshold,
			Timeout:         time.Duration(cfg.Idle.TimeoutMs) * time.Millisecond,
			IdleFPS:         cfg.Idle.IdleFPS,
			ActiveFPS:       cfg.Idle.ActiveFPS,
		},
		Enabled: true,
	}, session.Deps{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.Index,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
		}),
		Detector: det,
		Pointer:  actuator.NewMouse(),
		Volume:   openVolume(cfg.Volume, logger),
		Display:  display,
		Store:    st,
		Observer: observer,
		Logger:   logger,
	})
	if err != nil {
		det.Close()
		display.Close()
		return err
	}
	if err := sess.Start(); err != nil {
		_ = sess.Close()
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Session did not close cleanly", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			Addr:       cfg.Server.Addr,
			CORS:       cfg.Server.CORS,
			Controller: sess,
			Store:      st,
			Hub:        hub,
			Logger:     logger,
		})
		g.Go(func() error { return srv.Run(gctx) })
	}

	if cfg.Tray.Enabled {
		t := newTray(sess, cfg.Server, cancel)
		g.Go(func() error {
			t.Follow(gctx, sess.Status, trayRefreshRate)
			return nil
		})
		g.Go(func() error { return sess.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			t.Quit()
			return nil
		})
		t.Run()
	} else if err := sess.Run(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openVolume returns the plugin volume endpoint, or nil when it cannot be
// loaded. The session decides whether a missing endpoint is fatal.
func openVolume(cfg config.VolumeConfig, logger *zap.Logger) control.Volume {
	if !cfg.Enabled {
		return nil
	}
	mgr := plugin.NewManager(cfg.PluginDir, logger)
	if err := mgr.Discover(); err != nil {
		logger.Debug("Plugin discovery failed", zap.String("dir", cfg.PluginDir), zap.Error(err))
		return nil
	}
	vol, err := actuator.NewPluginVolume(mgr, cfg.Plugin, plugin.NewExecutor(time.Duration(cfg.TimeoutMs)*time.Millisecond))
	if err != nil {
		logger.Debug("Volume plugin unavailable", zap.String("plugin", cfg.Plugin), zap.Error(err))
		return nil
	}
	return vol
}

func newTray(sess *session.Session, srv config.ServerConfig, quit func()) *tray.Tray {
	t := tray.New(sess.Enabled())
	t.OnToggle(sess.SetEnabled)
	t.OnQuit(quit)
	if srv.Enabled {
		url := "http://" + srv.Addr + "/api/status"
		t.OnOpenStatus(func() {
			if err := openBrowser(url); err != nil {
				observability.GetLogger().Warn("Could not open browser", zap.String("url", url), zap.Error(err))
			}
		})
	}
	return t
}
