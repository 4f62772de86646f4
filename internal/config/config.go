// Package config loads Airpoint settings from defaults, an optional YAML file,
// AIRPOINT_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. AIRPOINT_CAMERA_INDEX.
const EnvPrefix = "AIRPOINT"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Camera   CameraConfig   `mapstructure:"camera" yaml:"camera"`
	Screen   ScreenConfig   `mapstructure:"screen" yaml:"screen"`
	Mapping  MappingConfig  `mapstructure:"mapping" yaml:"mapping"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Volume   VolumeConfig   `mapstructure:"volume" yaml:"volume"`
	Idle     IdleConfig     `mapstructure:"idle" yaml:"idle"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Tray     TrayConfig     `mapstructure:"tray" yaml:"tray"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
}

type CameraConfig struct {
	Index  int  `mapstructure:"index" yaml:"index"`
	Width  int  `mapstructure:"width" yaml:"width"`
	Height int  `mapstructure:"height" yaml:"height"`
	Show   bool `mapstructure:"show" yaml:"show"`
	Draw   bool `mapstructure:"draw" yaml:"draw"`
}

// ScreenConfig is the pointer target size. Zero means detect at startup.
type ScreenConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

type MappingConfig struct {
	Padding int `mapstructure:"padding" yaml:"padding"`
}

type DetectorConfig struct {
	Script              string  `mapstructure:"script" yaml:"script"`
	Python              string  `mapstructure:"python" yaml:"python"`
	MaxHands            int     `mapstructure:"max_hands" yaml:"max_hands"`
	DetectionConfidence float64 `mapstructure:"detection_confidence" yaml:"detection_confidence"`
	TrackingConfidence  float64 `mapstructure:"tracking_confidence" yaml:"tracking_confidence"`
}

type VolumeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Required makes a failed range query fatal instead of disabling volume mode.
	Required  bool   `mapstructure:"required" yaml:"required"`
	PluginDir string `mapstructure:"plugin_dir" yaml:"plugin_dir"`
	Plugin    string `mapstructure:"plugin" yaml:"plugin"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// IdleConfig controls frame-rate gating while nothing moves in front of the camera.
type IdleConfig struct {
	Enabled         bool    `mapstructure:"enabled" yaml:"enabled"`
	MotionThreshold float64 `mapstructure:"motion_threshold" yaml:"motion_threshold"`
	TimeoutMs       int     `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	IdleFPS         int     `mapstructure:"idle_fps" yaml:"idle_fps"`
	ActiveFPS       int     `mapstructure:"active_fps" yaml:"active_fps"`
}

type ServerConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Addr    string   `mapstructure:"addr" yaml:"addr"`
	CORS    []string `mapstructure:"cors" yaml:"cors"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LoggerConfig holds the logging settings.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color of each level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("camera.index", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.show", true)
	v.SetDefault("camera.draw", true)

	v.SetDefault("screen.width", 0)
	v.SetDefault("screen.height", 0)

	v.SetDefault("mapping.padding", 100)

	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "python3")
	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.detection_confidence", 0.9)
	v.SetDefault("detector.tracking_confidence", 0.5)

	v.SetDefault("volume.enabled", true)
	v.SetDefault("volume.required", false)
	v.SetDefault("volume.plugin_dir", "~/.airpoint/plugins")
	v.SetDefault("volume.plugin", "volume")
	v.SetDefault("volume.timeout_ms", 2000)

	v.SetDefault("idle.enabled", false)
	v.SetDefault("idle.motion_threshold", 1.0)
	v.SetDefault("idle.timeout_ms", 5000)
	v.SetDefault("idle.idle_fps", 5)
	v.SetDefault("idle.active_fps", 30)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.addr", "127.0.0.1:8089")
	v.SetDefault("server.cors", []string{"http://localhost:8089", "http://127.0.0.1:8089"})

	v.SetDefault("store.path", "~/.airpoint/airpoint.db")

	v.SetDefault("tray.enabled", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "airpoint")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
}

// NewViper returns a viper instance with defaults and environment overrides
// wired. configFile may be empty, in which case airpoint.yaml is looked up in
// the working directory and in ~/.airpoint.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("airpoint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".airpoint"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadInConfig reads the config file if there is one. A missing file is not
// an error when no explicit path was given.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// NewConfigFromViper decodes, expands and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is NewViper, ReadInConfig and NewConfigFromViper in one call.
func Load(configFile string) (*Config, error) {
	v := NewViper(configFile)
	if err := ReadInConfig(v); err != nil {
		return nil, err
	}
	return NewConfigFromViper(v)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Detector.Script, &c.Volume.PluginDir, &c.Store.Path, &c.Logger.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the settings that would otherwise fail deep inside a
// session. Screen size is only checked against the camera when it is set.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		errs = append(errs, fmt.Errorf("screen size must not be negative, got %dx%d", c.Screen.Width, c.Screen.Height))
	}
	if c.Screen.Width > 0 && c.Screen.Height > 0 &&
		(c.Camera.Width > c.Screen.Width || c.Camera.Height > c.Screen.Height) {
		errs = append(errs, fmt.Errorf("camera %dx%d is larger than screen %dx%d",
			c.Camera.Width, c.Camera.Height, c.Screen.Width, c.Screen.Height))
	}
	if c.Mapping.Padding <= 0 {
		errs = append(errs, fmt.Errorf("mapping.padding must be positive, got %d", c.Mapping.Padding))
	}
	if c.Detector.MaxHands <= 0 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be positive, got %d", c.Detector.MaxHands))
	}
	if !unit(c.Detector.DetectionConfidence) {
		errs = append(errs, fmt.Errorf("detector.detection_confidence must be within [0,1], got %g", c.Detector.DetectionConfidence))
	}
	if !unit(c.Detector.TrackingConfidence) {
		errs = append(errs, fmt.Errorf("detector.tracking_confidence must be within [0,1], got %g", c.Detector.TrackingConfidence))
	}
	if c.Volume.Enabled && c.Volume.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("volume.timeout_ms must be positive, got %d", c.Volume.TimeoutMs))
	}
	if c.Idle.Enabled {
		if c.Idle.IdleFPS <= 0 || c.Idle.ActiveFPS <= 0 {
			errs = append(errs, fmt.Errorf("idle frame rates must be positive, got %d/%d", c.Idle.IdleFPS, c.Idle.ActiveFPS))
		}
		if c.Idle.TimeoutMs <= 0 {
			errs = append(errs, fmt.Errorf("idle.timeout_ms must be positive, got %d", c.Idle.TimeoutMs))
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required when the server is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
