package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Defaults for the fixed paths the pipeline operates on. Everything is
// overridable via DRIVEDOCK_* environment variables or an optional config
// file, mainly so tests and staging images can relocate the trees.
const (
	DefaultMountBase  = "/mnt/drivedock"
	DefaultServedRoot = "/srv/drivedock"
	DefaultMarkerDir  = "/run/drivedock"
	DefaultLogPath    = "/var/log/drivedock/discovery.log"
	DefaultBackend    = "auto"
)

// StaticDevice is one entry of the hand-maintained device table used by the
// "static" enumerator backend.
type StaticDevice struct {
	Path   string `mapstructure:"path"`
	FSType string `mapstructure:"fstype"`
	Label  string `mapstructure:"label"`
	UUID   string `mapstructure:"uuid"`
	Size   uint64 `mapstructure:"size"`
}

type Config struct {
	Backend    string `mapstructure:"backend"`
	MountBase  string `mapstructure:"mount_base"`
	ServedRoot string `mapstructure:"served_root"`
	MarkerDir  string `mapstructure:"marker_dir"`
	LogPath    string `mapstructure:"log_path"`
	LogLevel   string `mapstructure:"log_level"`

	// Bounded file/dir counting under each fresh mount.
	CountTimeout time.Duration `mapstructure:"count_timeout"`
	CountCap     int64         `mapstructure:"count_cap"`

	StaticDevices []StaticDevice `mapstructure:"static_devices"`
}

// Load resolves configuration: defaults, then an optional YAML file, then
// DRIVEDOCK_* environment variables.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("mount_base", DefaultMountBase)
	v.SetDefault("served_root", DefaultServedRoot)
	v.SetDefault("marker_dir", DefaultMarkerDir)
	v.SetDefault("log_path", DefaultLogPath)
	v.SetDefault("log_level", "info")
	v.SetDefault("count_timeout", 3*time.Second)
	v.SetDefault("count_cap", int64(10000))

	v.SetEnvPrefix("DRIVEDOCK")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("drivedock")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/drivedock")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case "auto", "lsblk", "blkid", "static":
	default:
		return fmt.Errorf("backend must be auto, lsblk, blkid or static, got %q", c.Backend)
	}
	if c.Backend == "static" && len(c.StaticDevices) == 0 {
		return fmt.Errorf("static backend selected but static_devices is empty")
	}
	if c.CountTimeout <= 0 {
		return fmt.Errorf("count_timeout must be positive")
	}
	return nil
}

// Level parses the configured log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	if l, err := zerolog.ParseLevel(c.LogLevel); err == nil {
		return l
	}
	return zerolog.InfoLevel
}
