package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/devsweep/internal/classify"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/protect"
	"github.com/blackwell-systems/devsweep/internal/scanner"
)

// Config is the top-level devsweep configuration.
type Config struct {
	ScanPaths      []string        `mapstructure:"scan_paths"`
	ExcludePaths   []string        `mapstructure:"exclude_paths"`
	ProtectedPaths []string        `mapstructure:"protected_paths"`
	FollowSymlinks bool            `mapstructure:"follow_symlinks"`
	MaxDirectories int             `mapstructure:"max_directories"`
	Concurrency    int             `mapstructure:"concurrency"`
	Ecosystems     map[string]bool `mapstructure:"ecosystems"`
	Detection      Detection       `mapstructure:"detection"`
	Cleanup        Cleanup         `mapstructure:"cleanup"`
	Output         Output          `mapstructure:"output"`
	LogLevel       string          `mapstructure:"log_level"`
}

// Detection controls classification and protection.
type Detection struct {
	ActiveThresholdDays    int           `mapstructure:"active_threshold_days"`
	RecentThresholdDays    int           `mapstructure:"recent_threshold_days"`
	StaleThresholdDays     int           `mapstructure:"stale_threshold_days"`
	ConsiderGitActivity    bool          `mapstructure:"consider_git_activity"`
	ConsiderIDEActivity    bool          `mapstructure:"consider_ide_activity"`
	GitTimeout             time.Duration `mapstructure:"git_timeout"`
	ProtectUnreadableRepos bool          `mapstructure:"protect_unreadable_repos"`
	DetectOpenEditors      bool          `mapstructure:"detect_open_editors"`
}

// Cleanup defines how artifacts are removed.
type Cleanup struct {
	MoveToTrash bool `mapstructure:"move_to_trash"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v, err := readViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func readViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("scan_paths", DefaultScanPaths)
	v.SetDefault("exclude_paths", []string{})
	v.SetDefault("protected_paths", []string{})
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("max_directories", DefaultMaxDirectories)
	v.SetDefault("concurrency", DefaultConcurrency)
	for _, id := range ecosystem.NewDefaultRegistry(ecosystem.Deps{}).IDs() {
		v.SetDefault("ecosystems."+string(id), true)
	}
	v.SetDefault("detection.active_threshold_days", DefaultDetection.ActiveThresholdDays)
	v.SetDefault("detection.recent_threshold_days", DefaultDetection.RecentThresholdDays)
	v.SetDefault("detection.stale_threshold_days", DefaultDetection.StaleThresholdDays)
	v.SetDefault("detection.consider_git_activity", DefaultDetection.ConsiderGitActivity)
	v.SetDefault("detection.consider_ide_activity", DefaultDetection.ConsiderIDEActivity)
	v.SetDefault("detection.git_timeout", DefaultDetection.GitTimeout)
	v.SetDefault("detection.protect_unreadable_repos", DefaultDetection.ProtectUnreadableRepos)
	v.SetDefault("detection.detect_open_editors", DefaultDetection.DetectOpenEditors)
	v.SetDefault("cleanup.move_to_trash", DefaultCleanup.MoveToTrash)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log_level", DefaultLogLevel)

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.SetConfigFile(DefaultConfigPath())
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Expand paths.
	for _, paths := range [][]string{cfg.ScanPaths, cfg.ExcludePaths, cfg.ProtectedPaths} {
		for i, p := range paths {
			paths[i] = expandPath(p)
		}
	}

	if cfg.MaxDirectories <= 0 {
		cfg.MaxDirectories = DefaultMaxDirectories
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if err := cfg.Thresholds().Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection thresholds: %w", err)
	}
	return &cfg, nil
}

// Thresholds returns the classification thresholds.
func (c *Config) Thresholds() classify.Thresholds {
	return classify.Thresholds{
		ActiveDays:     c.Detection.ActiveThresholdDays,
		RecentDays:     c.Detection.RecentThresholdDays,
		StaleDays:      c.Detection.StaleThresholdDays,
		ConsiderVCS:    c.Detection.ConsiderGitActivity,
		ConsiderEditor: c.Detection.ConsiderIDEActivity,
	}
}

// ScannerSettings returns the per-scan scanner settings.
func (c *Config) ScannerSettings() scanner.Settings {
	return scanner.Settings{
		Thresholds:             c.Thresholds(),
		ProtectedPaths:         c.ProtectedPaths,
		ProtectUnreadableRepos: c.Detection.ProtectUnreadableRepos,
		MaxDirectories:         c.MaxDirectories,
		BatchSize:              c.Concurrency,
	}
}

// ProtectSettings returns the protection analyzer settings.
func (c *Config) ProtectSettings() protect.Settings {
	return protect.Settings{
		ProtectedPaths:         c.ProtectedPaths,
		ProtectUnreadableRepos: c.Detection.ProtectUnreadableRepos,
		DetectOpenEditors:      c.Detection.DetectOpenEditors,
	}
}

// EnabledEcosystems filters order down to the enabled ecosystems. An
// ecosystem missing from the config is enabled.
func (c *Config) EnabledEcosystems(order []ecosystem.ID) []ecosystem.ID {
	return lo.Filter(order, func(id ecosystem.ID, _ int) bool {
		enabled, ok := c.Ecosystems[string(id)]
		return !ok || enabled
	})
}

// ScanOptions builds scanner options from the config.
func (c *Config) ScanOptions(order []ecosystem.ID) scanner.Options {
	return scanner.Options{
		Paths:          c.ScanPaths,
		ExcludePaths:   c.ExcludePaths,
		Ecosystems:     c.EnabledEcosystems(order),
		FollowSymlinks: c.FollowSymlinks,
	}
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

// DefaultConfigPath is the config file read when no --config is given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), DefaultConfigFile)
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(ConfigDir(), DefaultDBName)
}
