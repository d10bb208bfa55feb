// Package config provides configuration loading and defaults for devsweep.
package config

import "time"

// DefaultScanPaths are the default directories to scan for projects.
var DefaultScanPaths = []string{"~"}

// DefaultConfigDir is the default location for devsweep configuration.
const DefaultConfigDir = "~/.config/devsweep"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "devsweep.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultMaxDirectories caps the directories visited by one scan.
const DefaultMaxDirectories = 50000

// DefaultConcurrency is the number of projects analyzed at once.
const DefaultConcurrency = 10

// DefaultLogLevel is used when neither flag nor config sets one.
const DefaultLogLevel = "warn"

// DefaultDetection holds the default classification and protection
// settings.
var DefaultDetection = Detection{
	ActiveThresholdDays:    7,
	RecentThresholdDays:    30,
	StaleThresholdDays:     90,
	ConsiderGitActivity:    true,
	ConsiderIDEActivity:    true,
	GitTimeout:             10 * time.Second,
	ProtectUnreadableRepos: false,
	DetectOpenEditors:      true,
}

// DefaultCleanup holds the default cleanup policy.
var DefaultCleanup = Cleanup{
	MoveToTrash: true,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}
