// Package app contains the Cobra command tree for devsweep.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/config"
	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/logging"
	"github.com/blackwell-systems/devsweep/internal/output"
	"github.com/blackwell-systems/devsweep/internal/store"
	"github.com/blackwell-systems/devsweep/internal/trash"
	"github.com/blackwell-systems/devsweep/internal/vcs"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor  bool
	flagJSON     bool
	flagLogLevel string
	flagConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "devsweep",
	Short: "Find and clean disposable build artifacts across your projects",
	Long: `devsweep walks your project directories, recognizes the ecosystem of
each project (Node.js, Rust, Xcode, Python, Go, ...), measures the build
and dependency artifacts it left behind, and classifies every project as
active, recent, stale or dormant.

Projects with uncommitted changes, projects open in an editor and paths you
list as protected are never cleaned.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("devsweep", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  scan        Find projects and measure their artifacts")
		fmt.Println("  clean       Remove artifacts of stale and dormant projects")
		fmt.Println("  ecosystems  List supported ecosystems")
		fmt.Println("  globals     Measure global package caches")
		fmt.Println("  history     Show past scans and cleanup statistics")
		fmt.Println("  cache       Manage the scan cache")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file path (default: "+filepath.Join(config.DefaultConfigDir, config.DefaultConfigFile)+")")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
}

// loadConfig loads the configuration and applies the output and logging
// preferences it carries. Flags win over the config file.
func loadConfig() (*config.Provider, error) {
	prov, err := config.NewProvider(flagConfig, logging.Log)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := prov.Current()

	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if err := logging.SetLevel(level); err != nil {
		return nil, err
	}

	if flagNoColor || !cfg.Output.Color || !stdoutIsTerminal() {
		output.SetNoColor(true)
	}
	return prov, nil
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newRegistry builds the plugin registry with live collaborators.
func newRegistry(cfg *config.Config) (*ecosystem.Registry, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("locating home directory: %w", err)
	}
	return ecosystem.NewDefaultRegistry(ecosystem.Deps{
		VCS:   vcs.NewGit(cfg.Detection.GitTimeout, logging.Log),
		Trash: trash.Default(),
		Home:  home,
		Log:   logging.Log,
	}), nil
}

func openStore() (*store.DB, error) {
	db, err := store.Open(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func renderJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
