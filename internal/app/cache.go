package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/config"
	"github.com/blackwell-systems/devsweep/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the scan cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached result of the last scan",
	RunE:  runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached scan and scan history",
	Long: `Clear removes the cached projects and the scan history. The log of
cleaned projects and its statistics are kept.`,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	prov, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cached, err := db.LatestScan()
	if err != nil {
		return fmt.Errorf("loading cached scan: %w", err)
	}
	if cached == nil {
		if flagJSON {
			return renderJSON(nil)
		}
		fmt.Println(output.StyleMuted.Render(" No cached scan. Run 'devsweep scan'."))
		return nil
	}
	if flagJSON {
		return renderJSON(cached)
	}

	started := cached.Record.StartedAt
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Scanned:"),
		output.StyleValue.Render(output.Ago(&started)))
	projects := cached.Result.Projects
	if err := sortProjects(projects, "size"); err != nil {
		return err
	}
	renderProjects(projects)
	renderScanSummary(cached.Result, prov.Current())
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.ClearCache(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Printf("Cleared scan cache in %s\n", config.DBPath())
	return nil
}
