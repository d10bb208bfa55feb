package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/config"
	"github.com/blackwell-systems/devsweep/internal/editor"
	"github.com/blackwell-systems/devsweep/internal/logging"
	"github.com/blackwell-systems/devsweep/internal/output"
	"github.com/blackwell-systems/devsweep/internal/scanner"
)

var (
	scanFlagPaths     []string
	scanFlagExclude   []string
	scanFlagStatus    []string
	scanFlagEcosystem []string
	scanFlagMinSize   string
	scanFlagSort      string
	scanFlagLimit     int
	scanFlagNoCache   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find projects and measure their artifacts",
	Long: `Scan walks the configured scan paths, recognizes project roots of every
enabled ecosystem, measures their cleanable artifacts and classifies each
project by how recently it was used.

The result is cached so 'devsweep clean' can act on it. Press Ctrl-C to
stop early; partial results are shown but not cached.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanFlagPaths, "path", nil, "Scan these paths instead of the configured ones (can be repeated)")
	scanCmd.Flags().StringSliceVar(&scanFlagExclude, "exclude", nil, "Additional paths to exclude (can be repeated)")
	scanCmd.Flags().StringSliceVar(&scanFlagStatus, "status", nil, "Only show projects with this status (can be repeated)")
	scanCmd.Flags().StringSliceVar(&scanFlagEcosystem, "ecosystem", nil, "Only show projects of this ecosystem (can be repeated)")
	scanCmd.Flags().StringVar(&scanFlagMinSize, "min-size", "", "Only show projects with at least this much cleanable data (e.g. 100MB)")
	scanCmd.Flags().StringVar(&scanFlagSort, "sort", "size", "Sort by: size, name, activity")
	scanCmd.Flags().IntVar(&scanFlagLimit, "limit", 0, "Show at most this many projects (0 = all)")
	scanCmd.Flags().BoolVar(&scanFlagNoCache, "no-cache", false, "Do not store the result in the scan cache")
	rootCmd.AddCommand(scanCmd)
}

// scanReport is the JSON shape of a scan.
type scanReport struct {
	*scanner.Result
	Disks []diskReport `json:"disks,omitempty"`
}

type diskReport struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

func runScan(cmd *cobra.Command, args []string) error {
	prov, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := prov.Current()
	if prov.Watch() {
		logging.Log.WithField("file", prov.File()).Debug("watching config for changes")
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	opts := cfg.ScanOptions(registry.IDs())
	if len(scanFlagPaths) > 0 {
		opts.Paths = scanFlagPaths
	}
	opts.ExcludePaths = append(opts.ExcludePaths, scanFlagExclude...)

	filter, err := newProjectFilter(scanFlagStatus, scanFlagEcosystem, scanFlagMinSize, registry.IDs())
	if err != nil {
		return err
	}

	scanOpts := []scanner.Option{
		scanner.WithEditorSource(editor.NewDetector(editor.DefaultSampleSize)),
		scanner.WithLogger(logging.Log),
	}
	showProgress := progressEnabled(isatty.IsTerminal(os.Stderr.Fd()))
	if showProgress {
		scanOpts = append(scanOpts, scanner.WithSink(scanner.SinkFunc(printProgress)))
	}
	sc := scanner.New(registry, func() scanner.Settings {
		return prov.Current().ScannerSettings()
	}, scanOpts...)

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	onShutdown(ctx, sc.Cancel)

	res, err := sc.Scan(ctx, opts)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	if showProgress {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}

	if !res.Cancelled && !scanFlagNoCache {
		if err := cacheScan(res, opts.Paths); err != nil {
			logging.Log.WithError(err).Warn("could not cache scan result")
		}
	}

	disks := diskUsage(opts.Paths)

	shown := filter.apply(res.Projects)
	if err := sortProjects(shown, scanFlagSort); err != nil {
		return err
	}
	if scanFlagLimit > 0 && len(shown) > scanFlagLimit {
		shown = shown[:scanFlagLimit]
	}

	if flagJSON {
		view := *res
		view.Projects = shown
		return renderJSON(scanReport{Result: &view, Disks: disks})
	}
	renderProjects(shown)
	renderScanSummary(res, cfg)
	renderDisks(disks)
	return nil
}

func cacheScan(res *scanner.Result, roots []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.SaveScan(res, roots)
	return err
}

// progressEnabled reports whether the live progress line is drawn. It is
// made of terminal escape sequences, so --no-color and --json turn it off.
func progressEnabled(stderrTTY bool) bool {
	return stderrTTY && !flagJSON && !output.IsNoColor()
}

func printProgress(p scanner.Progress) {
	switch p.Phase {
	case scanner.Discovering:
		fmt.Fprint(os.Stderr, "\r\033[K Discovering projects...")
	case scanner.Analyzing:
		fmt.Fprintf(os.Stderr, "\r\033[K Analyzing %d projects... %s found",
			p.ProjectsFound, output.Bytes(p.TotalSize))
	case scanner.Cancelled:
		fmt.Fprint(os.Stderr, "\r\033[K Scan cancelled.\n")
	}
}

// diskUsage reports the filesystem of each scan root once.
func diskUsage(roots []string) []diskReport {
	var reports []diskReport
	for _, root := range roots {
		u, err := disk.Usage(expandHome(root))
		if err != nil {
			logging.Log.WithError(err).WithField("path", root).Debug("disk usage unavailable")
			continue
		}
		reports = append(reports, diskReport{
			Path:        u.Path,
			Total:       u.Total,
			Free:        u.Free,
			UsedPercent: u.UsedPercent,
		})
	}
	return lo.UniqBy(reports, func(d diskReport) [2]uint64 { return [2]uint64{d.Total, d.Free} })
}

func renderProjects(projects []scanner.Project) {
	fmt.Println(output.Section("Projects"))
	fmt.Println()
	if len(projects) == 0 {
		fmt.Println(output.StyleMuted.Render(" No projects found."))
		return
	}

	tbl := output.NewTable("Status", "Project", "Ecosystem", "Size", "Last Active", "Notes")
	for _, p := range projects {
		status := output.StatusBadge(p.Status)
		if p.Status == "" {
			status = output.StyleMuted.Render("?")
		}
		notes := ""
		if p.IsProtected {
			notes = output.ProtectedBadge(p.ProtectionReason)
		}
		last := p.LastModified
		tbl.AddRow(status, output.StyleBold.Render(p.Name), string(p.Ecosystem), output.Bytes(p.TotalSize), output.Ago(&last), notes)
	}
	tbl.Print()
}

func renderScanSummary(res *scanner.Result, cfg *config.Config) {
	var cleanable int64
	for _, s := range res.EcosystemSummary {
		cleanable += s.CleanableSize
	}

	fmt.Println(output.Section("Summary"))
	fmt.Println()
	if len(res.EcosystemSummary) > 0 {
		tbl := output.NewTable("Ecosystem", "Projects", "Size", "Cleanable", "Share")
		for _, s := range res.EcosystemSummary {
			tbl.AddRow(string(s.Ecosystem), output.Count(s.ProjectCount), output.Bytes(s.TotalSize),
				output.Bytes(s.CleanableSize), output.SizeBar(s.TotalSize, res.TotalSize, 16))
		}
		tbl.Print()
		fmt.Println()
	}

	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Projects:"),
		output.StyleValue.Render(output.Count(res.TotalProjects)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Artifact size:"),
		output.StyleValue.Render(output.Bytes(res.TotalSize)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Not protected:"),
		output.StyleValue.Render(output.Bytes(cleanable)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Directories scanned:"),
		output.StyleValue.Render(output.Count(res.DirectoriesScanned)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Duration:"),
		output.StyleValue.Render(res.Duration.Round(10*time.Millisecond).String()))

	if res.Truncated {
		fmt.Println(output.StyleWarning.Render(fmt.Sprintf(
			"\n Stopped after %s directories; raise max_directories to scan everything.",
			output.Count(cfg.MaxDirectories))))
	}
	if res.Cancelled {
		fmt.Println(output.StyleWarning.Render("\n Scan was cancelled; results are partial and were not cached."))
	}
	fmt.Println()
}

func renderDisks(disks []diskReport) {
	if len(disks) == 0 {
		return
	}
	fmt.Println(output.Section("Disk"))
	fmt.Println()
	tbl := output.NewTable("Path", "Free", "Total", "Used")
	for _, d := range disks {
		tbl.AddRow(d.Path, output.Bytes(int64(d.Free)), output.Bytes(int64(d.Total)),
			output.SizeBar(int64(d.Total-d.Free), int64(d.Total), 16))
	}
	tbl.Print()
	fmt.Println()
}

func expandHome(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
