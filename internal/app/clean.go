package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/editor"
	"github.com/blackwell-systems/devsweep/internal/logging"
	"github.com/blackwell-systems/devsweep/internal/output"
	"github.com/blackwell-systems/devsweep/internal/protect"
	"github.com/blackwell-systems/devsweep/internal/scanner"
	"github.com/blackwell-systems/devsweep/internal/store"
	"github.com/blackwell-systems/devsweep/internal/vcs"
)

var (
	cleanFlagStatus        []string
	cleanFlagEcosystem     []string
	cleanFlagMinSize       string
	cleanFlagIncludeRecent bool
	cleanFlagDryRun        bool
	cleanFlagYes           bool
	cleanFlagPermanent     bool
	cleanFlagIncludeUnsafe bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove artifacts of stale and dormant projects",
	Long: `Clean acts on the result of the last 'devsweep scan'. Every candidate is
checked again right before removal: projects in protected paths, with
uncommitted changes or open in an editor are skipped.

By default only stale and dormant projects are cleaned and artifacts are
moved to the trash. Directories that may hold your own files, such as a Go
vendor/ or a Python env/, are kept unless --include-unsafe is given. Use
--dry-run to see what would be removed.

Examples:
  devsweep clean --dry-run
  devsweep clean --status dormant --min-size 500MB
  devsweep clean --ecosystem nodejs --ecosystem rust --yes`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanFlagStatus, "status", nil, "Only clean projects with this status (can be repeated)")
	cleanCmd.Flags().StringSliceVar(&cleanFlagEcosystem, "ecosystem", nil, "Only clean projects of this ecosystem (can be repeated)")
	cleanCmd.Flags().StringVar(&cleanFlagMinSize, "min-size", "", "Only clean projects with at least this much data (e.g. 100MB)")
	cleanCmd.Flags().BoolVar(&cleanFlagIncludeRecent, "include-recent", false, "Also clean recently used projects")
	cleanCmd.Flags().BoolVar(&cleanFlagDryRun, "dry-run", false, "Show what would be removed without removing it")
	cleanCmd.Flags().BoolVarP(&cleanFlagYes, "yes", "y", false, "Do not ask for confirmation")
	cleanCmd.Flags().BoolVar(&cleanFlagPermanent, "permanent", false, "Delete instead of moving to the trash")
	cleanCmd.Flags().BoolVar(&cleanFlagIncludeUnsafe, "include-unsafe", false, "Also remove artifacts that may hold your own files (vendor/, env/)")
	rootCmd.AddCommand(cleanCmd)
}

// skippedProject is a filtered-in project that was not cleaned.
type skippedProject struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// cleanedProject is the outcome for one project.
type cleanedProject struct {
	ID        string                `json:"id"`
	Path      string                `json:"path"`
	Ecosystem ecosystem.ID          `json:"ecosystem"`
	Result    ecosystem.CleanResult `json:"result"`
}

// cleanReport is the JSON shape of a clean run.
type cleanReport struct {
	RunID      string           `json:"run_id"`
	DryRun     bool             `json:"dry_run"`
	BytesFreed int64            `json:"bytes_freed"`
	Cleaned    []cleanedProject `json:"cleaned"`
	Skipped    []skippedProject `json:"skipped,omitempty"`
}

// cleaner selects and cleans cached projects.
type cleaner struct {
	registry *ecosystem.Registry
	analyzer *protect.Analyzer
	db       *store.DB
	opts     ecosystem.CleanOptions
	log      logrus.FieldLogger
	now      func() time.Time
}

// plan re-checks protection of every matching project and returns the
// projects that may be cleaned. Newly protected projects are written back
// to the cache.
func (c *cleaner) plan(ctx context.Context, projects []scanner.Project, filter projectFilter, includeRecent bool) ([]scanner.Project, []skippedProject) {
	var (
		candidates []scanner.Project
		skipped    []skippedProject
	)
	for _, p := range filter.apply(projects) {
		if ctx.Err() != nil {
			break
		}
		if _, err := os.Stat(p.Path); err != nil {
			skipped = append(skipped, skippedProject{Path: p.Path, Reason: "no longer exists"})
			continue
		}

		verdict := c.analyzer.Analyze(ctx, p.Path)
		if verdict.IsProtected {
			if !p.IsProtected || p.ProtectionReason != verdict.Reason() {
				p.IsProtected = true
				p.ProtectionReason = verdict.Reason()
				if !c.opts.DryRun {
					if err := c.db.UpdateCachedProject(p); err != nil {
						c.log.WithError(err).WithField("path", p.Path).Warn("could not update cached project")
					}
				}
			}
			skipped = append(skipped, skippedProject{Path: p.Path, Reason: verdict.Reason()})
			continue
		}
		// A scan-time reason that no longer applies is dropped, except
		// activity: that stays until the next scan reclassifies.
		if p.IsProtected && !strings.Contains(p.ProtectionReason, protect.ReasonActive) {
			p.IsProtected = false
			p.ProtectionReason = ""
		}

		if !cleanable(p, includeRecent) {
			reason := fmt.Sprintf("status %s", p.Status)
			switch {
			case p.IsProtected:
				reason = p.ProtectionReason
			case p.TotalSize == 0:
				reason = "nothing to clean"
			}
			skipped = append(skipped, skippedProject{Path: p.Path, Reason: reason})
			continue
		}
		candidates = append(candidates, p)
	}
	return candidates, skipped
}

// run cleans every candidate, logs the deletions under one run id and
// refreshes the cached size of each cleaned project.
func (c *cleaner) run(ctx context.Context, candidates []scanner.Project) cleanReport {
	report := cleanReport{RunID: uuid.NewString(), DryRun: c.opts.DryRun, Cleaned: []cleanedProject{}}
	for _, p := range candidates {
		if ctx.Err() != nil {
			break
		}
		log := c.log.WithFields(logrus.Fields{"path": p.Path, "ecosystem": p.Ecosystem})
		plugin, ok := c.registry.Get(p.Ecosystem)
		if !ok {
			report.Skipped = append(report.Skipped, skippedProject{Path: p.Path, Reason: "unknown ecosystem"})
			continue
		}

		res := plugin.Clean(ctx, p.Path, c.opts)
		report.BytesFreed += res.BytesFreed
		report.Cleaned = append(report.Cleaned, cleanedProject{
			ID: p.ID, Path: p.Path, Ecosystem: p.Ecosystem, Result: res,
		})
		for _, e := range res.Errors {
			log.WithField("artifact", e.Path).Warn(e.Err)
		}
		if c.opts.DryRun || res.ArtifactsFreed == 0 {
			continue
		}

		removed := lo.Filter(p.Artifacts, func(a ecosystem.Artifact, _ int) bool {
			return lo.Contains(res.Cleaned, a.Path)
		})
		if err := c.db.InsertDeletion(&store.Deletion{
			RunID:       report.RunID,
			DeletedAt:   c.now(),
			ProjectID:   p.ID,
			ProjectPath: p.Path,
			ProjectName: p.Name,
			Ecosystem:   p.Ecosystem,
			Artifacts:   removed,
			TotalSize:   res.BytesFreed,
			Trashed:     c.opts.MoveToTrash,
		}); err != nil {
			log.WithError(err).Warn("could not record deletion")
		}

		p.TotalSize, p.Artifacts = plugin.CalculateSize(ctx, p.Path)
		if err := c.db.UpdateCachedProject(p); err != nil {
			log.WithError(err).Warn("could not update cached project")
		}
	}
	return report
}

func runClean(cmd *cobra.Command, args []string) error {
	prov, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := prov.Current()

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
		return fmt.Errorf("no cached scan; run 'devsweep scan' first")
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	filter, err := newProjectFilter(cleanFlagStatus, cleanFlagEcosystem, cleanFlagMinSize, registry.IDs())
	if err != nil {
		return err
	}

	c := &cleaner{
		registry: registry,
		analyzer: protect.NewAnalyzer(func() protect.Settings {
			return prov.Current().ProtectSettings()
		}, vcs.NewGit(cfg.Detection.GitTimeout, logging.Log), editor.Processes{}),
		db: db,
		opts: ecosystem.CleanOptions{
			DryRun:        cleanFlagDryRun,
			MoveToTrash:   cfg.Cleanup.MoveToTrash && !cleanFlagPermanent,
			IncludeUnsafe: cleanFlagIncludeUnsafe,
		},
		log: logging.Log,
		now: time.Now,
	}

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	onShutdown(ctx, stop)

	candidates, skipped := c.plan(ctx, cached.Result.Projects, filter, cleanFlagIncludeRecent)
	if len(candidates) == 0 {
		if flagJSON {
			return renderJSON(cleanReport{DryRun: cleanFlagDryRun, Cleaned: []cleanedProject{}, Skipped: skipped})
		}
		renderSkipped(skipped)
		fmt.Println(output.StyleMuted.Render("\n Nothing to clean."))
		return nil
	}

	if !cleanFlagDryRun && !cleanFlagYes && !flagJSON {
		renderCandidates(candidates, c.opts.MoveToTrash)
		if !confirmClean() {
			fmt.Println(" Aborted.")
			return nil
		}
	}

	report := c.run(ctx, candidates)
	report.Skipped = append(skipped, report.Skipped...)
	if flagJSON {
		return renderJSON(report)
	}
	renderCleanReport(report)
	return nil
}

// confirmClean prompts the user for confirmation before removing anything.
func confirmClean() bool {
	fmt.Print("\n  Remove these artifacts? [y/n] ")
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func renderCandidates(candidates []scanner.Project, toTrash bool) {
	title := "Will be deleted permanently"
	if toTrash {
		title = "Will be moved to the trash"
	}
	fmt.Println(output.Section(title))
	fmt.Println()
	tbl := output.NewTable("Status", "Project", "Ecosystem", "Size")
	var total int64
	for _, p := range candidates {
		tbl.AddRow(output.StatusBadge(p.Status), p.Path, string(p.Ecosystem), output.Bytes(p.TotalSize))
		total += p.TotalSize
	}
	tbl.Print()
	fmt.Printf("\n %s %s\n",
		output.StyleLabel.Render("Total:"),
		output.StyleValue.Render(output.Bytes(total)))
}

func renderSkipped(skipped []skippedProject) {
	if len(skipped) == 0 {
		return
	}
	fmt.Println(output.Section("Skipped"))
	fmt.Println()
	tbl := output.NewTable("Project", "Reason")
	for _, s := range skipped {
		tbl.AddRow(s.Path, output.StyleMuted.Render(s.Reason))
	}
	tbl.Print()
}

func renderCleanReport(r cleanReport) {
	title := "Cleaned"
	if r.DryRun {
		title = "Would clean (dry run)"
	}
	fmt.Println(output.Section(title))
	fmt.Println()
	tbl := output.NewTable("Project", "Ecosystem", "Artifacts", "Freed", "Kept", "Errors")
	var kept []string
	for _, c := range r.Cleaned {
		errs := ""
		if n := len(c.Result.Errors); n > 0 {
			errs = output.StyleError.Render(fmt.Sprintf("%d", n))
		}
		keptCol := ""
		if n := len(c.Result.Kept); n > 0 {
			keptCol = output.StyleWarning.Render(output.Count(n))
			kept = append(kept, c.Result.Kept...)
		}
		tbl.AddRow(c.Path, string(c.Ecosystem), output.Count(c.Result.ArtifactsFreed),
			output.Bytes(c.Result.BytesFreed), keptCol, errs)
	}
	tbl.Print()

	if len(kept) > 0 {
		fmt.Println(output.StyleMuted.Render("\n Kept (may hold your own files, use --include-unsafe to remove):"))
		for _, k := range kept {
			fmt.Println(output.StyleMuted.Render("   " + k))
		}
	}

	renderSkipped(r.Skipped)

	label := "Freed:"
	if r.DryRun {
		label = "Would free:"
	}
	fmt.Printf("\n %s %s\n\n",
		output.StyleLabel.Render(label),
		output.StyleSuccess.Render(output.Bytes(r.BytesFreed)))
}
