package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/output"
	"github.com/blackwell-systems/devsweep/internal/store"
)

var (
	historyFlagLimit     int
	historyFlagDeletions bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past scans and cleanup statistics",
	Long: `History lists recent scans and totals of everything devsweep has
cleaned. Use --deletions to list individual cleaned projects.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 10, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyFlagDeletions, "deletions", false, "List cleaned projects instead of scans")
	rootCmd.AddCommand(historyCmd)
}

// historyReport is the JSON shape of the history command.
type historyReport struct {
	Scans      []store.ScanRecord `json:"scans,omitempty"`
	Deletions  []store.Deletion   `json:"deletions,omitempty"`
	Statistics *store.Statistics  `json:"statistics"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var report historyReport
	if historyFlagDeletions {
		if report.Deletions, err = db.ListDeletions(historyFlagLimit); err != nil {
			return fmt.Errorf("listing deletions: %w", err)
		}
	} else if report.Scans, err = db.ListScans(historyFlagLimit); err != nil {
		return fmt.Errorf("listing scans: %w", err)
	}
	if report.Statistics, err = db.Statistics(); err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}

	if flagJSON {
		return renderJSON(report)
	}
	if historyFlagDeletions {
		renderDeletions(report.Deletions)
	} else {
		renderScans(report.Scans)
	}
	renderStatistics(report.Statistics)
	return nil
}

func renderScans(scans []store.ScanRecord) {
	fmt.Println(output.Section("Scans"))
	fmt.Println()
	if len(scans) == 0 {
		fmt.Println(output.StyleMuted.Render(" No scans yet. Run 'devsweep scan'."))
		return
	}
	tbl := output.NewTable("When", "Roots", "Projects", "Size", "Directories")
	for _, s := range scans {
		started := s.StartedAt
		dirs := output.Count(s.DirectoriesScanned)
		if s.Truncated {
			dirs += output.StyleWarning.Render(" (limit)")
		}
		tbl.AddRow(output.Ago(&started), strings.Join(s.Roots, ", "),
			output.Count(s.TotalProjects), output.Bytes(s.TotalSize), dirs)
	}
	tbl.Print()
}

func renderDeletions(deletions []store.Deletion) {
	fmt.Println(output.Section("Cleaned projects"))
	fmt.Println()
	if len(deletions) == 0 {
		fmt.Println(output.StyleMuted.Render(" Nothing cleaned yet."))
		return
	}
	tbl := output.NewTable("When", "Project", "Ecosystem", "Freed", "Method")
	for _, d := range deletions {
		at := d.DeletedAt
		method := "deleted"
		if d.Trashed {
			method = "trash"
		}
		tbl.AddRow(output.Ago(&at), d.ProjectPath, string(d.Ecosystem), output.Bytes(d.TotalSize), method)
	}
	tbl.Print()
}

func renderStatistics(s *store.Statistics) {
	fmt.Println(output.Section("Statistics"))
	fmt.Println()
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Total freed:"),
		output.StyleValue.Render(output.Bytes(s.TotalBytesFreed)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Projects cleaned:"),
		output.StyleValue.Render(output.Count(s.TotalProjectsCleaned)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Cleanups:"),
		output.StyleValue.Render(output.Count(s.CleanupCount)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Largest cleanup:"),
		output.StyleValue.Render(output.Bytes(s.LargestCleanup)))
	fmt.Printf(" %s %s\n",
		output.StyleLabel.Render("Last cleanup:"),
		output.StyleValue.Render(output.Ago(s.LastCleanup)))

	if len(s.Ecosystems) > 0 {
		fmt.Println()
		tbl := output.NewTable("Ecosystem", "Freed", "Projects", "Share")
		for _, e := range s.Ecosystems {
			tbl.AddRow(string(e.Ecosystem), output.Bytes(e.BytesFreed), output.Count(e.ProjectsCleaned),
				output.SizeBar(e.BytesFreed, s.TotalBytesFreed, 12))
		}
		tbl.Print()
	}
	fmt.Println()
}
