package app

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/output"
)

var ecosystemsCmd = &cobra.Command{
	Use:   "ecosystems",
	Short: "List supported ecosystems",
	Long: `List every supported ecosystem in detection order with its marker files,
cleanable artifact patterns and whether it is enabled in the config.`,
	RunE: runEcosystems,
}

func init() {
	rootCmd.AddCommand(ecosystemsCmd)
}

// ecosystemInfo is the JSON shape of one ecosystem.
type ecosystemInfo struct {
	ecosystem.Descriptor
	Enabled bool `json:"enabled"`
}

func runEcosystems(cmd *cobra.Command, args []string) error {
	prov, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := prov.Current()

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	enabled := cfg.EnabledEcosystems(registry.IDs())
	infos := lo.Map(registry.List(), func(d ecosystem.Descriptor, _ int) ecosystemInfo {
		return ecosystemInfo{Descriptor: d, Enabled: lo.Contains(enabled, d.ID)}
	})

	if flagJSON {
		return renderJSON(infos)
	}

	fmt.Println(output.Section("Ecosystems"))
	fmt.Println()
	tbl := output.NewTable("ID", "Name", "Enabled", "Markers", "Artifacts")
	for _, info := range infos {
		state := output.StyleError.Render("no")
		if info.Enabled {
			state = output.StyleSuccess.Render("yes")
		}
		patterns := lo.Map(info.Patterns, func(p ecosystem.Pattern, _ int) string {
			if p.AlwaysSafe {
				return p.Pattern
			}
			return p.Pattern + "*"
		})
		tbl.AddRow(string(info.ID), info.Name, state,
			strings.Join(info.Markers, ", "), strings.Join(patterns, ", "))
	}
	tbl.Print()
	fmt.Println(output.StyleMuted.Render("\n * may contain user content; review before cleaning"))
	fmt.Println()
	return nil
}
