package app

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
	"github.com/blackwell-systems/devsweep/internal/logging"
	"github.com/blackwell-systems/devsweep/internal/output"
)

var globalsFlagAll bool

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "Measure global package caches",
	Long: `Globals measures the caches that toolchains keep outside any project,
such as the npm cache, the Cargo registry, Xcode DerivedData and the Go
module cache. devsweep never removes these; the listing shows where space
goes so you can use the toolchain's own clean command.`,
	RunE: runGlobals,
}

func init() {
	globalsCmd.Flags().BoolVar(&globalsFlagAll, "all", false, "Include caches that do not exist")
	rootCmd.AddCommand(globalsCmd)
}

// globalCache is the JSON shape of one measured cache.
type globalCache struct {
	Ecosystem   ecosystem.ID `json:"ecosystem"`
	Path        string       `json:"path"`
	Description string       `json:"description"`
	Exists      bool         `json:"exists"`
	Size        int64        `json:"size"`
}

// measureGlobals sizes every global path of the enabled ecosystems.
func measureGlobals(ctx context.Context, registry *ecosystem.Registry, enabled []ecosystem.ID) ([]globalCache, error) {
	var caches []globalCache
	for _, id := range enabled {
		plugin, ok := registry.Get(id)
		if !ok {
			continue
		}
		for _, g := range plugin.GlobalPaths() {
			caches = append(caches, globalCache{Ecosystem: id, Path: g.Path, Description: g.Description})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range caches {
		c := &caches[i]
		g.Go(func() error {
			if _, err := os.Lstat(c.Path); err != nil {
				return nil
			}
			c.Exists = true
			size, err := ecosystem.DirSize(ctx, c.Path)
			if err != nil {
				logging.Log.WithError(err).WithField("path", c.Path).Debug("measuring global cache failed")
			}
			c.Size = size
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return caches, nil
}

func runGlobals(cmd *cobra.Command, args []string) error {
	prov, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := prov.Current()

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	caches, err := measureGlobals(cmd.Context(), registry, cfg.EnabledEcosystems(registry.IDs()))
	if err != nil {
		return fmt.Errorf("measuring global caches: %w", err)
	}
	if !globalsFlagAll {
		caches = lo.Filter(caches, func(c globalCache, _ int) bool { return c.Exists })
	}

	if flagJSON {
		return renderJSON(caches)
	}

	fmt.Println(output.Section("Global caches"))
	fmt.Println()
	if len(caches) == 0 {
		fmt.Println(output.StyleMuted.Render(" No global caches found."))
		return nil
	}
	total := lo.SumBy(caches, func(c globalCache) int64 { return c.Size })
	tbl := output.NewTable("Ecosystem", "Cache", "Size", "Share", "Path")
	for _, c := range caches {
		size := output.Bytes(c.Size)
		if !c.Exists {
			size = output.StyleMuted.Render("absent")
		}
		tbl.AddRow(string(c.Ecosystem), c.Description, size,
			output.SizeBar(c.Size, total, 12), output.StyleMuted.Render(c.Path))
	}
	tbl.Print()
	fmt.Printf("\n %s %s\n\n",
		output.StyleLabel.Render("Total:"),
		output.StyleValue.Render(output.Bytes(total)))
	return nil
}
