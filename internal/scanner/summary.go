package scanner

import (
	"github.com/samber/lo"

	"github.com/blackwell-systems/devsweep/internal/ecosystem"
)

// summarize fills the totals and per-ecosystem summary of res. Summaries
// follow registry order.
func summarize(res *Result, order []ecosystem.ID) {
	res.TotalProjects = len(res.Projects)
	res.TotalSize = lo.SumBy(res.Projects, func(p Project) int64 { return p.TotalSize })

	groups := lo.GroupBy(res.Projects, func(p Project) ecosystem.ID { return p.Ecosystem })
	res.EcosystemSummary = []EcosystemSummary{}
	for _, id := range order {
		projects, ok := groups[id]
		if !ok {
			continue
		}
		res.EcosystemSummary = append(res.EcosystemSummary, EcosystemSummary{
			Ecosystem:    id,
			ProjectCount: len(projects),
			TotalSize:    lo.SumBy(projects, func(p Project) int64 { return p.TotalSize }),
			CleanableSize: lo.SumBy(projects, func(p Project) int64 {
				if p.IsProtected {
					return 0
				}
				return p.TotalSize
			}),
		})
	}
}
