// Package progress derives completion figures from a project document.
// Every function is pure.
package progress

import (
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// PhaseProgress is the percentage of tools in doc that are completed.
// A phase with no tools is at 0.
func PhaseProgress(doc domain.PhaseDoc) float64 {
	completed, total := count(doc)
	if total == 0 {
		return 0
	}
	return float64(completed) * 100 / float64(total)
}

// OverallProgress is the mean of the five phase percentages. Phases are
// weighted equally whatever their tool count.
func OverallProgress(p *domain.Project) float64 {
	phases := domain.Phases()
	var sum float64
	for _, ph := range phases {
		sum += PhaseProgress(p.Phase(ph))
	}
	return sum / float64(len(phases))
}

type PhaseBreakdown struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Progress  float64 `json:"progress"`
}

type Statistics struct {
	TotalPhases     int                             `json:"total_phases"`
	CompletedPhases int                             `json:"completed_phases"`
	TotalTools      int                             `json:"total_tools"`
	CompletedTools  int                             `json:"completed_tools"`
	Phases          map[domain.Phase]PhaseBreakdown `json:"phases"`
	OverallProgress float64                         `json:"overall_progress"`
	HasDataset      bool                            `json:"has_uploaded_data"`
	DatasetInfo     *tabular.Info                   `json:"data_info"`
}

// Compute returns totals and a per-phase breakdown. A phase counts as
// completed only at exactly 100.
func Compute(p *domain.Project) Statistics {
	phases := domain.Phases()
	stats := Statistics{
		TotalPhases: len(phases),
		Phases:      make(map[domain.Phase]PhaseBreakdown, len(phases)),
	}
	for _, ph := range phases {
		doc := p.Phase(ph)
		completed, total := count(doc)
		pct := PhaseProgress(doc)
		stats.Phases[ph] = PhaseBreakdown{Completed: completed, Total: total, Progress: pct}
		stats.TotalTools += total
		stats.CompletedTools += completed
		if pct == 100 {
			stats.CompletedPhases++
		}
	}
	stats.OverallProgress = OverallProgress(p)

	if d, ok := p.Dataset(); ok {
		stats.HasDataset = true
		stats.DatasetInfo = d.Info
	}
	return stats
}

func count(doc domain.PhaseDoc) (completed, total int) {
	for _, r := range doc.Tools {
		total++
		if r.Completed {
			completed++
		}
	}
	return completed, total
}
