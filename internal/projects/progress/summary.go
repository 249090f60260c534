package progress

import (
	"sort"

	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
)

type PhaseValidation struct {
	Phase           domain.Phase `json:"phase"`
	Progress        float64      `json:"progress"`
	CompletedTools  []string     `json:"completed_tools"`
	MissingRequired []string     `json:"missing_required"`
	Valid           bool         `json:"is_valid"`
}

// ValidatePhase reports which required catalog tools of ph are still open.
func ValidatePhase(ph domain.Phase, doc domain.PhaseDoc) PhaseValidation {
	v := PhaseValidation{
		Phase:           ph,
		Progress:        PhaseProgress(doc),
		CompletedTools:  []string{},
		MissingRequired: []string{},
	}
	for key, r := range doc.Tools {
		if r.Completed {
			v.CompletedTools = append(v.CompletedTools, key)
		}
	}
	sort.Strings(v.CompletedTools)
	for _, key := range domain.RequiredTools(ph) {
		if r, ok := doc.Tools[key]; !ok || !r.Completed {
			v.MissingRequired = append(v.MissingRequired, key)
		}
	}
	v.Valid = len(v.MissingRequired) == 0
	return v
}

// Summary aggregates one owner's projects.
type Summary struct {
	TotalProjects        int                   `json:"total_projects"`
	ByStatus             map[domain.Status]int `json:"by_status"`
	ByCurrentPhase       map[domain.Phase]int  `json:"by_current_phase"`
	TotalExpectedSavings float64               `json:"total_expected_savings"`
	AverageProgress      float64               `json:"average_progress"`
	AveragePlannedDays   float64               `json:"average_planned_days"`
	ToolsCompleted       int                   `json:"tools_completed"`
	CompletedProjects    int                   `json:"completed_projects"`
	ProgressByProject    map[string]float64    `json:"progress_by_project"`
}

// Summarize folds Compute over projects. A project is complete when its
// overall progress reaches 100.
func Summarize(projects []*domain.Project) Summary {
	s := Summary{
		ByStatus:          map[domain.Status]int{},
		ByCurrentPhase:    map[domain.Phase]int{},
		ProgressByProject: map[string]float64{},
	}
	if len(projects) == 0 {
		return s
	}

	var progressSum float64
	var daysSum, withDates int
	for _, p := range projects {
		s.TotalProjects++
		s.ByStatus[p.Status]++
		s.ByCurrentPhase[p.CurrentPhase]++
		s.TotalExpectedSavings += p.ExpectedSavings

		stats := Compute(p)
		progressSum += stats.OverallProgress
		s.ToolsCompleted += stats.CompletedTools
		s.ProgressByProject[p.ID] = stats.OverallProgress
		if stats.OverallProgress == 100 {
			s.CompletedProjects++
		}
		if days := p.PlannedDays(); days > 0 {
			daysSum += days
			withDates++
		}
	}
	s.AverageProgress = progressSum / float64(s.TotalProjects)
	if withDates > 0 {
		s.AveragePlannedDays = float64(daysSum) / float64(withDates)
	}
	return s
}
