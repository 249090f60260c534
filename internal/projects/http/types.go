package http

import (
	"encoding/json"

	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/progress"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/repository"
)

// DefaultMaxUploadBytes bounds the multipart body of a dataset upload.
const DefaultMaxUploadBytes = 32 << 20

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	repo           *repository.ProjectRepository
	maxUploadBytes int64
}

func New(repo *repository.ProjectRepository, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{repo: repo, maxUploadBytes: maxUploadBytes}
}

// saveToolReq carries a tool payload. Data stays raw so an absent field
// can be told apart from an explicit null.
type saveToolReq struct {
	Data      json.RawMessage `json:"data"`
	Completed *bool           `json:"completed"`
}

// projectSummary is the list view of a project.
type projectSummary struct {
	ProjectID       string        `json:"project_id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Status          domain.Status `json:"status"`
	CurrentPhase    domain.Phase  `json:"current_phase"`
	ExpectedSavings float64       `json:"expected_savings"`
	StartDate       string        `json:"start_date"`
	TargetEndDate   string        `json:"target_end_date"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
	Progress        float64       `json:"progress"`
}

func summarize(p *domain.Project) projectSummary {
	return projectSummary{
		ProjectID:       p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Status:          p.Status,
		CurrentPhase:    p.CurrentPhase,
		ExpectedSavings: p.ExpectedSavings,
		StartDate:       domain.FormatDate(p.StartDate),
		TargetEndDate:   domain.FormatDate(p.TargetEndDate),
		CreatedAt:       domain.FormatTimestamp(p.CreatedAt),
		UpdatedAt:       domain.FormatTimestamp(p.UpdatedAt),
		Progress:        progress.OverallProgress(p),
	}
}
