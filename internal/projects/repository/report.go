package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/progress"
)

// Report combines progress statistics with validation for one project.
type Report struct {
	ProjectID  string                     `json:"project_id"`
	Statistics progress.Statistics        `json:"statistics"`
	Validation domain.Validation          `json:"validation"`
	Phases     []progress.PhaseValidation `json:"phases"`
}

func (r *ProjectRepository) Statistics(ctx context.Context, projectID, ownerID string) (*Report, error) {
	p, err := r.load(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		ProjectID:  p.ID,
		Statistics: progress.Compute(p),
		Validation: domain.ValidateProject(p),
	}
	for _, ph := range domain.Phases() {
		rep.Phases = append(rep.Phases, progress.ValidatePhase(ph, p.Phase(ph)))
	}
	return rep, nil
}

// Summary aggregates every project the owner has.
func (r *ProjectRepository) Summary(ctx context.Context, ownerID string) progress.Summary {
	return progress.Summarize(r.ListByOwner(ctx, ownerID))
}

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// Export renders the project as a JSON document or a field/value CSV.
// It returns the body and its content type.
func (r *ProjectRepository) Export(ctx context.Context, projectID, ownerID string, format ExportFormat) ([]byte, string, error) {
	p, err := r.load(ctx, projectID, ownerID)
	if err != nil {
		return nil, "", err
	}

	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportJSON, "":
		doc := p.Document()
		doc["calculated_progress"] = progress.OverallProgress(p)
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode project: %w", err)
		}
		return body, "application/json", nil
	case ExportCSV:
		body, err := exportCSV(p)
		if err != nil {
			return nil, "", err
		}
		return body, "text/csv", nil
	default:
		return nil, "", &domain.ValidationError{Field: "format", Message: "must be json or csv"}
	}
}

func exportCSV(p *domain.Project) ([]byte, error) {
	rows := [][]string{
		{"field", "value"},
		{"name", p.Name},
		{"description", p.Description},
		{"status", string(p.Status)},
		{"current_phase", string(p.CurrentPhase)},
		{"expected_savings", strconv.FormatFloat(p.ExpectedSavings, 'f', 2, 64)},
		{"start_date", domain.FormatDate(p.StartDate)},
		{"target_end_date", domain.FormatDate(p.TargetEndDate)},
		{"created_at", domain.FormatTimestamp(p.CreatedAt)},
		{"calculated_progress", strconv.FormatFloat(progress.OverallProgress(p), 'f', 1, 64)},
	}
	for _, ph := range domain.Phases() {
		rows = append(rows, []string{
			"progress_" + string(ph),
			strconv.FormatFloat(progress.PhaseProgress(p.Phase(ph)), 'f', 1, 64),
		})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv export: %w", err)
	}
	return buf.Bytes(), nil
}
