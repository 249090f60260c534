package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// CreateProjectInput carries the caller-supplied fields of a new project.
// ExpectedSavings is untyped so non-numeric input can be reported.
type CreateProjectInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	BusinessCase    string `json:"business_case"`
	ExpectedSavings any    `json:"expected_savings"`
	StartDate       string `json:"start_date"`
	TargetEndDate   string `json:"target_end_date"`
}

// NewProject validates in and builds the initial project record with the
// full tool catalog. now supplies timestamps and the default start date.
func NewProject(id, ownerID string, in CreateProjectInput, now time.Time) (*Project, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &ValidationError{Field: "owner_id", Message: "is required"}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	savings, err := parseSavings(in.ExpectedSavings)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if s := strings.TrimSpace(in.StartDate); s != "" {
		if start = ParseDate(s); start.IsZero() {
			return nil, &ValidationError{Field: "start_date", Message: "must be a YYYY-MM-DD date"}
		}
	}
	end := start.Add(DefaultDuration)
	if s := strings.TrimSpace(in.TargetEndDate); s != "" {
		if end = ParseDate(s); end.IsZero() {
			return nil, &ValidationError{Field: "target_end_date", Message: "must be a YYYY-MM-DD date"}
		}
		if !end.After(start) {
			return nil, &ValidationError{Field: "target_end_date", Message: "must be after start_date"}
		}
	}

	return &Project{
		ID:              id,
		OwnerID:         ownerID,
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		BusinessCase:    strings.TrimSpace(in.BusinessCase),
		ExpectedSavings: savings,
		StartDate:       start,
		TargetEndDate:   end,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		CurrentPhase:    PhaseDefine,
		Phases:          NewCatalogPhases(),
	}, nil
}

func parseSavings(v any) (float64, error) {
	norm, err := tabular.Normalize(v)
	if err != nil {
		return 0, &ValidationError{Field: "expected_savings", Message: "must be a number"}
	}

	var f float64
	switch x := norm.(type) {
	case nil:
		return 0, nil
	case int64:
		f = float64(x)
	case float64:
		f = x
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, &ValidationError{Field: "expected_savings", Message: "must be a number"}
		}
		f = parsed
	default:
		return 0, &ValidationError{Field: "expected_savings", Message: "must be a number"}
	}
	if f < 0 {
		return 0, &ValidationError{Field: "expected_savings", Message: "must not be negative"}
	}
	return f, nil
}

// Validation is the advisory review of a stored project.
type Validation struct {
	Valid       bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ValidateProject reviews p for inconsistencies worth showing to its owner.
func ValidateProject(p *Project) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}, Suggestions: []string{}}

	if strings.TrimSpace(p.Name) == "" {
		v.Errors = append(v.Errors, "project name is required")
	}
	if p.ExpectedSavings < 0 {
		v.Errors = append(v.Errors, "expected savings must not be negative")
	}
	if !p.StartDate.IsZero() && !p.TargetEndDate.IsZero() && !p.TargetEndDate.After(p.StartDate) {
		v.Errors = append(v.Errors, "target end date must be after start date")
	}

	if days := p.PlannedDays(); days > 365 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("planned duration of %d days exceeds one year", days))
	} else if days > 0 && days < 30 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("planned duration of %d days is shorter than 30 days", days))
	}
	if p.ExpectedSavings == 0 {
		v.Warnings = append(v.Warnings, "expected savings not set")
	}

	prevStarted := true
	for i, ph := range phaseOrder {
		started := completedTools(p.Phase(ph)) > 0
		if started && !prevStarted {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("%s has completed tools but %s has none", ph.Title(), phaseOrder[i-1].Title()))
		}
		if !started && i <= p.CurrentPhase.Index() {
			v.Suggestions = append(v.Suggestions, fmt.Sprintf("start the %s phase tools", ph.Title()))
		}
		prevStarted = started
	}

	v.Valid = len(v.Errors) == 0
	return v
}

func completedTools(doc PhaseDoc) int {
	n := 0
	for _, r := range doc.Tools {
		if r.Completed {
			n++
		}
	}
	return n
}
