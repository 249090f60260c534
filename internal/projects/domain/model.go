package domain

import (
	"strconv"
	"strings"
	"time"
)

// Collections of the persisted layout.
const (
	ProjectsCollection = "projects"
	UsersCollection    = "users"
)

const (
	DateLayout = "2006-01-02"
	// DefaultDuration is applied when a project has no target end date.
	DefaultDuration = 120 * 24 * time.Hour
)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusClosed }

// ToolRecord is one tool entry of a phase sub-document.
type ToolRecord struct {
	Completed bool
	Data      ToolData
	UpdatedAt string
	// Extra keeps any other stored keys of the record.
	Extra map[string]any
}

func (r ToolRecord) Value() map[string]any {
	out := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["completed"] = r.Completed
	if r.Data != nil {
		out["data"] = r.Data.Value()
	} else {
		out["data"] = map[string]any{}
	}
	if r.UpdatedAt != "" {
		out["updated_at"] = r.UpdatedAt
	}
	return out
}

// PhaseDoc is a phase sub-document. Only entries that are mappings with a
// boolean "completed" key are tools; everything else is kept in Extra.
type PhaseDoc struct {
	Tools map[string]ToolRecord
	Extra map[string]any
}

func (d PhaseDoc) Value() map[string]any {
	out := make(map[string]any, len(d.Tools)+len(d.Extra))
	for k, v := range d.Extra {
		out[k] = v
	}
	for k, r := range d.Tools {
		out[k] = r.Value()
	}
	return out
}

// DecodePhase splits a stored phase sub-document into tools and extras.
func DecodePhase(p Phase, raw map[string]any) PhaseDoc {
	doc := PhaseDoc{Tools: make(map[string]ToolRecord)}
	for key, val := range raw {
		m, ok := val.(map[string]any)
		completed, isTool := m["completed"].(bool)
		if !ok || !isTool {
			if doc.Extra == nil {
				doc.Extra = make(map[string]any)
			}
			doc.Extra[key] = val
			continue
		}

		rec := ToolRecord{
			Completed: completed,
			Data:      DecodeToolData(kindOf(p, key), m["data"]),
			UpdatedAt: asString(m["updated_at"]),
		}
		for k, v := range m {
			switch k {
			case "completed", "data", "updated_at":
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
		doc.Tools[key] = rec
	}
	return doc
}

// NewCatalogPhases builds every phase with each catalog tool incomplete
// and holding the empty payload of its kind.
func NewCatalogPhases() map[Phase]PhaseDoc {
	out := make(map[Phase]PhaseDoc, len(phaseOrder))
	for _, p := range phaseOrder {
		doc := PhaseDoc{Tools: make(map[string]ToolRecord, len(catalog[p]))}
		for _, t := range catalog[p] {
			doc.Tools[t.Key] = ToolRecord{Data: EmptyToolData(t.Kind)}
		}
		out[p] = doc
	}
	return out
}

// Project is the canonical project record stored at projects/{ID}.
type Project struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	BusinessCase    string
	ExpectedSavings float64
	StartDate       time.Time
	TargetEndDate   time.Time
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CurrentPhase    Phase
	Phases          map[Phase]PhaseDoc
	// Extra keeps top-level fields this model does not know.
	Extra map[string]any
}

// Phase returns the sub-document of p, empty when absent.
func (p *Project) Phase(ph Phase) PhaseDoc {
	if doc, ok := p.Phases[ph]; ok {
		return doc
	}
	return PhaseDoc{Tools: map[string]ToolRecord{}}
}

func (p *Project) Tool(ph Phase, key string) (ToolRecord, bool) {
	r, ok := p.Phase(ph).Tools[key]
	return r, ok
}

// Dataset returns the measure phase's upload, if one was ever stored.
func (p *Project) Dataset() (*DatasetAttachment, bool) {
	r, ok := p.Tool(PhaseMeasure, DatasetTool)
	if !ok {
		return nil, false
	}
	d, ok := r.Data.(*DatasetAttachment)
	if !ok || d.IsEmpty() {
		return nil, false
	}
	return d, true
}

// PlannedDays is the number of calendar days from start to target end.
func (p *Project) PlannedDays() int {
	if p.StartDate.IsZero() || p.TargetEndDate.IsZero() {
		return 0
	}
	return int(p.TargetEndDate.Sub(p.StartDate).Hours() / 24)
}

// Document returns the persisted layout of p.
func (p *Project) Document() map[string]any {
	doc := make(map[string]any, 12+len(phaseOrder)+len(p.Extra))
	for k, v := range p.Extra {
		doc[k] = v
	}
	doc["project_id"] = p.ID
	doc["owner_id"] = p.OwnerID
	doc["name"] = p.Name
	doc["description"] = p.Description
	doc["business_case"] = p.BusinessCase
	doc["expected_savings"] = p.ExpectedSavings
	doc["start_date"] = FormatDate(p.StartDate)
	doc["target_end_date"] = FormatDate(p.TargetEndDate)
	doc["status"] = string(p.Status)
	doc["created_at"] = FormatTimestamp(p.CreatedAt)
	doc["updated_at"] = FormatTimestamp(p.UpdatedAt)
	doc["current_phase"] = string(p.CurrentPhase)
	for _, ph := range phaseOrder {
		doc[string(ph)] = p.Phase(ph).Value()
	}
	return doc
}

var knownFields = map[string]struct{}{
	"project_id": {}, "owner_id": {}, "user_id": {}, "name": {}, "description": {},
	"business_case": {}, "expected_savings": {}, "start_date": {}, "target_end_date": {},
	"status": {}, "created_at": {}, "updated_at": {}, "current_phase": {},
	"define": {}, "measure": {}, "analyze": {}, "improve": {}, "control": {},
}

// ProjectFromDocument reads a stored project. Missing fields take their
// zero value; an older "user_id" ownership field is accepted.
func ProjectFromDocument(id string, doc map[string]any) *Project {
	p := &Project{
		ID:              id,
		OwnerID:         asString(doc["owner_id"]),
		Name:            asString(doc["name"]),
		Description:     asString(doc["description"]),
		BusinessCase:    asString(doc["business_case"]),
		ExpectedSavings: asFloat(doc["expected_savings"]),
		StartDate:       ParseDate(asString(doc["start_date"])),
		TargetEndDate:   ParseDate(asString(doc["target_end_date"])),
		Status:          Status(asString(doc["status"])),
		CreatedAt:       ParseTimestamp(asString(doc["created_at"])),
		UpdatedAt:       ParseTimestamp(asString(doc["updated_at"])),
		CurrentPhase:    Phase(asString(doc["current_phase"])),
		Phases:          make(map[Phase]PhaseDoc, len(phaseOrder)),
	}
	if p.ID == "" {
		p.ID = asString(doc["project_id"])
	}
	if p.OwnerID == "" {
		p.OwnerID = asString(doc["user_id"])
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.CurrentPhase.Index() < 0 {
		p.CurrentPhase = PhaseDefine
	}
	for _, ph := range phaseOrder {
		raw, _ := doc[string(ph)].(map[string]any)
		p.Phases[ph] = DecodePhase(ph, raw)
	}
	for k, v := range doc {
		if _, known := knownFields[k]; !known {
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
	return p
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate accepts a calendar date or a full timestamp.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	if t := ParseTimestamp(s); !t.IsZero() {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp also accepts zone-less ISO timestamps, read as UTC.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	default:
		return 0
	}
}
