package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cgscacau/green-belt-app-sub001/internal/docstore"
	"github.com/cgscacau/green-belt-app-sub001/internal/logging"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/statesync"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// DefaultDatasetMaxBytes is the largest serialized dataset stored inline.
const DefaultDatasetMaxBytes = 800000

// ProjectRepository is the only entry point the presentation layer uses.
// It composes the document model, the codec, progress and the
// synchronizer on top of a document store.
type ProjectRepository struct {
	store           docstore.Store
	sync            *statesync.Synchronizer
	maxDatasetBytes int
	newID           func() string
	metrics         Metrics
}

type Option func(*ProjectRepository)

func WithDatasetLimit(maxBytes int) Option {
	return func(r *ProjectRepository) {
		if maxBytes > 0 {
			r.maxDatasetBytes = maxBytes
		}
	}
}

// WithIDGenerator replaces the uuid project id source.
func WithIDGenerator(newID func() string) Option {
	return func(r *ProjectRepository) { r.newID = newID }
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(store docstore.Store, sync *statesync.Synchronizer, opts ...Option) *ProjectRepository {
	if sync == nil {
		sync = statesync.NewSynchronizer(store, nil)
	}
	r := &ProjectRepository{
		store:           store,
		sync:            sync,
		maxDatasetBytes: DefaultDatasetMaxBytes,
		newID:           func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateResult separates the primary write from the best-effort owner
// index write. IndexErr is set when the project exists but the owner's
// project list was not updated.
type CreateResult struct {
	ProjectID string          `json:"project_id"`
	Project   *domain.Project `json:"-"`
	Warnings  []string        `json:"warnings"`
	IndexErr  error           `json:"-"`
}

// Create validates the input, writes the project with the full tool
// catalog and then appends it to the owner's index.
func (r *ProjectRepository) Create(ctx context.Context, ownerID string, in domain.CreateProjectInput) (*CreateResult, error) {
	log := logging.NewLogger(ctx)

	p, err := domain.NewProject(r.newID(), ownerID, in, r.sync.Now())
	if err != nil {
		return nil, err
	}
	doc, err := tabular.NormalizeDocument(p.Document())
	if err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, domain.ProjectsCollection, p.ID, doc); err != nil {
		r.metrics.recordStoreError()
		serr := statesync.StoreError("set", err)
		log.LogError("create_project", serr)
		return nil, serr
	}
	r.metrics.recordCreate()

	res := &CreateResult{
		ProjectID: p.ID,
		Project:   p,
		Warnings:  domain.ValidateProject(p).Warnings,
	}
	if err := r.addToIndex(ctx, ownerID, p.ID); err != nil {
		r.metrics.recordIndexWarning()
		res.IndexErr = err
		res.Warnings = append(res.Warnings, "project saved but the owner's project list could not be updated")
		log.LogWarnf("create_project", "project_id=%s owner_id=%s index_error=%v", p.ID, ownerID, err)
	}
	log.LogInfof("create_project", "project_id=%s owner_id=%s", p.ID, ownerID)
	return res, nil
}

// Fetch always reads through to the store and refreshes the cache.
func (r *ProjectRepository) Fetch(ctx context.Context, projectID, ownerID string) (*domain.Project, error) {
	p, err := r.sync.Fetch(ctx, projectID, ownerID)
	if err != nil {
		r.countStoreError(err)
		return nil, err
	}
	r.metrics.recordLoad()
	return p, nil
}

// load prefers the cached copy and falls back to Fetch.
func (r *ProjectRepository) load(ctx context.Context, projectID, ownerID string) (*domain.Project, error) {
	if p, ok := r.sync.CachedProject(projectID); ok {
		if p.OwnerID != ownerID {
			return nil, domain.ErrAccessDenied
		}
		return p, nil
	}
	return r.Fetch(ctx, projectID, ownerID)
}

// ListByOwner returns the owner's projects, most recently created first.
// Store failures are logged and yield an empty list.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) []*domain.Project {
	out := []*domain.Project{}
	if ownerID == "" {
		return out
	}

	docs, err := r.store.Query(ctx, domain.ProjectsCollection, "owner_id", docstore.OpEqual, ownerID)
	if err != nil {
		r.metrics.recordStoreError()
		logging.NewLogger(ctx).LogError("list_projects", statesync.StoreError("query", err))
		return out
	}
	for _, d := range docs {
		out = append(out, domain.ProjectFromDocument(d.ID, d.Data))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Update applies a dotted-path partial update after checking ownership
// and that every path is one callers may write.
func (r *ProjectRepository) Update(ctx context.Context, projectID, ownerID string, updates map[string]any) error {
	if len(updates) == 0 {
		return &domain.ValidationError{Message: "no fields to update"}
	}
	clean, err := checkUpdates(updates)
	if err != nil {
		return err
	}
	p, err := r.load(ctx, projectID, ownerID)
	if err != nil {
		return err
	}
	if err := checkDateOrder(p, clean); err != nil {
		return err
	}
	if err := r.sync.Update(ctx, projectID, clean); err != nil {
		r.countStoreError(err)
		return err
	}
	r.metrics.recordUpdate()
	return nil
}

// SetToolCompleted flips the completion flag of one catalog tool.
func (r *ProjectRepository) SetToolCompleted(ctx context.Context, projectID, ownerID string, phase domain.Phase, tool string, completed bool) error {
	if _, ok := domain.LookupTool(phase, tool); !ok {
		return fmt.Errorf("%w: %s.%s", domain.ErrUnknownTool, phase, tool)
	}
	prefix := string(phase) + "." + tool
	return r.Update(ctx, projectID, ownerID, map[string]any{
		prefix + ".completed":  completed,
		prefix + ".updated_at": domain.FormatTimestamp(r.sync.Now()),
	})
}

// SaveToolData stores a tool payload and optionally its completion flag.
// Datasets go through SaveDataset instead.
func (r *ProjectRepository) SaveToolData(ctx context.Context, projectID, ownerID string, phase domain.Phase, tool string, data any, completed *bool) error {
	t, ok := domain.LookupTool(phase, tool)
	if !ok {
		return fmt.Errorf("%w: %s.%s", domain.ErrUnknownTool, phase, tool)
	}
	if t.Kind == domain.KindDataset {
		return &domain.ValidationError{Field: tool, Message: "datasets are uploaded through the dataset endpoint"}
	}
	prefix := string(phase) + "." + tool
	updates := map[string]any{
		prefix + ".data":       data,
		prefix + ".updated_at": domain.FormatTimestamp(r.sync.Now()),
	}
	if completed != nil {
		updates[prefix+".completed"] = *completed
	}
	return r.Update(ctx, projectID, ownerID, updates)
}

// DeleteResult reports the primary delete and the owner index cleanup
// separately.
type DeleteResult struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings"`
	IndexErr error    `json:"-"`
}

// Delete verifies ownership against the store, removes the document,
// drops the id from the owner's index and purges the project's cache.
func (r *ProjectRepository) Delete(ctx context.Context, projectID, ownerID string) (*DeleteResult, error) {
	log := logging.NewLogger(ctx)

	if _, err := r.Fetch(ctx, projectID, ownerID); err != nil {
		return nil, err
	}
	if err := r.store.Delete(ctx, domain.ProjectsCollection, projectID); err != nil {
		r.metrics.recordStoreError()
		serr := statesync.StoreError("delete", err)
		log.LogError("delete_project", serr)
		return nil, serr
	}
	r.metrics.recordDelete()

	res := &DeleteResult{Deleted: true, Warnings: []string{}}
	if err := r.removeFromIndex(ctx, ownerID, projectID); err != nil {
		r.metrics.recordIndexWarning()
		res.IndexErr = err
		res.Warnings = append(res.Warnings, "project deleted but the owner's project list could not be updated")
		log.LogWarnf("delete_project", "project_id=%s owner_id=%s index_error=%v", projectID, ownerID, err)
	}
	purged := r.sync.Invalidate(projectID)
	log.LogInfof("delete_project", "project_id=%s cache_entries_purged=%d", projectID, purged)
	return res, nil
}

// EnsureSync forces a refetch of the project.
func (r *ProjectRepository) EnsureSync(ctx context.Context, projectID, ownerID string) bool {
	return r.sync.EnsureSync(ctx, projectID, ownerID)
}

func (r *ProjectRepository) Metrics() MetricsSnapshot {
	return r.metrics.snapshot(r.sync.Cache().Stats(), r.sync.Now())
}

func (r *ProjectRepository) countStoreError(err error) {
	var serr *domain.StoreError
	if errors.As(err, &serr) {
		r.metrics.recordStoreError()
	}
}

var metadataFields = map[string]struct{}{
	"name": {}, "description": {}, "business_case": {}, "expected_savings": {},
	"start_date": {}, "target_end_date": {}, "status": {}, "current_phase": {},
}

// checkUpdates validates update paths and values and returns a copy with
// dates rewritten to the stored layout.
func checkUpdates(updates map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(updates))
	for path, v := range updates {
		if _, ok := metadataFields[path]; ok {
			cv, err := checkField(path, v)
			if err != nil {
				return nil, err
			}
			out[path] = cv
			continue
		}

		parts := strings.SplitN(path, ".", 3)
		ph, ok := domain.ParsePhase(parts[0])
		if !ok || string(ph) != parts[0] || len(parts) < 2 {
			return nil, &domain.ValidationError{Field: path, Message: "is not an updatable field"}
		}
		if _, ok := domain.LookupTool(ph, parts[1]); !ok {
			return nil, &domain.ValidationError{Field: path, Message: "names a tool outside the catalog"}
		}
		if writesDataset(path) {
			return nil, &domain.ValidationError{Field: path, Message: "datasets are uploaded through the dataset endpoint"}
		}
		if len(parts) == 3 && parts[2] == "completed" {
			if _, ok := v.(bool); !ok {
				return nil, &domain.ValidationError{Field: path, Message: "must be a boolean"}
			}
		}
		out[path] = v
	}
	return out, nil
}

// writesDataset reports whether path would replace the upload payload or
// any part of it.
func writesDataset(path string) bool {
	tool := string(domain.PhaseMeasure) + "." + domain.DatasetTool
	return path == tool || path == domain.DatasetDataPath || strings.HasPrefix(path, domain.DatasetDataPath+".")
}

// checkDateOrder keeps target_end_date after start_date once the update
// is applied to p. Stored dates are only checked when one of them changes.
func checkDateOrder(p *domain.Project, updates map[string]any) error {
	s, setStart := updates["start_date"].(string)
	e, setEnd := updates["target_end_date"].(string)
	if !setStart && !setEnd {
		return nil
	}
	start, end := p.StartDate, p.TargetEndDate
	if setStart {
		start = domain.ParseDate(s)
	}
	if setEnd {
		end = domain.ParseDate(e)
	}
	if start.IsZero() || end.IsZero() || end.After(start) {
		return nil
	}
	if setEnd {
		return &domain.ValidationError{Field: "target_end_date", Message: "must be after start_date"}
	}
	return &domain.ValidationError{Field: "start_date", Message: "must be before target_end_date"}
}

func checkField(field string, v any) (any, error) {
	switch field {
	case "name":
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, &domain.ValidationError{Field: field, Message: "must be a non-empty string"}
		}
		return strings.TrimSpace(s), nil
	case "description", "business_case":
		if _, ok := v.(string); !ok && v != nil {
			return nil, &domain.ValidationError{Field: field, Message: "must be a string"}
		}
		return v, nil
	case "expected_savings":
		norm, err := tabular.Normalize(v)
		if err != nil {
			return nil, &domain.ValidationError{Field: field, Message: "must be a number"}
		}
		var f float64
		switch x := norm.(type) {
		case int64:
			f = float64(x)
		case float64:
			f = x
		default:
			return nil, &domain.ValidationError{Field: field, Message: "must be a number"}
		}
		if f < 0 {
			return nil, &domain.ValidationError{Field: field, Message: "must not be negative"}
		}
		return f, nil
	case "start_date", "target_end_date":
		s, _ := v.(string)
		d := domain.ParseDate(s)
		if d.IsZero() {
			return nil, &domain.ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
		}
		return domain.FormatDate(d), nil
	case "status":
		s, _ := v.(string)
		if !domain.Status(s).Valid() {
			return nil, &domain.ValidationError{Field: field, Message: "must be active or closed"}
		}
		return s, nil
	case "current_phase":
		s, _ := v.(string)
		ph, ok := domain.ParsePhase(s)
		if !ok {
			return nil, &domain.ValidationError{Field: field, Message: "must be a phase"}
		}
		return string(ph), nil
	}
	return v, nil
}
