// Package statesync keeps the process-local project cache consistent with
// the document store under a pull model: reads populate the cache, partial
// writes are merged into it, and EnsureSync refetches on demand.
package statesync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cgscacau/green-belt-app-sub001/internal/docstore"
	"github.com/cgscacau/green-belt-app-sub001/internal/logging"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// Synchronizer owns the read/write path between the cache and the store.
// It assumes one logical writer per project at a time and takes no
// concurrency tokens.
type Synchronizer struct {
	store docstore.Store
	cache *Cache
	now   func() time.Time
}

type Option func(*Synchronizer)

// WithClock overrides the time source for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

func NewSynchronizer(store docstore.Store, cache *Cache, opts ...Option) *Synchronizer {
	if cache == nil {
		cache = NewCache()
	}
	s := &Synchronizer{store: store, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Cache() *Cache { return s.cache }

func (s *Synchronizer) Now() time.Time { return s.now().UTC() }

// Fetch reads the project from the store and, when requesterID owns it,
// refreshes every cache entry of the project: the document, the decoded
// dataset and its info, and each non-empty tool payload.
func (s *Synchronizer) Fetch(ctx context.Context, projectID, requesterID string) (*domain.Project, error) {
	log := logging.NewLogger(ctx)

	doc, err := s.store.Get(ctx, domain.ProjectsCollection, projectID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		serr := StoreError("get", err)
		log.LogError("fetch_project", serr)
		return nil, serr
	}

	p := domain.ProjectFromDocument(projectID, doc)
	if p.OwnerID != requesterID {
		log.LogWarnf("fetch_project", "project_id=%s requester=%s message=ownership mismatch", projectID, requesterID)
		return nil, domain.ErrAccessDenied
	}

	s.cache.PurgeProject(projectID)
	s.cache.Put(ProjectKey(projectID), doc)
	for _, ph := range domain.Phases() {
		for tool := range p.Phase(ph).Tools {
			s.refreshTool(ctx, p, ph, tool)
		}
	}
	return domain.ProjectFromDocument(projectID, docstore.CloneDoc(doc)), nil
}

// Update sends a dotted-path partial update to the store with updated_at
// injected, then deep-merges it into the cached copy when one exists. The
// dataset payload at DatasetDataPath replaces the cached one outright.
// Values are normalized first; a value that cannot be normalized fails
// with a *tabular.CodecError and nothing is written.
func (s *Synchronizer) Update(ctx context.Context, projectID string, updates map[string]any) error {
	log := logging.NewLogger(ctx)

	for path := range updates {
		if !validPath(path) {
			return &domain.ValidationError{Field: path, Message: "is not a valid field path"}
		}
	}
	norm, err := tabular.NormalizeDocument(updates)
	if err != nil {
		log.LogError("update_project", err)
		return err
	}
	if norm == nil {
		norm = make(map[string]any, 1)
	}
	norm["updated_at"] = domain.FormatTimestamp(s.Now())

	err = s.store.Update(ctx, domain.ProjectsCollection, projectID, norm)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		serr := StoreError("update", err)
		log.LogError("update_project", serr)
		return serr
	}

	cached, ok := s.cachedDoc(projectID)
	if !ok {
		return nil
	}
	merged := DeepMerge(cached, docstore.ExpandPaths(norm))
	// the store replaced the upload payload whole
	if v, ok := norm[domain.DatasetDataPath]; ok {
		docstore.SetPath(merged, domain.DatasetDataPath, docstore.Clone(v))
	}
	s.cache.Put(ProjectKey(projectID), merged)

	p := domain.ProjectFromDocument(projectID, merged)
	for _, ref := range touchedTools(p, norm) {
		s.refreshTool(ctx, p, ref.phase, ref.tool)
	}
	return nil
}

// EnsureSync discards the cached state of the project and fetches it
// again. It reports false, without an error, when the project cannot be
// read or is not owned by requesterID.
func (s *Synchronizer) EnsureSync(ctx context.Context, projectID, requesterID string) bool {
	s.Invalidate(projectID)
	if _, err := s.Fetch(ctx, projectID, requesterID); err != nil {
		logging.NewLogger(ctx).LogWarnf("ensure_sync", "project_id=%s error=%v", projectID, err)
		return false
	}
	return true
}

// Invalidate drops every cache entry of the project.
func (s *Synchronizer) Invalidate(projectID string) int {
	return s.cache.PurgeProject(projectID)
}

// CachedProject returns the cached project without touching the store.
func (s *Synchronizer) CachedProject(projectID string) (*domain.Project, bool) {
	doc, ok := s.cachedDoc(projectID)
	if !ok {
		return nil, false
	}
	return domain.ProjectFromDocument(projectID, doc), true
}

func (s *Synchronizer) Dataset(projectID string) (*tabular.Table, bool) {
	v, ok := s.cache.Get(DatasetKey(projectID))
	if !ok {
		return nil, false
	}
	t, ok := v.(*tabular.Table)
	return t, ok
}

func (s *Synchronizer) DatasetInfo(projectID string) (*tabular.Info, bool) {
	v, ok := s.cache.Get(InfoKey(projectID))
	if !ok {
		return nil, false
	}
	info, ok := v.(tabular.Info)
	if !ok {
		return nil, false
	}
	return &info, true
}

func (s *Synchronizer) ToolData(projectID string, phase domain.Phase, tool string) (domain.ToolData, bool) {
	v, ok := s.cache.Get(ToolKey(projectID, phase, tool))
	if !ok {
		return nil, false
	}
	d, ok := v.(domain.ToolData)
	return d, ok
}

// CacheDataset records an uploaded table, including one whose payload was
// too large to store.
func (s *Synchronizer) CacheDataset(projectID string, t *tabular.Table, info tabular.Info) {
	s.cache.Put(DatasetKey(projectID), t)
	s.cache.Put(InfoKey(projectID), info)
}

// cachedDoc returns a private copy of the cached project document.
func (s *Synchronizer) cachedDoc(projectID string) (map[string]any, bool) {
	v, ok := s.cache.Get(ProjectKey(projectID))
	if !ok {
		return nil, false
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return docstore.CloneDoc(doc), true
}

// refreshTool rewrites the derived entries of one tool from p. Decode
// failures are logged and leave the entry absent.
func (s *Synchronizer) refreshTool(ctx context.Context, p *domain.Project, ph domain.Phase, tool string) {
	rec, ok := p.Tool(ph, tool)

	if ph == domain.PhaseMeasure && tool == domain.DatasetTool {
		s.cache.Delete(DatasetKey(p.ID))
		s.cache.Delete(InfoKey(p.ID))
		d, isDataset := rec.Data.(*domain.DatasetAttachment)
		if !ok || !isDataset || d.IsEmpty() {
			return
		}
		if d.Info != nil {
			s.cache.Put(InfoKey(p.ID), *d.Info)
		}
		if !d.HasPayload() {
			return
		}
		t, err := d.Table()
		if err != nil {
			logging.NewLogger(ctx).LogWarnf("sync_dataset", "project_id=%s error=%v", p.ID, err)
			return
		}
		s.cache.Put(DatasetKey(p.ID), t)
		return
	}

	key := ToolKey(p.ID, ph, tool)
	if !ok || rec.Data == nil || rec.Data.IsEmpty() {
		s.cache.Delete(key)
		return
	}
	s.cache.Put(key, rec.Data)
}

type toolRef struct {
	phase domain.Phase
	tool  string
}

// touchedTools resolves update paths to the tools they affect. A path that
// names a whole phase touches every tool in it.
func touchedTools(p *domain.Project, updates map[string]any) []toolRef {
	seen := make(map[toolRef]struct{})
	var out []toolRef
	add := func(r toolRef) {
		if _, dup := seen[r]; !dup {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}

	for path := range updates {
		parts := strings.SplitN(path, ".", 3)
		ph, ok := domain.ParsePhase(parts[0])
		if !ok || string(ph) != parts[0] {
			continue
		}
		if len(parts) == 1 {
			for tool := range p.Phase(ph).Tools {
				add(toolRef{ph, tool})
			}
			continue
		}
		add(toolRef{ph, parts[1]})
	}
	return out
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// StoreError wraps a store failure with its coarse category.
func StoreError(op string, err error) error {
	return &domain.StoreError{Op: op, Category: domain.StoreCategory(docstore.Classify(err)), Err: err}
}
