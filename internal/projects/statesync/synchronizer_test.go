package statesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cgscacau/green-belt-app-sub001/internal/docstore"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

var (
	created = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	later   = time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
)

// failingStore fails every call with err once armed.
type failingStore struct {
	*docstore.MemoryStore
	err error
}

func (f *failingStore) Get(ctx context.Context, c, id string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Get(ctx, c, id)
}

func (f *failingStore) Update(ctx context.Context, c, id string, u map[string]any) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryStore.Update(ctx, c, id, u)
}

func seedProject(t *testing.T, store docstore.Store, id, owner string, mutate func(p *domain.Project)) {
	t.Helper()
	p, err := domain.NewProject(id, owner, domain.CreateProjectInput{Name: "Reduce Cycle Time", ExpectedSavings: 1500.0}, created)
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, store.Set(context.Background(), domain.ProjectsCollection, id, p.Document()))
}

func withDataset(t *testing.T, legacy string) func(p *domain.Project) {
	return func(p *domain.Project) {
		tbl, err := tabular.NewTable([]string{"cycle_time", "shift"}, [][]any{{12.5, "A"}, {nil, "B"}, {9.0, "A"}})
		require.NoError(t, err)
		info := tabular.BuildInfo(tbl, "baseline.csv", created)
		att := &domain.DatasetAttachment{Info: &info, Legacy: legacy}
		if legacy == "" {
			enc, err := tabular.Encode(tbl)
			require.NoError(t, err)
			att.Encoded = enc
		}
		p.Phases[domain.PhaseMeasure].Tools[domain.DatasetTool] = domain.ToolRecord{Completed: true, Data: att}
		p.Phases[domain.PhaseDefine].Tools["stakeholders"] = domain.ToolRecord{
			Data: domain.Stakeholders{{Name: "Ana", Role: "Sponsor"}},
		}
		p.Phases[domain.PhaseMeasure].Tools["baseline_data"] = domain.ToolRecord{
			Completed: true,
			Data:      domain.Document{"baseline_metrics": map[string]any{"mean": 10.75}},
		}
	}
}

func newSync(store docstore.Store) *Synchronizer {
	return NewSynchronizer(store, NewCache(), WithClock(func() time.Time { return later }))
}

func TestFetch_NotFound(t *testing.T) {
	s := newSync(docstore.NewMemoryStore())
	_, err := s.Fetch(context.Background(), "ghost", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetch_AccessDeniedLeavesCacheEmpty(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "owner", withDataset(t, ""))
	s := newSync(store)

	p, err := s.Fetch(context.Background(), "p1", "intruder")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Nil(t, p)
	assert.Empty(t, s.Cache().Keys())
}

func TestFetch_PopulatesDerivedEntries(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", withDataset(t, ""))
	s := newSync(store)

	p, err := s.Fetch(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Reduce Cycle Time", p.Name)

	var names []string
	for _, k := range s.Cache().Keys() {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{
		"project:p1",
		"tool_data:p1:define.stakeholders",
		"tool_data:p1:measure.baseline_data",
		"upload_info:p1",
		"uploaded_data:p1",
	}, names)

	tbl, ok := s.Dataset("p1")
	require.True(t, ok)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Nil(t, tbl.Rows[1][0])

	info, ok := s.DatasetInfo("p1")
	require.True(t, ok)
	assert.Equal(t, "baseline.csv", info.Filename)

	data, ok := s.ToolData("p1", domain.PhaseDefine, "stakeholders")
	require.True(t, ok)
	assert.Equal(t, "Ana", data.(domain.Stakeholders)[0].Name)
}

func TestFetch_UndecodableDatasetIsSkipped(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", withDataset(t, "{broken"))
	s := newSync(store)

	_, err := s.Fetch(context.Background(), "p1", "u1")
	require.NoError(t, err)

	_, ok := s.Dataset("p1")
	assert.False(t, ok)
	_, ok = s.DatasetInfo("p1")
	assert.True(t, ok)
	_, ok = s.CachedProject("p1")
	assert.True(t, ok)
}

func TestFetch_StoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: docstore.NewMemoryStore()}
	seedProject(t, store, "p1", "u1", nil)
	store.err = status.Error(codes.Unavailable, "backend unreachable")
	s := newSync(store)

	_, err := s.Fetch(context.Background(), "p1", "u1")
	var serr *domain.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, domain.StoreConnectivity, serr.Category)
	assert.Equal(t, "get", serr.Op)
}

func TestUpdate_MergeIsAdditive(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", withDataset(t, ""))
	s := newSync(store)
	_, err := s.Fetch(ctx, "p1", "u1")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "p1", map[string]any{"measure.file_upload.completed": false}))

	cached, ok := s.CachedProject("p1")
	require.True(t, ok)
	rec, ok := cached.Tool(domain.PhaseMeasure, "baseline_data")
	require.True(t, ok)
	assert.Equal(t, domain.Document{"baseline_metrics": map[string]any{"mean": 10.75}}, rec.Data)
	upload, _ := cached.Tool(domain.PhaseMeasure, domain.DatasetTool)
	assert.False(t, upload.Completed)
	assert.Equal(t, later, cached.UpdatedAt)

	_, ok = s.ToolData("p1", domain.PhaseMeasure, "baseline_data")
	assert.True(t, ok)
	_, ok = s.Dataset("p1")
	assert.True(t, ok)

	stored, err := store.Get(ctx, domain.ProjectsCollection, "p1")
	require.NoError(t, err)
	v, _ := docstore.GetPath(stored, "measure.baseline_data.data.baseline_metrics.mean")
	assert.Equal(t, 10.75, v)
	assert.Equal(t, "2024-03-11T12:00:00Z", stored["updated_at"])
}

func TestUpdate_DatasetPayloadReplacesCachedOne(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", withDataset(t, ""))
	s := newSync(store)
	_, err := s.Fetch(ctx, "p1", "u1")
	require.NoError(t, err)

	tbl, err := tabular.NewTable([]string{"x"}, [][]any{{int64(4)}})
	require.NoError(t, err)
	info := tabular.BuildInfo(tbl, "retake.csv", later)
	enc, err := tabular.Encode(tbl)
	require.NoError(t, err)
	att := &domain.DatasetAttachment{Encoded: enc, Info: &info}
	require.NoError(t, s.Update(ctx, "p1", map[string]any{domain.DatasetDataPath: att.Value()}))

	cached, ok := s.CachedProject("p1")
	require.True(t, ok)
	got, ok := cached.Dataset()
	require.True(t, ok)
	assert.Equal(t, map[string]string{"x": "int64"}, got.Info.DTypes)

	stored, err := store.Get(ctx, domain.ProjectsCollection, "p1")
	require.NoError(t, err)
	want, _ := docstore.GetPath(stored, domain.DatasetDataPath)
	doc, ok := s.cachedDoc("p1")
	require.True(t, ok)
	have, _ := docstore.GetPath(doc, domain.DatasetDataPath)
	assert.True(t, docstore.ValuesEqual(want, have))

	ds, ok := s.Dataset("p1")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, ds.ColumnNames())
}

func TestUpdate_RefreshesTouchedTool(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", nil)
	s := newSync(store)
	_, err := s.Fetch(ctx, "p1", "u1")
	require.NoError(t, err)
	_, ok := s.ToolData("p1", domain.PhaseDefine, "charter")
	require.False(t, ok)

	require.NoError(t, s.Update(ctx, "p1", map[string]any{
		"define.charter.data":      map[string]any{"goal": "cut cycle time by 20%"},
		"define.charter.completed": true,
	}))

	data, ok := s.ToolData("p1", domain.PhaseDefine, "charter")
	require.True(t, ok)
	assert.Equal(t, "cut cycle time by 20%", data.(domain.Document)["goal"])
}

func TestUpdate_UnrepresentableSendsNothing(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", nil)
	s := newSync(store)

	err := s.Update(ctx, "p1", map[string]any{"define.charter.data": map[string]any{"f": func() {}}})
	var ce *tabular.CodecError
	require.ErrorAs(t, err, &ce)

	stored, err := store.Get(ctx, domain.ProjectsCollection, "p1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10T09:00:00Z", stored["updated_at"])
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	s := newSync(docstore.NewMemoryStore())

	assert.ErrorIs(t, s.Update(ctx, "ghost", map[string]any{"name": "x"}), domain.ErrNotFound)

	var ve *domain.ValidationError
	assert.ErrorAs(t, s.Update(ctx, "ghost", map[string]any{"define..charter": true}), &ve)
}

func TestUpdate_UncachedProjectStaysUncached(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", nil)
	s := newSync(store)

	require.NoError(t, s.Update(ctx, "p1", map[string]any{"name": "Renamed"}))
	assert.Empty(t, s.Cache().Keys())
}

func TestEnsureSync_ResolvesStaleness(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	seedProject(t, store, "p1", "u1", nil)

	instanceA := newSync(store)
	instanceB := newSync(store)
	_, err := instanceA.Fetch(ctx, "p1", "u1")
	require.NoError(t, err)

	require.NoError(t, instanceB.Update(ctx, "p1", map[string]any{"name": "Renamed elsewhere"}))

	stale, _ := instanceA.CachedProject("p1")
	assert.Equal(t, "Reduce Cycle Time", stale.Name)

	require.True(t, instanceA.EnsureSync(ctx, "p1", "u1"))
	fresh, ok := instanceA.CachedProject("p1")
	require.True(t, ok)
	assert.Equal(t, "Renamed elsewhere", fresh.Name)
}

func TestEnsureSync_Failures(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: docstore.NewMemoryStore()}
	seedProject(t, store, "p1", "u1", nil)
	s := newSync(store)
	require.True(t, s.EnsureSync(ctx, "p1", "u1"))

	assert.False(t, s.EnsureSync(ctx, "ghost", "u1"))
	assert.False(t, s.EnsureSync(ctx, "p1", "someone-else"))
	_, ok := s.CachedProject("p1")
	assert.False(t, ok)

	store.err = errors.New("dial tcp: connection refused")
	assert.False(t, s.EnsureSync(ctx, "p1", "u1"))
}

func TestCache_PurgeAndStats(t *testing.T) {
	c := NewCache()
	c.Put(ProjectKey("p1"), map[string]any{})
	c.Put(DatasetKey("p1"), nil)
	c.Put(ToolKey("p1", domain.PhaseDefine, "charter"), domain.Document{})
	c.Put(ProjectKey("p10"), map[string]any{})

	_, ok := c.Get(ProjectKey("p1"))
	assert.True(t, ok)
	_, ok = c.Get(InfoKey("p1"))
	assert.False(t, ok)

	assert.Equal(t, 3, c.PurgeProject("p1"))
	assert.Equal(t, []Key{ProjectKey("p10")}, c.Keys())
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, c.Stats())
}
