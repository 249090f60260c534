package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

var fixedNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

func TestCatalog(t *testing.T) {
	counts := map[Phase]int{}
	for _, p := range Phases() {
		counts[p] = len(Catalog(p))
	}
	assert.Equal(t, map[Phase]int{
		PhaseDefine: 5, PhaseMeasure: 4, PhaseAnalyze: 4, PhaseImprove: 4, PhaseControl: 2,
	}, counts)

	tool, ok := LookupTool(PhaseMeasure, DatasetTool)
	require.True(t, ok)
	assert.Equal(t, KindDataset, tool.Kind)
	assert.Equal(t, []string{"statistical_analysis", "root_cause_analysis"}, RequiredTools(PhaseAnalyze))

	_, ok = ParsePhase("Measure")
	assert.True(t, ok)
	_, ok = ParsePhase("deploy")
	assert.False(t, ok)
}

func TestNewProject_Defaults(t *testing.T) {
	p, err := NewProject("p1", "u1", CreateProjectInput{Name: " Reduce Cycle Time ", ExpectedSavings: 1500.0}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "Reduce Cycle Time", p.Name)
	assert.Equal(t, 1500.0, p.ExpectedSavings)
	assert.Equal(t, PhaseDefine, p.CurrentPhase)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, "2024-03-10", FormatDate(p.StartDate))
	assert.Equal(t, "2024-07-08", FormatDate(p.TargetEndDate))
	assert.Equal(t, 120, p.PlannedDays())

	for _, ph := range Phases() {
		doc := p.Phase(ph)
		assert.Len(t, doc.Tools, len(Catalog(ph)))
		for key, rec := range doc.Tools {
			assert.False(t, rec.Completed, key)
			assert.True(t, rec.Data.IsEmpty(), key)
		}
	}
}

func TestNewProject_Validation(t *testing.T) {
	cases := map[string]struct {
		owner string
		in    CreateProjectInput
		field string
	}{
		"missing owner":    {"", CreateProjectInput{Name: "x"}, "owner_id"},
		"blank name":       {"u1", CreateProjectInput{Name: "  "}, "name"},
		"negative savings": {"u1", CreateProjectInput{Name: "x", ExpectedSavings: -1}, "expected_savings"},
		"text savings":     {"u1", CreateProjectInput{Name: "x", ExpectedSavings: "lots"}, "expected_savings"},
		"bool savings":     {"u1", CreateProjectInput{Name: "x", ExpectedSavings: true}, "expected_savings"},
		"bad start":        {"u1", CreateProjectInput{Name: "x", StartDate: "soon"}, "start_date"},
		"end before start": {"u1", CreateProjectInput{Name: "x", StartDate: "2024-05-01", TargetEndDate: "2024-04-01"}, "target_end_date"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewProject("p1", tc.owner, tc.in, fixedNow)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	p, err := NewProject("p1", "u1", CreateProjectInput{Name: "x", ExpectedSavings: "2500.5"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2500.5, p.ExpectedSavings)
}

func TestProjectDocument_RoundTrip(t *testing.T) {
	p, err := NewProject("p1", "u1", CreateProjectInput{
		Name:          "Reduce Cycle Time",
		StartDate:     "2024-01-01",
		TargetEndDate: "2024-06-30",
	}, fixedNow)
	require.NoError(t, err)

	doc := p.Document()
	assert.Equal(t, "u1", doc["owner_id"])
	assert.Equal(t, "2024-06-30", doc["target_end_date"])
	assert.Equal(t, "2024-03-10T14:30:00Z", doc["created_at"])
	charter := doc["define"].(map[string]any)["charter"].(map[string]any)
	assert.Equal(t, false, charter["completed"])
	assert.Equal(t, map[string]any{}, charter["data"])
	stakeholders := doc["define"].(map[string]any)["stakeholders"].(map[string]any)
	assert.Equal(t, []any{}, stakeholders["data"])

	norm, err := tabular.NormalizeDocument(doc)
	require.NoError(t, err)
	back := ProjectFromDocument("p1", norm)
	assert.Equal(t, p.Document(), back.Document())
	assert.Equal(t, p.CreatedAt, back.CreatedAt)
}

func TestProjectFromDocument_Tolerant(t *testing.T) {
	p := ProjectFromDocument("p9", map[string]any{
		"user_id":          "legacy-owner",
		"name":             "Old",
		"expected_savings": int64(700),
		"created_at":       "2023-11-02T08:00:00.123456",
		"current_phase":    "nonsense",
		"custom_field":     "kept",
		"define": map[string]any{
			"charter":   map[string]any{"completed": true, "data": map[string]any{"goal": "x"}},
			"notes":     "free text",
			"draft":     map[string]any{"data": "no completed flag"},
			"strangely": map[string]any{"completed": "yes"},
		},
	})

	assert.Equal(t, "legacy-owner", p.OwnerID)
	assert.Equal(t, 700.0, p.ExpectedSavings)
	assert.Equal(t, PhaseDefine, p.CurrentPhase)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, time.Date(2023, 11, 2, 8, 0, 0, 123456000, time.UTC), p.CreatedAt)
	assert.Equal(t, "kept", p.Extra["custom_field"])

	define := p.Phase(PhaseDefine)
	assert.Len(t, define.Tools, 1)
	assert.True(t, define.Tools["charter"].Completed)
	assert.Contains(t, define.Extra, "notes")
	assert.Contains(t, define.Extra, "draft")
	assert.Contains(t, define.Extra, "strangely")
	assert.Empty(t, p.Phase(PhaseControl).Tools)
}

func TestDecodeToolData(t *testing.T) {
	s := DecodeToolData(KindStakeholders, []any{
		map[string]any{"name": "Ana", "role": "Sponsor", "influence": "high"},
	})
	require.IsType(t, Stakeholders{}, s)
	assert.Equal(t, "Sponsor", s.(Stakeholders)[0].Role)

	// Not stakeholder-shaped: kept as a plain list.
	assert.IsType(t, List{}, DecodeToolData(KindStakeholders, []any{"Ana"}))
	assert.IsType(t, Opaque{}, DecodeToolData(KindDocument, "free text"))
	assert.True(t, DecodeToolData(KindList, nil).IsEmpty())

	enc, err := tabular.Encode(mustTable(t))
	require.NoError(t, err)
	info := tabular.BuildInfo(mustTable(t), "a.csv", fixedNow)
	stored := (&DatasetAttachment{Encoded: enc, Info: &info}).Value()

	d := DecodeToolData(KindDataset, stored)
	att, ok := d.(*DatasetAttachment)
	require.True(t, ok)
	assert.True(t, att.HasPayload())
	assert.Equal(t, "a.csv", att.Info.Filename)
	tbl, err := att.Table()
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	omitted := DecodeToolData(KindDataset, map[string]any{
		DatasetPayloadKey: nil,
		DatasetInfoKey:    info.Value(),
		SizeWarningKey:    "too big",
	}).(*DatasetAttachment)
	assert.False(t, omitted.HasPayload())
	assert.Equal(t, "too big", omitted.SizeWarning)
	_, err = omitted.Table()
	assert.Error(t, err)

	legacy := DecodeToolData(KindDataset, map[string]any{DatasetPayloadKey: `[{"a":1}]`}).(*DatasetAttachment)
	tbl, err = legacy.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tbl.ColumnNames())
}

func mustTable(t *testing.T) *tabular.Table {
	t.Helper()
	tbl, err := tabular.NewTable([]string{"a", "b"}, [][]any{{1, "x"}, {2, nil}})
	require.NoError(t, err)
	return tbl
}

func TestProjectDataset(t *testing.T) {
	p, err := NewProject("p1", "u1", CreateProjectInput{Name: "x"}, fixedNow)
	require.NoError(t, err)
	_, ok := p.Dataset()
	assert.False(t, ok)

	info := tabular.BuildInfo(mustTable(t), "a.csv", fixedNow)
	measure := p.Phases[PhaseMeasure]
	measure.Tools[DatasetTool] = ToolRecord{Completed: true, Data: &DatasetAttachment{Info: &info}}
	d, ok := p.Dataset()
	require.True(t, ok)
	assert.Equal(t, 2, d.Info.Rows())
}
