package domain

import "strings"

// Phase is one of the five fixed stages of an improvement project.
type Phase string

const (
	PhaseDefine  Phase = "define"
	PhaseMeasure Phase = "measure"
	PhaseAnalyze Phase = "analyze"
	PhaseImprove Phase = "improve"
	PhaseControl Phase = "control"
)

var phaseOrder = []Phase{PhaseDefine, PhaseMeasure, PhaseAnalyze, PhaseImprove, PhaseControl}

// Phases returns the phases in methodology order.
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Index() >= 0
}

// Index is the position of p in methodology order, or -1.
func (p Phase) Index() int {
	for i, q := range phaseOrder {
		if q == p {
			return i
		}
	}
	return -1
}

func (p Phase) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// ToolKind selects the typed representation of a tool's data.
type ToolKind string

const (
	KindDocument     ToolKind = "document"
	KindList         ToolKind = "list"
	KindStakeholders ToolKind = "stakeholders"
	KindDataset      ToolKind = "dataset"
)

type Tool struct {
	Key      string
	Name     string
	Required bool
	Kind     ToolKind
}

// The measure phase stores uploaded datasets under this tool.
const DatasetTool = "file_upload"

// DatasetDataPath is the dotted path of the encoded upload. It is always
// written as one value, never patched key by key.
const DatasetDataPath = string(PhaseMeasure) + "." + DatasetTool + ".data"

var catalog = map[Phase][]Tool{
	PhaseDefine: {
		{Key: "charter", Name: "Project Charter", Required: true, Kind: KindDocument},
		{Key: "stakeholders", Name: "Stakeholder Map", Kind: KindStakeholders},
		{Key: "voc", Name: "Voice of the Customer", Kind: KindDocument},
		{Key: "sipoc", Name: "SIPOC Diagram", Kind: KindDocument},
		{Key: "timeline", Name: "Project Timeline", Kind: KindDocument},
	},
	PhaseMeasure: {
		{Key: "data_collection_plan", Name: "Data Collection Plan", Required: true, Kind: KindDocument},
		{Key: DatasetTool, Name: "Data Upload", Kind: KindDataset},
		{Key: "msa", Name: "Measurement System Analysis", Kind: KindDocument},
		{Key: "baseline_data", Name: "Baseline Data", Kind: KindDocument},
	},
	PhaseAnalyze: {
		{Key: "statistical_analysis", Name: "Statistical Analysis", Required: true, Kind: KindDocument},
		{Key: "root_cause_analysis", Name: "Root Cause Analysis", Required: true, Kind: KindDocument},
		{Key: "hypothesis_testing", Name: "Hypothesis Testing", Kind: KindDocument},
		{Key: "process_analysis", Name: "Process Analysis", Kind: KindDocument},
	},
	PhaseImprove: {
		{Key: "solution_development", Name: "Solution Development", Required: true, Kind: KindList},
		{Key: "action_plan", Name: "Action Plan", Kind: KindDocument},
		{Key: "pilot_implementation", Name: "Pilot Implementation", Kind: KindDocument},
		{Key: "full_implementation", Name: "Full Implementation", Kind: KindDocument},
	},
	PhaseControl: {
		{Key: "control_plan", Name: "Control Plan", Required: true, Kind: KindDocument},
		{Key: "documentation", Name: "Documentation", Kind: KindDocument},
	},
}

// Catalog returns the tools of phase p in display order.
func Catalog(p Phase) []Tool {
	tools := catalog[p]
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

func LookupTool(p Phase, key string) (Tool, bool) {
	for _, t := range catalog[p] {
		if t.Key == key {
			return t, true
		}
	}
	return Tool{}, false
}

// RequiredTools lists the tool keys that must be completed before phase p
// is considered valid.
func RequiredTools(p Phase) []string {
	var out []string
	for _, t := range catalog[p] {
		if t.Required {
			out = append(out, t.Key)
		}
	}
	return out
}

// kindOf falls back to a free-form document for tools outside the catalog.
func kindOf(p Phase, key string) ToolKind {
	if t, ok := LookupTool(p, key); ok {
		return t.Kind
	}
	return KindDocument
}
