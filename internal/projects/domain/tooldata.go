package domain

import (
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// ToolData is the payload stored under a tool's "data" key.
type ToolData interface {
	Kind() ToolKind
	IsEmpty() bool
	// Value returns the payload as a document value.
	Value() any
}

// Document is a free-form tool payload.
type Document map[string]any

func (d Document) Kind() ToolKind { return KindDocument }
func (d Document) IsEmpty() bool  { return len(d) == 0 }
func (d Document) Value() any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// List is a free-form sequence payload.
type List []any

func (l List) Kind() ToolKind { return KindList }
func (l List) IsEmpty() bool  { return len(l) == 0 }
func (l List) Value() any {
	out := make([]any, len(l))
	copy(out, l)
	return out
}

type Stakeholder struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Influence  string `json:"influence"`
	Interest   string `json:"interest"`
	Attitude   string `json:"attitude"`
}

type Stakeholders []Stakeholder

func (s Stakeholders) Kind() ToolKind { return KindStakeholders }
func (s Stakeholders) IsEmpty() bool  { return len(s) == 0 }
func (s Stakeholders) Value() any {
	out := make([]any, len(s))
	for i, st := range s {
		out[i] = map[string]any{
			"name":       st.Name,
			"role":       st.Role,
			"department": st.Department,
			"influence":  st.Influence,
			"interest":   st.Interest,
			"attitude":   st.Attitude,
		}
	}
	return out
}

// Stored keys of a dataset attachment.
const (
	DatasetPayloadKey = "dataframe_data"
	DatasetInfoKey    = "dataset_info"
	SizeWarningKey    = "size_warning"
)

// DatasetAttachment is an uploaded table. Encoded is nil when the payload
// was omitted for size or when only the older single-string encoding
// (Legacy) is present. Info survives either way.
type DatasetAttachment struct {
	Encoded     *tabular.Encoded
	Legacy      string
	Info        *tabular.Info
	SizeWarning string
}

func (d *DatasetAttachment) Kind() ToolKind { return KindDataset }

func (d *DatasetAttachment) IsEmpty() bool {
	return d == nil || (d.Encoded == nil && d.Legacy == "" && d.Info == nil && d.SizeWarning == "")
}

// HasPayload reports whether the table itself is stored.
func (d *DatasetAttachment) HasPayload() bool {
	return d != nil && (d.Encoded != nil || d.Legacy != "")
}

// Table decodes the stored payload.
func (d *DatasetAttachment) Table() (*tabular.Table, error) {
	switch {
	case d == nil || !d.HasPayload():
		return nil, &tabular.CodecError{Op: "decode", Reason: "dataset payload not stored", Err: tabular.ErrNotTabular}
	case d.Encoded != nil:
		return tabular.Decode(d.Encoded)
	default:
		return tabular.DecodeLegacy([]byte(d.Legacy))
	}
}

func (d *DatasetAttachment) Value() any {
	if d.IsEmpty() {
		return map[string]any{}
	}
	out := map[string]any{DatasetPayloadKey: nil}
	switch {
	case d.Encoded != nil:
		out[DatasetPayloadKey] = d.Encoded.Value()
	case d.Legacy != "":
		out[DatasetPayloadKey] = d.Legacy
	}
	if d.Info != nil {
		out[DatasetInfoKey] = d.Info.Value()
	}
	if d.SizeWarning != "" {
		out[SizeWarningKey] = d.SizeWarning
	}
	return out
}

// Opaque holds a payload that matches no known shape, such as a scalar.
type Opaque struct {
	Raw any
}

func (o Opaque) Kind() ToolKind { return KindDocument }
func (o Opaque) IsEmpty() bool  { return o.Raw == nil || o.Raw == "" }
func (o Opaque) Value() any     { return o.Raw }

// EmptyToolData is the initial payload of a catalog tool.
func EmptyToolData(kind ToolKind) ToolData {
	switch kind {
	case KindList:
		return List{}
	case KindStakeholders:
		return Stakeholders{}
	case KindDataset:
		return &DatasetAttachment{}
	default:
		return Document{}
	}
}

// DecodeToolData reads a stored payload into the representation for kind.
// Payloads that do not fit the expected shape are kept as a Document, List
// or Opaque so nothing is lost when the project is written back.
func DecodeToolData(kind ToolKind, raw any) ToolData {
	if raw == nil {
		return EmptyToolData(kind)
	}

	switch kind {
	case KindStakeholders:
		if items, ok := raw.([]any); ok {
			if s, ok := decodeStakeholders(items); ok {
				return s
			}
		}
	case KindDataset:
		if m, ok := raw.(map[string]any); ok {
			if d, ok := decodeDataset(m); ok {
				return d
			}
		}
	}

	switch x := raw.(type) {
	case map[string]any:
		return Document(x)
	case []any:
		return List(x)
	default:
		return Opaque{Raw: raw}
	}
}

func decodeStakeholders(items []any) (Stakeholders, bool) {
	out := make(Stakeholders, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		name, ok := m["name"].(string)
		if !ok {
			return nil, false
		}
		out = append(out, Stakeholder{
			Name:       name,
			Role:       asString(m["role"]),
			Department: asString(m["department"]),
			Influence:  asString(m["influence"]),
			Interest:   asString(m["interest"]),
			Attitude:   asString(m["attitude"]),
		})
	}
	return out, true
}

func decodeDataset(m map[string]any) (*DatasetAttachment, bool) {
	if len(m) == 0 {
		return &DatasetAttachment{}, true
	}
	_, hasPayload := m[DatasetPayloadKey]
	_, hasInfo := m[DatasetInfoKey]
	if !hasPayload && !hasInfo {
		return nil, false
	}

	d := &DatasetAttachment{SizeWarning: asString(m[SizeWarningKey])}
	switch payload := m[DatasetPayloadKey].(type) {
	case nil:
	case string:
		d.Legacy = payload
	case map[string]any:
		enc, err := tabular.EncodedFromValue(payload)
		if err != nil {
			return nil, false
		}
		d.Encoded = enc
	default:
		return nil, false
	}
	if raw, ok := m[DatasetInfoKey]; ok && raw != nil {
		info, err := tabular.InfoFromValue(raw)
		if err != nil {
			return nil, false
		}
		d.Info = &info
	}
	return d, true
}
