package repository

import (
	"context"
	"fmt"

	"github.com/cgscacau/green-belt-app-sub001/internal/logging"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

// DatasetResult describes a stored upload. Omitted is set when the table
// exceeded the size limit and only its info was written.
type DatasetResult struct {
	Info    tabular.Info `json:"dataset_info"`
	Size    int          `json:"size_bytes"`
	Omitted bool         `json:"omitted"`
	Warning string       `json:"warning,omitempty"`
}

// SaveDataset encodes t into measure.file_upload and marks the tool
// completed. Tables whose serialized form exceeds the limit are kept in
// the process cache only and stored with an empty payload and a warning.
func (r *ProjectRepository) SaveDataset(ctx context.Context, projectID, ownerID, filename string, t *tabular.Table) (*DatasetResult, error) {
	log := logging.NewLogger(ctx)

	if t == nil {
		return nil, &domain.ValidationError{Field: "file", Message: "no table to save"}
	}
	enc, err := tabular.Encode(t)
	if err != nil {
		return nil, err
	}
	size, err := tabular.SerializedSize(enc)
	if err != nil {
		return nil, err
	}
	if _, err := r.load(ctx, projectID, ownerID); err != nil {
		return nil, err
	}

	now := r.sync.Now()
	info := tabular.BuildInfo(t, filename, now)
	att := &domain.DatasetAttachment{Encoded: enc, Info: &info}
	res := &DatasetResult{Info: info, Size: size}
	if size > r.maxDatasetBytes {
		att.Encoded = nil
		att.SizeWarning = fmt.Sprintf("dataset too large (%.1fKB); data kept in memory only", float64(size)/1024)
		res.Omitted = true
		res.Warning = att.SizeWarning
		log.LogWarnf("save_dataset", "project_id=%s size_bytes=%d limit_bytes=%d message=payload omitted", projectID, size, r.maxDatasetBytes)
	}

	prefix := string(domain.PhaseMeasure) + "." + domain.DatasetTool
	err = r.sync.Update(ctx, projectID, map[string]any{
		domain.DatasetDataPath: att.Value(),
		prefix + ".completed":  true,
		prefix + ".updated_at": domain.FormatTimestamp(now),
	})
	if err != nil {
		r.countStoreError(err)
		return nil, err
	}
	r.metrics.recordUpdate()
	r.sync.CacheDataset(projectID, t, info)

	log.LogInfof("save_dataset", "project_id=%s filename=%s rows=%d cols=%d size_bytes=%d", projectID, filename, t.NumRows(), t.NumCols(), size)
	return res, nil
}

// Dataset returns the project's table and info, preferring the cache.
// The table is nil with a nil error when only the info survived, as for
// an oversize upload after the process restarted. ErrNoDataset means
// nothing was ever uploaded.
func (r *ProjectRepository) Dataset(ctx context.Context, projectID, ownerID string) (*tabular.Table, *tabular.Info, error) {
	if _, err := r.load(ctx, projectID, ownerID); err != nil {
		return nil, nil, err
	}
	if t, ok := r.sync.Dataset(projectID); ok {
		info, _ := r.sync.DatasetInfo(projectID)
		return t, info, nil
	}

	p, err := r.Fetch(ctx, projectID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	att, ok := p.Dataset()
	if !ok || att.IsEmpty() {
		return nil, nil, domain.ErrNoDataset
	}
	t, _ := r.sync.Dataset(projectID)
	return t, att.Info, nil
}
