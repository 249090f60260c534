package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cgscacau/green-belt-app-sub001/internal/auth"
	"github.com/cgscacau/green-belt-app-sub001/internal/logging"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/progress"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/repository"
	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

const (
	defaultPreviewRows = 100
	maxPreviewRows     = 1000
)

// requireUser aborts with 401 when no uid was set by the auth middleware.
func requireUser(c *gin.Context) (string, bool) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return "", false
	}
	return uid, true
}

func (h *Handler) create(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.CreateProjectInput
	if err := decodeJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	res, err := h.repo.Create(c.Request.Context(), uid, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"ok":         true,
		"project_id": res.ProjectID,
		"project":    summarize(res.Project),
		"warnings":   res.Warnings,
	})
}

func (h *Handler) list(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	items := h.repo.ListByOwner(c.Request.Context(), uid)
	out := make([]projectSummary, 0, len(items))
	for _, p := range items {
		out = append(out, summarize(p))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": out})
}

func (h *Handler) get(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := h.repo.Fetch(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p.Document(), "statistics": progress.Compute(p)})
}

func (h *Handler) update(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var updates map[string]any
	if err := decodeJSON(c, &updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if err := h.repo.Update(c.Request.Context(), c.Param("project_id"), uid, updates); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) delete(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := h.repo.Delete(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": res.Deleted, "warnings": res.Warnings})
}

func (h *Handler) saveTool(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	phase, ok := domain.ParsePhase(c.Param("phase"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown phase"})
		return
	}

	var req saveToolReq
	if err := decodeJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	ctx := c.Request.Context()
	projectID, tool := c.Param("project_id"), c.Param("tool")
	var err error
	switch {
	case req.Data != nil:
		var data any
		if err := decodeRaw(req.Data, &data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid data"})
			return
		}
		err = h.repo.SaveToolData(ctx, projectID, uid, phase, tool, data, req.Completed)
	case req.Completed != nil:
		err = h.repo.SetToolCompleted(ctx, projectID, uid, phase, tool, *req.Completed)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "data or completed is required"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) progress(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	rep, err := h.repo.Statistics(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": rep})
}

func (h *Handler) uploadDataset(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "could not read file"})
		return
	}
	defer f.Close()

	tbl, err := tabular.ParseCSV(f)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.repo.SaveDataset(c.Request.Context(), c.Param("project_id"), uid, filepath.Base(fh.Filename), tbl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "dataset": res})
}

func (h *Handler) getDataset(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	limit := defaultPreviewRows
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "limit must be a non-negative integer"})
			return
		}
		limit = min(n, maxPreviewRows)
	}

	tbl, info, err := h.repo.Dataset(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	if tbl == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "available": false, "dataset_info": info, "columns": []string{}, "rows": []any{}})
		return
	}
	enc, err := tabular.Encode(tbl)
	if err != nil {
		writeError(c, err)
		return
	}
	rows := enc.Records
	if len(rows) > limit {
		rows = rows[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "available": true, "dataset_info": info, "columns": enc.Columns, "rows": rows})
}

func (h *Handler) sync(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	synced := h.repo.EnsureSync(c.Request.Context(), c.Param("project_id"), uid)
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": synced})
}

func (h *Handler) export(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	format := repository.ExportFormat(c.DefaultQuery("format", string(repository.ExportJSON)))
	body, contentType, err := h.repo.Export(c.Request.Context(), c.Param("project_id"), uid, format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "project_"+c.Param("project_id")+"."+string(format)))
	c.Data(http.StatusOK, contentType, body)
}

func (h *Handler) summary(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": h.repo.Summary(c.Request.Context(), uid)})
}

func (h *Handler) stats(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": h.repo.Metrics()})
}

// writeError maps repository failures to status codes.
func writeError(c *gin.Context, err error) {
	var (
		ve   *domain.ValidationError
		ce   *tabular.CodecError
		serr *domain.StoreError
	)
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.As(err, &ve):
		status, msg = http.StatusBadRequest, ve.Error()
	case errors.As(err, &ce):
		status, msg = http.StatusBadRequest, ce.Error()
	case errors.Is(err, domain.ErrUnknownTool):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrAccessDenied):
		status, msg = http.StatusForbidden, "access denied"
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "project not found"
	case errors.Is(err, domain.ErrNoDataset):
		status, msg = http.StatusNotFound, "no dataset uploaded"
	case errors.As(err, &serr) && (serr.Category == domain.StoreConnectivity || serr.Category == domain.StoreQuota):
		status, msg = http.StatusServiceUnavailable, "document store unavailable"
	}
	if status >= http.StatusInternalServerError {
		logging.NewLogger(c.Request.Context()).LogErrorf("http", "path=%s status=%d error=%v", c.FullPath(), status, err)
	}
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

// decodeJSON reads the request body keeping integers distinct from floats.
func decodeJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeRaw(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
