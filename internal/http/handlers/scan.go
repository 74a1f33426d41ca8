package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/crawler-api/internal/data/repos"
	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/http/response"
	"github.com/yungbote/crawler-api/internal/platform/apierr"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
	"github.com/yungbote/crawler-api/internal/services"
)

type ScanHandler struct {
	scans      services.ScanService
	reconciler services.ScanReconciler
}

func NewScanHandler(scans services.ScanService, reconciler services.ScanReconciler) *ScanHandler {
	return &ScanHandler{scans: scans, reconciler: reconciler}
}

type createScanRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	DatasheetID *uint   `json:"datasheet_id"`
}

// POST /scans/
func (h *ScanHandler) CreateScan(c *gin.Context) {
	var req createScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	scan, err := h.scans.Create(dbctx.Context{Ctx: c.Request.Context()}, services.CreateScanInput{
		Name:        req.Name,
		Description: req.Description,
		DatasheetID: req.DatasheetID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, scan)
}

// GET /scans/?status=&skip=&limit=
func (h *ScanHandler) ListScans(c *gin.Context) {
	filter := repos.ScanFilter{}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st, err := types.ParseScanStatus(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_status", err)
			return
		}
		filter.Status = &st
	}
	var err error
	if filter.Skip, err = queryInt(c, "skip", 0); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_skip", err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit", repos.DefaultListLimit); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return
	}
	if filter.Limit > repos.MaxListLimit {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit",
			fmt.Errorf("limit must be at most %d", repos.MaxListLimit))
		return
	}

	out, err := h.scans.List(dbctx.Context{Ctx: c.Request.Context()}, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /scans/:id
func (h *ScanHandler) GetScan(c *gin.Context) {
	id, ok := scanIDParam(c)
	if !ok {
		return
	}
	scan, err := h.scans.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, scan)
}

// GET /scans/:id/results
func (h *ScanHandler) ListScanResults(c *gin.Context) {
	id, ok := scanIDParam(c)
	if !ok {
		return
	}
	out, err := h.reconciler.ListResults(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /scans/:id/progress
func (h *ScanHandler) GetScanProgress(c *gin.Context) {
	id, ok := scanIDParam(c)
	if !ok {
		return
	}
	out, err := h.scans.Progress(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

type completeScanRequest struct {
	Results     map[string]json.RawMessage `json:"results"`
	Errors      map[string]json.RawMessage `json:"errors"`
	Status      *string                    `json:"status"`
	GlobalError *string                    `json:"global_error"`
}

type completeScanResponse struct {
	Message      string           `json:"message"`
	ScanID       uint             `json:"scan_id"`
	FinalStatus  types.ScanStatus `json:"final_status"`
	ResultsCount int              `json:"results_count"`
	ErrorsCount  int              `json:"errors_count"`
	SkippedKeys  []string         `json:"skipped_keys,omitempty"`
}

// POST /internal/scans/:id/complete
func (h *ScanHandler) CompleteScan(c *gin.Context) {
	id, ok := scanIDParam(c)
	if !ok {
		return
	}
	var req completeScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	out, err := h.reconciler.Complete(dbctx.Context{Ctx: c.Request.Context()}, id, services.CompletionInput{
		Results:     req.Results,
		Errors:      errorMessages(req.Errors),
		Status:      req.Status,
		GlobalError: req.GlobalError,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, completeScanResponse{
		Message:      "Scan completion data persisted successfully",
		ScanID:       out.ScanID,
		FinalStatus:  out.FinalStatus,
		ResultsCount: out.ResultsCount,
		ErrorsCount:  out.ErrorsCount,
		SkippedKeys:  out.SkippedKeys,
	})
}

// errorMessages flattens per-site error values; non-string JSON is kept as its
// raw text.
func errorMessages(in map[string]json.RawMessage) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, raw := range in {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = strings.TrimSpace(string(raw))
	}
	return out
}

func scanIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_scan_id", fmt.Errorf("invalid scan id %q", raw))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.RespondAPIError(c, classifyError(err))
}

// classifyError maps service errors to an HTTP status and stable code.
func classifyError(err error) *apierr.Error {
	if ae, ok := apierr.From(err); ok {
		return ae
	}

	var startErr *services.ScanStartError
	if errors.As(err, &startErr) {
		switch startErr.Kind {
		case services.StartFailureConnection:
			return apierr.Internal("workflow_connection_failed", err)
		case services.StartFailureRejected:
			return apierr.Internal("workflow_start_failed", err)
		default:
			return apierr.Internal("scan_start_failed", err)
		}
	}

	var nf *services.NotFoundError
	switch {
	case errors.As(err, &nf):
		return apierr.NotFound(nf.Entity+"_not_found", err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.BadRequest("invalid_input", err)
	case errors.Is(err, services.ErrInvalidTransition):
		return apierr.Conflict("invalid_status_transition", err)
	case errors.Is(err, services.ErrNoWorkflow):
		return apierr.Conflict("scan_not_started", err)
	case errors.Is(err, services.ErrWorkflowConnection):
		return apierr.BadGateway("workflow_connection_failed", err)
	case errors.Is(err, services.ErrWorkflowQuery):
		return apierr.BadGateway("workflow_query_failed", err)
	case errors.Is(err, services.ErrReconciliation):
		return apierr.Internal("reconciliation_failed", err)
	default:
		return apierr.Internal("internal_error", err)
	}
}
