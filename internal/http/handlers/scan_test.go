package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/crawler-api/internal/data/repos"
	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/http/response"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
	"github.com/yungbote/crawler-api/internal/services"
)

type stubScanService struct {
	create   func(in services.CreateScanInput) (*types.Scan, error)
	get      func(id uint) (*types.Scan, error)
	list     func(f repos.ScanFilter) ([]*types.Scan, error)
	progress func(id uint) (*services.ScanProgress, error)
}

func (s *stubScanService) Create(_ dbctx.Context, in services.CreateScanInput) (*types.Scan, error) {
	return s.create(in)
}
func (s *stubScanService) Get(_ dbctx.Context, id uint) (*types.Scan, error) { return s.get(id) }
func (s *stubScanService) List(_ dbctx.Context, f repos.ScanFilter) ([]*types.Scan, error) {
	return s.list(f)
}
func (s *stubScanService) Progress(_ dbctx.Context, id uint) (*services.ScanProgress, error) {
	return s.progress(id)
}

type stubReconciler struct {
	complete    func(id uint, in services.CompletionInput) (*services.CompletionOutcome, error)
	listResults func(id uint) ([]*types.ScanResult, error)
}

func (s *stubReconciler) Complete(_ dbctx.Context, id uint, in services.CompletionInput) (*services.CompletionOutcome, error) {
	return s.complete(id, in)
}
func (s *stubReconciler) ListResults(_ dbctx.Context, id uint) ([]*types.ScanResult, error) {
	return s.listResults(id)
}

func newScanRouter(svc *stubScanService, rec *stubReconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewScanHandler(svc, rec)
	r := gin.New()
	r.POST("/scans/", h.CreateScan)
	r.GET("/scans/", h.ListScans)
	r.GET("/scans/:id", h.GetScan)
	r.GET("/scans/:id/results", h.ListScanResults)
	r.GET("/scans/:id/progress", h.GetScanProgress)
	r.POST("/internal/scans/:id/complete", h.CompleteScan)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.APIError {
	t.Helper()
	var env response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func TestCreateScanHandler(t *testing.T) {
	wf := "scan-7"
	var got services.CreateScanInput
	svc := &stubScanService{create: func(in services.CreateScanInput) (*types.Scan, error) {
		got = in
		return &types.Scan{ID: 7, Name: in.Name, Status: types.ScanStatusStarted, WorkflowID: &wf}, nil
	}}
	r := newScanRouter(svc, &stubReconciler{})

	rec := do(r, http.MethodPost, "/scans/", `{"name":"weekly","datasheet_id":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "weekly", got.Name)
	require.NotNil(t, got.DatasheetID)
	assert.EqualValues(t, 3, *got.DatasheetID)

	var body types.Scan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body.ID)
	assert.Equal(t, types.ScanStatusStarted, body.Status)
	assert.Equal(t, "scan-7", *body.WorkflowID)

	rec = do(r, http.MethodPost, "/scans/", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestCreateScanHandlerErrorMapping(t *testing.T) {
	failed := &types.Scan{ID: 9, Status: types.ScanStatusFailed}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing datasheet", &services.NotFoundError{Entity: "datasheet", ID: 3}, http.StatusNotFound, "datasheet_not_found"},
		{"empty name", fmt.Errorf("%w: name is required", services.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{
			"engine unreachable",
			&services.ScanStartError{Kind: services.StartFailureConnection, Scan: failed, Err: errors.New("refused")},
			http.StatusInternalServerError, "workflow_connection_failed",
		},
		{
			"start rejected",
			&services.ScanStartError{Kind: services.StartFailureRejected, Scan: failed, Err: errors.New("already started")},
			http.StatusInternalServerError, "workflow_start_failed",
		},
		{
			"unexpected",
			&services.ScanStartError{Kind: services.StartFailureUnexpected, Scan: failed, Err: errors.New("panic: boom")},
			http.StatusInternalServerError, "scan_start_failed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubScanService{create: func(services.CreateScanInput) (*types.Scan, error) { return failed, tc.err }}
			rec := do(newScanRouter(svc, &stubReconciler{}), http.MethodPost, "/scans/", `{"name":"x"}`)
			assert.Equal(t, tc.status, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestListScansHandlerQuery(t *testing.T) {
	var got repos.ScanFilter
	svc := &stubScanService{list: func(f repos.ScanFilter) ([]*types.Scan, error) {
		got = f
		return []*types.Scan{{ID: 1, Name: "a", Status: types.ScanStatusFailed}}, nil
	}}
	r := newScanRouter(svc, &stubReconciler{})

	rec := do(r, http.MethodGet, "/scans/?status=failed&skip=5&limit=20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.Status)
	assert.Equal(t, types.ScanStatusFailed, *got.Status)
	assert.Equal(t, 5, got.Skip)
	assert.Equal(t, 20, got.Limit)

	rec = do(r, http.MethodGet, "/scans/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got.Status)
	assert.Equal(t, repos.DefaultListLimit, got.Limit)

	for _, q := range []string{"status=running", "skip=-1", "limit=abc", "limit=5000"} {
		rec = do(r, http.MethodGet, "/scans/?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetScanHandler(t *testing.T) {
	svc := &stubScanService{get: func(id uint) (*types.Scan, error) {
		if id == 1 {
			return &types.Scan{ID: 1, Name: "a", Status: types.ScanStatusPending}, nil
		}
		return nil, &services.NotFoundError{Entity: "scan", ID: id}
	}}
	r := newScanRouter(svc, &stubReconciler{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/scans/1", "").Code)

	rec := do(r, http.MethodGet, "/scans/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "scan_not_found", decodeError(t, rec).Code)

	for _, id := range []string{"abc", "0", "-4"} {
		rec = do(r, http.MethodGet, "/scans/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "invalid_scan_id", decodeError(t, rec).Code)
	}
}

func TestGetScanProgressHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"no workflow", fmt.Errorf("%w: scan 1 is PENDING", services.ErrNoWorkflow), http.StatusConflict, "scan_not_started"},
		{"unreachable", fmt.Errorf("%w: refused", services.ErrWorkflowConnection), http.StatusBadGateway, "workflow_connection_failed"},
		{"query failed", fmt.Errorf("%w: not found", services.ErrWorkflowQuery), http.StatusBadGateway, "workflow_query_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubScanService{progress: func(id uint) (*services.ScanProgress, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &services.ScanProgress{ScanID: id, WorkflowID: "scan-1", Tasks: []json.RawMessage{}, Successes: []string{"1"}, Failures: []string{}}, nil
			}}
			rec := do(newScanRouter(svc, &stubReconciler{}), http.MethodGet, "/scans/1/progress", "")
			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, rec).Code)
			}
		})
	}
}

func TestCompleteScanHandler(t *testing.T) {
	var gotID uint
	var got services.CompletionInput
	rec := &stubReconciler{complete: func(id uint, in services.CompletionInput) (*services.CompletionOutcome, error) {
		gotID, got = id, in
		return &services.CompletionOutcome{
			ScanID:       id,
			FinalStatus:  types.ScanStatusPartial,
			ResultsCount: 1,
			ErrorsCount:  2,
			SkippedKeys:  []string{"abc"},
		}, nil
	}}
	r := newScanRouter(&stubScanService{}, rec)

	body := `{
		"results": {"1": {"name": "Ada"}, "abc": {}},
		"errors": {"2": "captcha", "3": {"code": 500}},
		"global_error": "partial crawl"
	}`
	res := do(r, http.MethodPost, "/internal/scans/42/complete", body)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	assert.EqualValues(t, 42, gotID)
	assert.JSONEq(t, `{"name":"Ada"}`, string(got.Results["1"]))
	assert.Equal(t, "captcha", got.Errors["2"])
	assert.JSONEq(t, `{"code":500}`, got.Errors["3"])
	require.NotNil(t, got.GlobalError)
	assert.Nil(t, got.Status)

	var out map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "Scan completion data persisted successfully", out["message"])
	assert.EqualValues(t, 42, out["scan_id"])
	assert.Equal(t, "PARTIAL", out["final_status"])
	assert.EqualValues(t, 1, out["results_count"])
	assert.EqualValues(t, 2, out["errors_count"])
	assert.Equal(t, []any{"abc"}, out["skipped_keys"])
}

func TestCompleteScanHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing scan", &services.NotFoundError{Entity: "scan", ID: 1}, http.StatusNotFound, "scan_not_found"},
		{"bad status", fmt.Errorf("%w: unknown status", services.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"illegal transition", fmt.Errorf("scan 1: STARTED -> PENDING: %w", services.ErrInvalidTransition), http.StatusConflict, "invalid_status_transition"},
		{"rollback", fmt.Errorf("%w: save scan: disk full", services.ErrReconciliation), http.StatusInternalServerError, "reconciliation_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &stubReconciler{complete: func(uint, services.CompletionInput) (*services.CompletionOutcome, error) {
				return nil, tc.err
			}}
			res := do(newScanRouter(&stubScanService{}, rec), http.MethodPost, "/internal/scans/1/complete", `{}`)
			assert.Equal(t, tc.status, res.Code)
			assert.Equal(t, tc.code, decodeError(t, res).Code)
		})
	}
}

func TestListScanResultsHandler(t *testing.T) {
	rec := &stubReconciler{listResults: func(id uint) ([]*types.ScanResult, error) {
		if id != 1 {
			return nil, &services.NotFoundError{Entity: "scan", ID: id}
		}
		msg := "captcha"
		return []*types.ScanResult{{ID: 1, ScanID: 1, SiteID: 4, Status: types.ResultStatusFailed, ErrorMessage: &msg}}, nil
	}}
	r := newScanRouter(&stubScanService{}, rec)

	res := do(r, http.MethodGet, "/scans/1/results", "")
	require.Equal(t, http.StatusOK, res.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 4, rows[0]["site_id"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/scans/2/results", "").Code)
}
