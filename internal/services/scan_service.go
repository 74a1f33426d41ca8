package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/crawler-api/internal/data/repos"
	types "github.com/yungbote/crawler-api/internal/domain"
	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
	"github.com/yungbote/crawler-api/internal/observability"
	"github.com/yungbote/crawler-api/internal/platform/ctxutil"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
	"github.com/yungbote/crawler-api/internal/platform/logger"
	"github.com/yungbote/crawler-api/internal/temporalx"
)

type CreateScanInput struct {
	Name        string
	Description *string
	DatasheetID *uint
}

// ScanProgress is the crawl workflow's live view of its per-site tasks.
type ScanProgress struct {
	ScanID     uint              `json:"scan_id"`
	WorkflowID string            `json:"workflow_id"`
	Status     types.ScanStatus  `json:"status"`
	Tasks      []json.RawMessage `json:"tasks"`
	Successes  []string          `json:"successes"`
	Failures   []string          `json:"failures"`
}

// WorkflowConnector hands out the shared workflow engine connection.
type WorkflowConnector interface {
	Connect(ctx context.Context) (temporalx.Engine, error)
}

type ScanWorkflowConfig struct {
	WorkflowName  string
	TaskQueue     string
	ProgressQuery string
}

type ScanService interface {
	// Create persists a PENDING scan, then starts its crawl workflow. The returned
	// scan is STARTED or FAILED; on error it is the durable FAILED row.
	Create(dbc dbctx.Context, in CreateScanInput) (*types.Scan, error)
	Get(dbc dbctx.Context, id uint) (*types.Scan, error)
	List(dbc dbctx.Context, filter repos.ScanFilter) ([]*types.Scan, error)
	Progress(dbc dbctx.Context, id uint) (*ScanProgress, error)
}

type scanService struct {
	db         *gorm.DB
	log        *logger.Logger
	scans      repos.ScanRepo
	datasheets repos.DatasheetRepo
	workflows  WorkflowConnector
	notify     ScanNotifier
	cfg        ScanWorkflowConfig
	now        func() time.Time
}

func NewScanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scanRepo repos.ScanRepo,
	datasheetRepo repos.DatasheetRepo,
	workflows WorkflowConnector,
	notify ScanNotifier,
	cfg ScanWorkflowConfig,
) ScanService {
	if cfg.WorkflowName == "" {
		cfg.WorkflowName = "crawlWorkflow"
	}
	if cfg.TaskQueue == "" {
		cfg.TaskQueue = "crawler-queue"
	}
	if cfg.ProgressQuery == "" {
		cfg.ProgressQuery = "getCrawlStatus"
	}
	return &scanService{
		db:         db,
		log:        baseLog.With("service", "ScanService"),
		scans:      scanRepo,
		datasheets: datasheetRepo,
		workflows:  workflows,
		notify:     notify,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *scanService) Create(dbc dbctx.Context, in CreateScanInput) (*types.Scan, error) {
	ctx := ctxutil.Default(dbc.Ctx)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var datasheet *types.Datasheet
	if in.DatasheetID != nil {
		ds, err := s.datasheets.GetByID(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, *in.DatasheetID)
		if err != nil {
			return nil, fmt.Errorf("load datasheet: %w", err)
		}
		if ds == nil {
			return nil, notFound("datasheet", *in.DatasheetID)
		}
		datasheet = ds
	}

	// The PENDING row is committed on its own, outside any caller transaction, so
	// it exists even when the engine is unreachable.
	now := s.now()
	scan := &types.Scan{
		Name:        name,
		Description: in.Description,
		Status:      types.ScanStatusPending,
		DatasheetID: in.DatasheetID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.scans.Create(dbctx.Context{Ctx: ctx}, scan); err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}

	log := s.log.With(append([]interface{}{"scan_id", scan.ID}, ctxutil.LogFields(ctx)...)...)
	log.Info("Scan created", "datasheet_id", in.DatasheetID)
	return s.start(ctx, log, scan, datasheet)
}

func (s *scanService) start(ctx context.Context, log *logger.Logger, scan *types.Scan, datasheet *types.Datasheet) (out *types.Scan, err error) {
	ctx, span := observability.StartSpan(ctx, "scan.start",
		attribute.Int64("scan.id", int64(scan.ID)),
		attribute.String("workflow.task_queue", s.cfg.TaskQueue),
	)
	defer func() { observability.EndSpan(span, err) }()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Scan start panic", "panic", r)
			out, err = s.fail(ctx, log, scan, StartFailureUnexpected, fmt.Errorf("panic: %v", r))
		}
	}()

	engine, err := s.workflows.Connect(ctx)
	if err != nil {
		return s.fail(ctx, log, scan, StartFailureConnection, err)
	}

	workflowID := domainscans.WorkflowCorrelationID(scan.ID)
	started := time.Now()
	handle, err := engine.StartWorkflow(ctx, s.cfg.WorkflowName, datasheet.CrawlTarget(scan.ID), workflowID, s.cfg.TaskQueue)
	observability.Current().ObserveWorkflowCall("start", callStatus(err), time.Since(started))
	if err != nil {
		return s.fail(ctx, log, scan, StartFailureRejected, err)
	}
	if handle.ID == "" {
		handle.ID = workflowID
	}

	if err := scan.MarkStarted(handle.ID, s.now()); err != nil {
		return s.fail(ctx, log, scan, StartFailureUnexpected, err)
	}
	if err := s.scans.Save(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, scan); err != nil {
		return s.fail(ctx, log, scan, StartFailureUnexpected, fmt.Errorf("persist started scan: %w", err))
	}

	log.Info("Scan workflow started", "workflow_id", handle.ID, "run_id", handle.RunID, "task_queue", s.cfg.TaskQueue)
	observability.Current().ObserveScanStart("started")
	s.publish(ctx, scan)
	return scan, nil
}

// fail records FAILED before surfacing the cause. The write ignores caller
// cancellation so an aborted request cannot leave the row PENDING.
func (s *scanService) fail(ctx context.Context, log *logger.Logger, scan *types.Scan, kind StartFailureKind, cause error) (*types.Scan, error) {
	startErr := &ScanStartError{Kind: kind, Scan: scan, Err: cause}
	log.Warn("Scan start failed", "kind", kind, "error", cause)
	observability.Current().ObserveScanStart(string(kind))

	if err := scan.MarkFailed(startErr.Error(), s.now()); err != nil {
		return scan, errors.Join(startErr, err)
	}
	if err := s.scans.Save(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, scan); err != nil {
		log.Error("Persisting FAILED scan failed", "error", err)
		return scan, errors.Join(startErr, fmt.Errorf("persist failed scan: %w", err))
	}
	s.publish(ctx, scan)
	return scan, startErr
}

func (s *scanService) publish(ctx context.Context, scan *types.Scan) {
	if s.notify != nil {
		s.notify.ScanStatusChanged(ctx, scan)
	}
}

func (s *scanService) Get(dbc dbctx.Context, id uint) (*types.Scan, error) {
	scan, err := s.scans.GetByID(dbctx.Context{Ctx: ctxutil.Default(dbc.Ctx), Tx: dbc.Tx}, id)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	if scan == nil {
		return nil, notFound("scan", id)
	}
	return scan, nil
}

func (s *scanService) List(dbc dbctx.Context, filter repos.ScanFilter) ([]*types.Scan, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *filter.Status)
	}
	if filter.Skip < 0 || filter.Limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be non-negative", ErrInvalidInput)
	}
	return s.scans.List(dbctx.Context{Ctx: ctxutil.Default(dbc.Ctx), Tx: dbc.Tx}, filter)
}

type crawlStatus struct {
	Tasks     []json.RawMessage `json:"tasks"`
	Successes []string          `json:"successes"`
	Failures  []string          `json:"failures"`
}

func (s *scanService) Progress(dbc dbctx.Context, id uint) (*ScanProgress, error) {
	ctx := ctxutil.Default(dbc.Ctx)
	scan, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	if scan.WorkflowID == nil || *scan.WorkflowID == "" {
		return nil, fmt.Errorf("%w: scan %d is %s", ErrNoWorkflow, scan.ID, scan.Status)
	}

	engine, err := s.workflows.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowConnection, err)
	}
	var st crawlStatus
	started := time.Now()
	err = engine.QueryWorkflow(ctx, *scan.WorkflowID, s.cfg.ProgressQuery, &st)
	observability.Current().ObserveWorkflowCall("query", callStatus(err), time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowQuery, err)
	}

	out := &ScanProgress{
		ScanID:     scan.ID,
		WorkflowID: *scan.WorkflowID,
		Status:     scan.Status,
		Tasks:      st.Tasks,
		Successes:  st.Successes,
		Failures:   st.Failures,
	}
	if out.Tasks == nil {
		out.Tasks = []json.RawMessage{}
	}
	if out.Successes == nil {
		out.Successes = []string{}
	}
	if out.Failures == nil {
		out.Failures = []string{}
	}
	return out, nil
}

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
