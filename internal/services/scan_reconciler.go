package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
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
)

// CompletionInput is one (possibly repeated) completion report from the crawl
// workflow. Map keys are decimal site ids.
type CompletionInput struct {
	Results     map[string]json.RawMessage
	Errors      map[string]string
	Status      *string
	GlobalError *string
}

type CompletionOutcome struct {
	ScanID       uint             `json:"scan_id"`
	FinalStatus  types.ScanStatus `json:"final_status"`
	ResultsCount int              `json:"results_count"`
	ErrorsCount  int              `json:"errors_count"`
	SkippedKeys  []string         `json:"skipped_keys,omitempty"`
}

type ScanReconciler interface {
	// Complete applies the report atomically: per-site rows are upserted (errors
	// after results, so an error wins for a site in both) and the scan's final
	// status is set. Any failure rolls the whole report back.
	Complete(dbc dbctx.Context, scanID uint, in CompletionInput) (*CompletionOutcome, error)
	ListResults(dbc dbctx.Context, scanID uint) ([]*types.ScanResult, error)
}

type scanReconciler struct {
	db      *gorm.DB
	log     *logger.Logger
	scans   repos.ScanRepo
	results repos.ScanResultRepo
	notify  ScanNotifier
	now     func() time.Time
}

func NewScanReconciler(
	db *gorm.DB,
	baseLog *logger.Logger,
	scanRepo repos.ScanRepo,
	resultRepo repos.ScanResultRepo,
	notify ScanNotifier,
) ScanReconciler {
	return &scanReconciler{
		db:      db,
		log:     baseLog.With("service", "ScanReconciler"),
		scans:   scanRepo,
		results: resultRepo,
		notify:  notify,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *scanReconciler) Complete(dbc dbctx.Context, scanID uint, in CompletionInput) (out *CompletionOutcome, err error) {
	ctx, span := observability.StartSpan(ctxutil.Default(dbc.Ctx), "scan.complete",
		attribute.Int64("scan.id", int64(scanID)),
		attribute.Int("scan.results", len(in.Results)),
		attribute.Int("scan.errors", len(in.Errors)),
	)
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx
	return s.complete(dbc, scanID, in)
}

func (s *scanReconciler) complete(dbc dbctx.Context, scanID uint, in CompletionInput) (*CompletionOutcome, error) {
	ctx := dbc.Ctx
	log := s.log.With(append([]interface{}{"scan_id", scanID}, ctxutil.LogFields(ctx)...)...)

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	out := &CompletionOutcome{ScanID: scanID}
	var scan *types.Scan
	err := transaction.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := s.scans.GetByIDForUpdate(inner, scanID)
		if err != nil {
			return fmt.Errorf("%w: load scan: %w", ErrReconciliation, err)
		}
		if found == nil {
			return notFound("scan", scanID)
		}
		scan = found

		final, err := completionStatus(in)
		if err != nil {
			return err
		}
		out.FinalStatus = final
		now := s.now()

		for _, key := range sortedKeys(in.Results) {
			siteID, ok := parseSiteID(key)
			if !ok {
				out.SkippedKeys = append(out.SkippedKeys, key)
				continue
			}
			row := domainscans.NewCompletedResult(scanID, siteID, in.Results[key], now)
			if err := s.results.Upsert(inner, row); err != nil {
				return fmt.Errorf("%w: upsert result for site %d: %w", ErrReconciliation, siteID, err)
			}
			out.ResultsCount++
		}

		for _, key := range sortedKeys(in.Errors) {
			siteID, ok := parseSiteID(key)
			if !ok {
				out.SkippedKeys = append(out.SkippedKeys, key)
				continue
			}
			row := domainscans.NewFailedResult(scanID, siteID, in.Errors[key], now)
			if err := s.results.Upsert(inner, row); err != nil {
				return fmt.Errorf("%w: upsert error for site %d: %w", ErrReconciliation, siteID, err)
			}
			out.ErrorsCount++
		}

		if err := scan.TransitionTo(final, now); err != nil {
			return err
		}
		if in.GlobalError != nil && *in.GlobalError != "" {
			msg := *in.GlobalError
			scan.LastError = &msg
		}
		if err := s.scans.Save(inner, scan); err != nil {
			return fmt.Errorf("%w: save scan: %w", ErrReconciliation, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReconciliation) {
			log.Error("Scan completion rolled back", "error", err)
		} else {
			log.Warn("Scan completion rejected", "error", err)
		}
		return nil, err
	}

	if len(out.SkippedKeys) > 0 {
		log.Warn("Skipped non-numeric site ids", "keys", out.SkippedKeys)
	}
	log.Info("Scan completed",
		"final_status", out.FinalStatus,
		"results_count", out.ResultsCount,
		"errors_count", out.ErrorsCount,
	)
	observability.Current().ObserveScanCompletion(string(out.FinalStatus), out.ResultsCount, out.ErrorsCount, len(out.SkippedKeys))
	if s.notify != nil {
		s.notify.ScanStatusChanged(ctx, scan)
	}
	return out, nil
}

func (s *scanReconciler) ListResults(dbc dbctx.Context, scanID uint) ([]*types.ScanResult, error) {
	inner := dbctx.Context{Ctx: ctxutil.Default(dbc.Ctx), Tx: dbc.Tx}
	scan, err := s.scans.GetByID(inner, scanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	if scan == nil {
		return nil, notFound("scan", scanID)
	}
	return s.results.ListByScan(inner, scanID)
}

// completionStatus parses an explicit status, or derives one from the report.
func completionStatus(in CompletionInput) (types.ScanStatus, error) {
	var explicit *types.ScanStatus
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		st, err := domainscans.ParseScanStatus(*in.Status)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		explicit = &st
	}
	return resolveFinalStatus(explicit, len(in.Results) > 0, len(in.Errors) > 0), nil
}

// resolveFinalStatus looks at the report as received, before any key is dropped.
func resolveFinalStatus(explicit *types.ScanStatus, hasResults, hasErrors bool) types.ScanStatus {
	switch {
	case explicit != nil:
		return *explicit
	case hasResults && !hasErrors:
		return types.ScanStatusCompleted
	case hasErrors && !hasResults:
		return types.ScanStatusFailed
	case hasResults && hasErrors:
		return types.ScanStatusPartial
	default:
		return types.ScanStatusFailed
	}
}

func parseSiteID(key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
