package scans

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/crawler-api/internal/data/repos/testutil"
	types "github.com/yungbote/crawler-api/internal/domain"
	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
)

func TestScanResultRepoUpsertOverwritesSameSite(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewScanResultRepo(db, testutil.Logger(t))
	scan := testutil.SeedScan(t, ctx, db, "upsert", types.ScanStatusStarted)

	now := time.Now().UTC()
	if err := repo.Upsert(dbc, domainscans.NewCompletedResult(scan.ID, 1, []byte(`{"x":1}`), now)); err != nil {
		t.Fatalf("Upsert(completed): %v", err)
	}
	row, err := repo.GetByScanAndSite(dbc, scan.ID, 1)
	if err != nil || row == nil {
		t.Fatalf("GetByScanAndSite: err=%v row=%v", err, row)
	}
	if row.Status != types.ResultStatusCompleted || row.ErrorMessage != nil || dataString(row) != `{"x":1}` {
		t.Fatalf("completed row: %+v data=%s", row, dataString(row))
	}

	if err := repo.Upsert(dbc, domainscans.NewFailedResult(scan.ID, 1, "timeout", now.Add(time.Second))); err != nil {
		t.Fatalf("Upsert(failed): %v", err)
	}
	n, err := repo.CountByScan(dbc, scan.ID)
	if err != nil {
		t.Fatalf("CountByScan: %v", err)
	}
	if n != 1 {
		t.Fatalf("CountByScan: want=1 got=%d", n)
	}
	row, _ = repo.GetByScanAndSite(dbc, scan.ID, 1)
	if row.Status != types.ResultStatusFailed {
		t.Fatalf("status: want=FAILED got=%s", row.Status)
	}
	if row.ErrorMessage == nil || *row.ErrorMessage != "timeout" {
		t.Fatalf("error_message: got=%v", row.ErrorMessage)
	}
	if row.Data != nil {
		t.Fatalf("data should be cleared, got=%s", dataString(row))
	}

	if err := repo.Upsert(dbc, domainscans.NewCompletedResult(scan.ID, 1, []byte(`{"y":2}`), now.Add(2*time.Second))); err != nil {
		t.Fatalf("Upsert(completed again): %v", err)
	}
	row, _ = repo.GetByScanAndSite(dbc, scan.ID, 1)
	if row.Status != types.ResultStatusCompleted || row.ErrorMessage != nil || dataString(row) != `{"y":2}` {
		t.Fatalf("overwritten row: %+v data=%s", row, dataString(row))
	}
}

func TestScanResultRepoListAndDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewScanResultRepo(db, testutil.Logger(t))
	scan := testutil.SeedScan(t, ctx, db, "list", types.ScanStatusStarted)
	other := testutil.SeedScan(t, ctx, db, "other", types.ScanStatusStarted)

	now := time.Now().UTC()
	for _, site := range []int64{3, 1, 2} {
		if err := repo.Upsert(dbc, domainscans.NewCompletedResult(scan.ID, site, []byte(`{}`), now)); err != nil {
			t.Fatalf("Upsert(%d): %v", site, err)
		}
	}
	if err := repo.Upsert(dbc, domainscans.NewFailedResult(other.ID, 1, "boom", now)); err != nil {
		t.Fatalf("Upsert(other): %v", err)
	}

	rows, err := repo.ListByScan(dbc, scan.ID)
	if err != nil {
		t.Fatalf("ListByScan: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListByScan: want=3 got=%d", len(rows))
	}
	for i, r := range rows {
		if r.SiteID != int64(i+1) {
			t.Fatalf("ListByScan order: idx=%d site=%d", i, r.SiteID)
		}
	}

	deleted, err := repo.DeleteByScan(dbc, scan.ID)
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteByScan: err=%v deleted=%d", err, deleted)
	}
	if n, _ := repo.CountByScan(dbc, other.ID); n != 1 {
		t.Fatalf("DeleteByScan touched another scan: count=%d", n)
	}
}

func dataString(r *types.ScanResult) string {
	if r == nil || r.Data == nil {
		return ""
	}
	return string(*r.Data)
}
