package scans

import (
	"context"
	"testing"

	"github.com/yungbote/crawler-api/internal/data/repos/testutil"
	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
)

func TestScanRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewScanRepo(db, testutil.Logger(t))

	scan := &types.Scan{Name: "first", Status: types.ScanStatusPending}
	if err := repo.Create(dbc, scan); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if scan.ID == 0 {
		t.Fatalf("Create: expected store-assigned id")
	}

	got, err := repo.GetByID(dbc, scan.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.Name != "first" || got.Status != types.ScanStatusPending {
		t.Fatalf("GetByID: unexpected row %+v", got)
	}

	missing, err := repo.GetByID(dbc, scan.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): err=%v got=%v", err, missing)
	}

	wf := "scan-1"
	got.WorkflowID = &wf
	got.Status = types.ScanStatusStarted
	if err := repo.Save(dbc, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	locked, err := repo.GetByIDForUpdate(dbc, scan.ID)
	if err != nil || locked == nil {
		t.Fatalf("GetByIDForUpdate: err=%v got=%v", err, locked)
	}
	if locked.Status != types.ScanStatusStarted || locked.WorkflowID == nil || *locked.WorkflowID != wf {
		t.Fatalf("Save did not persist: %+v", locked)
	}

	if err := repo.UpdateFields(dbc, scan.ID, map[string]interface{}{"name": "renamed"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	renamed, _ := repo.GetByID(dbc, scan.ID)
	if renamed.Name != "renamed" {
		t.Fatalf("UpdateFields: name=%q", renamed.Name)
	}

	if err := repo.Delete(dbc, scan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gone, _ := repo.GetByID(dbc, scan.ID); gone != nil {
		t.Fatalf("Delete: row still present")
	}
}

func TestScanRepoListFiltersAndPaginates(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewScanRepo(db, testutil.Logger(t))

	testutil.SeedScan(t, ctx, db, "a", types.ScanStatusStarted)
	testutil.SeedScan(t, ctx, db, "b", types.ScanStatusFailed)
	testutil.SeedScan(t, ctx, db, "c", types.ScanStatusStarted)
	testutil.SeedScan(t, ctx, db, "d", types.ScanStatusCompleted)

	all, err := repo.List(dbc, ScanFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("List: want=4 got=%d", len(all))
	}

	started := types.ScanStatusStarted
	rows, err := repo.List(dbc, ScanFilter{Status: &started})
	if err != nil {
		t.Fatalf("List(status): %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "a" || rows[1].Name != "c" {
		t.Fatalf("List(status): unexpected rows %v", names(rows))
	}

	page, err := repo.List(dbc, ScanFilter{Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List(page): %v", err)
	}
	if len(page) != 2 || page[0].Name != "b" || page[1].Name != "c" {
		t.Fatalf("List(page): unexpected rows %v", names(page))
	}
}

func names(rows []*types.Scan) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}
