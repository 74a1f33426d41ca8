package scans

import (
	"context"
	"testing"

	"github.com/yungbote/crawler-api/internal/data/repos/testutil"
	types "github.com/yungbote/crawler-api/internal/domain"
	"github.com/yungbote/crawler-api/internal/platform/dbctx"
)

func TestDatasheetRepoGetByIDPreloadsAddresses(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewDatasheetRepo(db, testutil.Logger(t))

	ds := &types.Datasheet{
		FirstName: "Jane",
		LastName:  "Doe",
		Addresses: []types.DatasheetAddress{
			{City: "Austin", State: "TX"},
			{City: "Reno", State: "NV"},
		},
	}
	if err := repo.Create(dbc, ds); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, ds.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if len(got.Addresses) != 2 || got.Addresses[0].City != "Austin" {
		t.Fatalf("addresses: %+v", got.Addresses)
	}

	missing, err := repo.GetByID(dbc, ds.ID+1)
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): err=%v got=%v", err, missing)
	}
}
