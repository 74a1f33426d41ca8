package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/crawler-api/internal/domain"
)

func SeedDatasheet(tb testing.TB, ctx context.Context, tx *gorm.DB, first, last string) *types.Datasheet {
	tb.Helper()
	ds := &types.Datasheet{
		FirstName: first,
		LastName:  last,
		Age:       40,
		Addresses: []types.DatasheetAddress{
			{Street: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701"},
		},
	}
	if err := tx.WithContext(ctx).Create(ds).Error; err != nil {
		tb.Fatalf("seed datasheet: %v", err)
	}
	return ds
}

func SeedScan(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, status types.ScanStatus) *types.Scan {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.Scan{
		Name:      name,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status != types.ScanStatusPending {
		wf := "scan-seeded-" + name
		s.WorkflowID = &wf
	}
	if status.IsCompletion() {
		s.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed scan: %v", err)
	}
	return s
}

func PtrString(v string) *string { return &v }

func PtrUint(v uint) *uint { return &v }
