package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Conn returns the transaction when one is attached, otherwise fallback, bound to Ctx.
func (c Context) Conn(fallback *gorm.DB) *gorm.DB {
	db := c.Tx
	if db == nil {
		db = fallback
	}
	if c.Ctx == nil {
		return db.WithContext(context.Background())
	}
	return db.WithContext(c.Ctx)
}
