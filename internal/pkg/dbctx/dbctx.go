package dbctx

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	return Context{Ctx: ctxutil.Default(ctx)}
}

func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: ctxutil.Default(c.Ctx), Tx: tx}
}

// Conn returns the transaction when one is attached, otherwise fallback,
// bound to the context.
func (c Context) Conn(fallback *gorm.DB) *gorm.DB {
	conn := c.Tx
	if conn == nil {
		conn = fallback
	}
	return conn.WithContext(ctxutil.Default(c.Ctx))
}
