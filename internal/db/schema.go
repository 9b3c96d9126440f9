package db

import (
	"context"
	_ "embed"

	"outagewatch/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates any missing tables and indexes. Every statement is
// idempotent, so it is safe to run on each start when DB_AUTO_MIGRATE is set.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to apply schema", err)
	}
	return nil
}
