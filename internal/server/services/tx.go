package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/rechub/internal/dbx"
)

// txFunc runs fn inside one database transaction.
type txFunc func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

func sqlTx(db *sql.DB) txFunc {
	return func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}
}
