package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/client/models"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, n *models.Note) error {
	query := `
		INSERT INTO notes (program_id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(program_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, n.ProgramID, n.Body, n.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, programID string) (*models.Note, error) {
	n := &models.Note{ProgramID: programID}
	err := r.db.QueryRowContext(ctx, `SELECT body, updated_at FROM notes WHERE program_id = ?`, programID).
		Scan(&n.Body, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, programID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE program_id = ?`, programID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT program_id, body, updated_at FROM notes ORDER BY program_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	result := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ProgramID, &n.Body, &n.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
