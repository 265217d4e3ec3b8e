package favorites

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/client/models"
	"github.com/dmitrijs2005/rechub/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, f *models.Favorite) error {
	query := `
		INSERT INTO favorites (program_id, program_name, added_at) VALUES (?, ?, ?)
		ON CONFLICT(program_id) DO UPDATE SET program_name = excluded.program_name
	`
	if _, err := r.db.ExecContext(ctx, query, f.ProgramID, f.ProgramName, f.AddedAt.UTC()); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, programID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE program_id = ?`, programID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT program_id, program_name, added_at FROM favorites ORDER BY added_at DESC, program_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select favorites: %w", err)
	}
	defer rows.Close()

	result := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ProgramID, &f.ProgramName, &f.AddedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Contains(ctx context.Context, programID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE program_id = ?`, programID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return n > 0, nil
}
