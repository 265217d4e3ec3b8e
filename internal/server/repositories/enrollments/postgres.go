package enrollments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, program_id, program_name, participant_name, email, notes, user_id, created_at, program_counted, summary_counted`

func (r *PostgresRepository) Create(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (program_id, program_name, participant_name, email, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	var userID sql.NullString
	if e.UserID != nil {
		userID = sql.NullString{String: *e.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		e.ProgramID, e.ProgramName, e.ParticipantName, e.Email, e.Notes, userID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + selectColumns + ` FROM enrollments WHERE id = $1`

	e, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByProgram(ctx context.Context, programID string) ([]*models.Enrollment, error) {
	query := `SELECT ` + selectColumns + ` FROM enrollments WHERE program_id = $1 ORDER BY created_at`
	return r.list(ctx, query, programID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Enrollment, error) {
	query := `SELECT ` + selectColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListUncounted(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT id FROM enrollments
		WHERE NOT (program_counted AND summary_counted)
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresRepository) MarkCounted(ctx context.Context, id string, c Counter) error {
	var query string
	switch c {
	case ProgramCounter:
		query = `UPDATE enrollments SET program_counted = true WHERE id = $1 AND NOT program_counted`
	case SummaryCounter:
		query = `UPDATE enrollments SET summary_counted = true WHERE id = $1 AND NOT summary_counted`
	default:
		return fmt.Errorf("unknown counter %q", c)
	}

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrAlreadyCounted
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select enrollments: %w", err)
	}
	defer rows.Close()

	var result []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(s scanner) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	var userID sql.NullString
	if err := s.Scan(&e.ID, &e.ProgramID, &e.ProgramName, &e.ParticipantName, &e.Email, &e.Notes,
		&userID, &e.CreatedAt, &e.ProgramCounted, &e.SummaryCounted); err != nil {
		return nil, err
	}
	if userID.Valid {
		e.UserID = &userID.String
	}
	return e, nil
}
