package stats

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *PostgresRepository) GetProgram(ctx context.Context, programID string) (*models.ProgramStats, error) {
	query := `
		SELECT program_name, enrollments, participant_emails, unique_participants, version, updated_at
		FROM program_stats
		WHERE program_id = $1
	`
	s := &models.ProgramStats{ProgramID: programID}
	var emails []byte
	err := r.db.QueryRowContext(ctx, query, programID).Scan(
		&s.ProgramName, &s.Enrollments, &emails, &s.UniqueParticipants, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.ParticipantEmails = []string{}
			return s, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(emails, &s.ParticipantEmails); err != nil {
		return nil, fmt.Errorf("decode participant emails: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) SaveProgram(ctx context.Context, s *models.ProgramStats) error {
	emails, err := encodeEmails(s.ParticipantEmails)
	if err != nil {
		return err
	}

	var res sql.Result
	if s.Version == 0 {
		query := `
			INSERT INTO program_stats (program_id, program_name, enrollments, participant_emails, unique_participants, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6)
			ON CONFLICT (program_id) DO NOTHING
		`
		res, err = r.db.ExecContext(ctx, query,
			s.ProgramID, s.ProgramName, s.Enrollments, emails, s.UniqueParticipants, s.UpdatedAt)
	} else {
		query := `
			UPDATE program_stats
			SET program_name = $2, enrollments = $3, participant_emails = $4,
				unique_participants = $5, version = version + 1, updated_at = $6
			WHERE program_id = $1 AND version = $7
		`
		res, err = r.db.ExecContext(ctx, query,
			s.ProgramID, s.ProgramName, s.Enrollments, emails, s.UniqueParticipants, s.UpdatedAt, s.Version)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := checkSaved(res); err != nil {
		return err
	}
	s.Version++
	return nil
}

func (r *PostgresRepository) GetSummary(ctx context.Context) (*models.Summary, error) {
	query := `
		SELECT total_enrollments, total_programs, participant_emails, unique_participants, version, updated_at
		FROM app_summary
		WHERE id = $1
	`
	s := &models.Summary{}
	var emails []byte
	err := r.db.QueryRowContext(ctx, query, models.SummaryID).Scan(
		&s.Enrollments, &s.TotalPrograms, &emails, &s.UniqueParticipants, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.ParticipantEmails = []string{}
			return s, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(emails, &s.ParticipantEmails); err != nil {
		return nil, fmt.Errorf("decode participant emails: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) SaveSummary(ctx context.Context, s *models.Summary) error {
	emails, err := encodeEmails(s.ParticipantEmails)
	if err != nil {
		return err
	}

	var res sql.Result
	if s.Version == 0 {
		query := `
			INSERT INTO app_summary (id, total_enrollments, total_programs, participant_emails, unique_participants, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6)
			ON CONFLICT (id) DO NOTHING
		`
		res, err = r.db.ExecContext(ctx, query,
			models.SummaryID, s.Enrollments, s.TotalPrograms, emails, s.UniqueParticipants, s.UpdatedAt)
	} else {
		query := `
			UPDATE app_summary
			SET total_enrollments = $2, total_programs = $3, participant_emails = $4,
				unique_participants = $5, version = version + 1, updated_at = $6
			WHERE id = $1 AND version = $7
		`
		res, err = r.db.ExecContext(ctx, query,
			models.SummaryID, s.Enrollments, s.TotalPrograms, emails, s.UniqueParticipants, s.UpdatedAt, s.Version)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := checkSaved(res); err != nil {
		return err
	}
	s.Version++
	return nil
}

func encodeEmails(emails []string) (string, error) {
	if emails == nil {
		emails = []string{}
	}
	b, err := json.Marshal(emails)
	if err != nil {
		return "", fmt.Errorf("encode participant emails: %w", err)
	}
	return string(b), nil
}

func checkSaved(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
