package emaillogs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.EmailLog) error {
	recipients, err := json.Marshal(nonNil(l.Recipients))
	if err != nil {
		return fmt.Errorf("encode recipients: %w", err)
	}
	failed, err := json.Marshal(nonNil(l.FailedRecipients))
	if err != nil {
		return fmt.Errorf("encode failed recipients: %w", err)
	}

	var attachment sql.NullString
	if l.AttachmentURL != nil {
		attachment = sql.NullString{String: *l.AttachmentURL, Valid: true}
	}

	query := `
		INSERT INTO email_logs (sent_by, program_id, subject, message, recipients, failed_recipients, attachment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, sent_at
	`
	err = r.db.QueryRowContext(ctx, query,
		l.SentBy, l.ProgramID, l.Subject, l.Message, string(recipients), string(failed), attachment).Scan(&l.ID, &l.SentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByProgram(ctx context.Context, programID string) ([]*models.EmailLog, error) {
	query := `
		SELECT id, sent_by, program_id, subject, message, recipients, failed_recipients, attachment_url, sent_at
		FROM email_logs
		WHERE program_id = $1
		ORDER BY sent_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to select email logs: %w", err)
	}
	defer rows.Close()

	var result []*models.EmailLog
	for rows.Next() {
		var (
			l                  models.EmailLog
			recipients, failed []byte
			attachment         sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.SentBy, &l.ProgramID, &l.Subject, &l.Message,
			&recipients, &failed, &attachment, &l.SentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(recipients, &l.Recipients); err != nil {
			return nil, fmt.Errorf("decode recipients: %w", err)
		}
		if err := json.Unmarshal(failed, &l.FailedRecipients); err != nil {
			return nil, fmt.Errorf("decode failed recipients: %w", err)
		}
		if attachment.Valid {
			l.AttachmentURL = &attachment.String
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
