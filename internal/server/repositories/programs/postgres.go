package programs

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

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Program) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := `
		INSERT INTO programs (id, name, venue, "when", cost, tags, accessible, lat, lng, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			venue = EXCLUDED.venue,
			"when" = EXCLUDED."when",
			cost = EXCLUDED.cost,
			tags = EXCLUDED.tags,
			accessible = EXCLUDED.accessible,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			address = EXCLUDED.address,
			updated_at = now()
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Venue, p.When, p.Cost, string(tagsJSON), p.Accessible,
		p.Location.Lat, p.Location.Lng, p.Location.Address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertReview(ctx context.Context, rv *models.Review) error {
	query := `
		INSERT INTO program_reviews (program_id, id, "user", rating, text, seeded)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (program_id, id)
		DO UPDATE SET
			"user" = EXCLUDED."user",
			rating = EXCLUDED.rating,
			text = EXCLUDED.text,
			seeded = EXCLUDED.seeded
	`
	_, err := r.db.ExecContext(ctx, query, rv.ProgramID, rv.ID, rv.User, rv.Rating, rv.Text, rv.Seeded)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	query := `
		INSERT INTO program_reviews (program_id, id, "user", rating, text, seeded)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, rv.ProgramID, rv.ID, rv.User, rv.Rating, rv.Text).Scan(&rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const programSelect = `
	SELECT p.id, p.name, p.venue, p."when", p.cost, p.tags, p.accessible, p.lat, p.lng, p.address,
		p.created_at, p.updated_at,
		COUNT(r.id), COALESCE(AVG(r.rating), 0)
	FROM programs p
	LEFT JOIN program_reviews r ON r.program_id = p.id
`

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Program, error) {
	query := programSelect + ` GROUP BY p.id ORDER BY p.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select programs: %w", err)
	}
	defer rows.Close()

	var result []*models.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Program, error) {
	query := programSelect + ` WHERE p.id = $1 GROUP BY p.id`

	p, err := scanProgram(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListReviews(ctx context.Context, programID string) ([]models.Review, error) {
	query := `
		SELECT id, "user", rating, text, seeded, created_at
		FROM program_reviews
		WHERE program_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to select reviews: %w", err)
	}
	defer rows.Close()

	result := make([]models.Review, 0)
	for rows.Next() {
		rv := models.Review{ProgramID: programID}
		if err := rows.Scan(&rv.ID, &rv.User, &rv.Rating, &rv.Text, &rv.Seeded, &rv.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(s scanner) (*models.Program, error) {
	p := &models.Program{}
	var tags []byte
	if err := s.Scan(&p.ID, &p.Name, &p.Venue, &p.When, &p.Cost, &tags, &p.Accessible,
		&p.Location.Lat, &p.Location.Lng, &p.Location.Address, &p.CreatedAt, &p.UpdatedAt,
		&p.ReviewCount, &p.AverageRating); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return p, nil
}
