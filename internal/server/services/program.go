package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/sanitize"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/catalog"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rechub/internal/server/roles"
	"github.com/google/uuid"
)

// Review limits.
const (
	MaxReviewUserLength = 40
	MaxReviewTextLength = 1000
	DefaultReviewUser   = "anon"
)

type SeedResult struct {
	Success bool `json:"success"`
	Seeded  int  `json:"seeded"`
}

type ReviewInput struct {
	User   string `json:"user"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type ProgramService struct {
	db          dbx.DBTX
	withTx      txFunc
	repomanager repomanager.RepositoryManager
	resolver    *roles.Resolver
	aggregator  *Aggregator
	log         logging.Logger
	load        func() ([]models.Program, error)
}

func NewProgramService(db *sql.DB, m repomanager.RepositoryManager, resolver *roles.Resolver, aggregator *Aggregator, log logging.Logger) *ProgramService {
	return &ProgramService{
		db:          db,
		withTx:      sqlTx(db),
		repomanager: m,
		resolver:    resolver,
		aggregator:  aggregator,
		log:         log,
		load:        catalog.Load,
	}
}

// Seed upserts the built-in catalog and sets the summary's program count
// to the number of programs written. Running it again changes nothing.
func (s *ProgramService) Seed(ctx context.Context, caller auth.Identity) (*SeedResult, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	if !s.isAdmin(ctx, caller) {
		return nil, fmt.Errorf("%w: only administrators can seed programs", common.ErrPermissionDenied)
	}

	programs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Programs(tx)
		for i := range programs {
			p := &programs[i]
			if err := repo.Upsert(ctx, p); err != nil {
				return fmt.Errorf("error writing program %s: %w", p.ID, err)
			}
			for j := range p.Reviews {
				if err := repo.UpsertReview(ctx, &p.Reviews[j]); err != nil {
					return fmt.Errorf("error writing review %s/%s: %w", p.ID, p.Reviews[j].ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.aggregator.SetTotalPrograms(ctx, len(programs)); err != nil {
		return nil, fmt.Errorf("error updating summary: %w", err)
	}

	s.log.Info(ctx, "catalog seeded", "by", caller.Email, "programs", len(programs))
	return &SeedResult{Success: true, Seeded: len(programs)}, nil
}

// isAdmin checks the allow-list and the stored role, falling back to the
// role in the token when the profile cannot be read.
func (s *ProgramService) isAdmin(ctx context.Context, caller auth.Identity) bool {
	stored := caller.Role
	u, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
	switch {
	case err == nil:
		stored = u.Role
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Warn(ctx, "admin check: profile unreadable", "user_id", caller.UserID, "error", err)
	}
	return s.resolver.IsAdmin(caller.Email, stored)
}

func (s *ProgramService) List(ctx context.Context) ([]*models.Program, error) {
	programs, err := s.repomanager.Programs(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	return programs, nil
}

// Get returns the program together with its reviews.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	repo := s.repomanager.Programs(s.db)
	p, err := repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading program %s: %w", id, err)
	}
	if p.Reviews, err = repo.ListReviews(ctx, id); err != nil {
		return nil, fmt.Errorf("error loading reviews: %w", err)
	}
	return p, nil
}

func (s *ProgramService) ListReviews(ctx context.Context, programID string) ([]models.Review, error) {
	repo := s.repomanager.Programs(s.db)
	if _, err := repo.Get(ctx, programID); err != nil {
		return nil, fmt.Errorf("error loading program %s: %w", programID, err)
	}
	reviews, err := repo.ListReviews(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("error loading reviews: %w", err)
	}
	return reviews, nil
}

// AddReview stores a cleaned review on an existing program.
func (s *ProgramService) AddReview(ctx context.Context, caller auth.Identity, programID string, in ReviewInput) (*models.Review, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	repo := s.repomanager.Programs(s.db)
	if _, err := repo.Get(ctx, programID); err != nil {
		return nil, fmt.Errorf("error loading program %s: %w", programID, err)
	}

	r := CleanReview(in)
	r.ID = uuid.NewString()
	r.ProgramID = programID
	if err := repo.CreateReview(ctx, &r); err != nil {
		return nil, fmt.Errorf("error creating review: %w", err)
	}
	return &r, nil
}

// CleanReview applies the review limits: user trimmed to
// MaxReviewUserLength (default DefaultReviewUser), rating clamped to 1..5,
// text trimmed to MaxReviewTextLength and reduced to the inline HTML
// allow-list.
func CleanReview(in ReviewInput) models.Review {
	user := sanitize.Truncate(strings.TrimSpace(in.User), MaxReviewUserLength)
	if user == "" {
		user = DefaultReviewUser
	}
	rating := min(max(in.Rating, 1), 5)
	text := sanitize.HTML(sanitize.Truncate(strings.TrimSpace(in.Text), MaxReviewTextLength))
	return models.Review{User: user, Rating: rating, Text: text}
}
