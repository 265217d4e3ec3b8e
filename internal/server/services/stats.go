package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/stats"
	"github.com/sethvargo/go-retry"
)

// ApplyResult tells which of the two counters an Apply call changed.
type ApplyResult struct {
	ProgramApplied bool
	SummaryApplied bool
}

// Aggregator folds enrollments into the per-program and global counters.
//
// Each counter is updated in its own transaction that also flips the
// enrollment's counted flag, so applying the same enrollment twice is a
// no-op. A concurrent writer surfaces as common.ErrVersionConflict and the
// whole read-modify-write is retried with exponential backoff.
type Aggregator struct {
	db          dbx.DBTX
	withTx      txFunc
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	maxRetries  uint64
	baseDelay   time.Duration
	now         func() time.Time
}

func NewAggregator(db *sql.DB, m repomanager.RepositoryManager, maxRetries uint64, log logging.Logger) *Aggregator {
	return &Aggregator{
		db:          db,
		withTx:      sqlTx(db),
		repomanager: m,
		log:         log,
		maxRetries:  maxRetries,
		baseDelay:   20 * time.Millisecond,
		now:         time.Now,
	}
}

// ApplyByID loads the enrollment and applies it.
func (a *Aggregator) ApplyByID(ctx context.Context, id string) (ApplyResult, error) {
	e, err := a.repomanager.Enrollments(a.db).Get(ctx, id)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("error loading enrollment %s: %w", id, err)
	}
	return a.Apply(ctx, e)
}

// Apply counts e once into its program's stats and once into the summary.
// The two updates are independent: a failure of one does not undo the
// other, and a later Apply completes whichever is missing.
func (a *Aggregator) Apply(ctx context.Context, e *models.Enrollment) (ApplyResult, error) {
	var res ApplyResult
	email := common.NormalizeEmail(e.Email)

	applied, progErr := a.step(ctx, e.ID, enrollments.ProgramCounter, func(ctx context.Context, repo stats.Repository) error {
		ps, err := repo.GetProgram(ctx, e.ProgramID)
		if err != nil {
			return err
		}
		if e.ProgramName != "" {
			ps.ProgramName = e.ProgramName
		}
		ps.AddEnrollment(email)
		ps.UpdatedAt = a.now()
		return repo.SaveProgram(ctx, ps)
	})
	res.ProgramApplied = applied
	if progErr != nil {
		a.log.Error(ctx, "program stats update failed", "enrollment_id", e.ID, "program_id", e.ProgramID, "error", progErr)
	}

	applied, sumErr := a.step(ctx, e.ID, enrollments.SummaryCounter, func(ctx context.Context, repo stats.Repository) error {
		sum, err := repo.GetSummary(ctx)
		if err != nil {
			return err
		}
		sum.AddEnrollment(email)
		sum.UpdatedAt = a.now()
		return repo.SaveSummary(ctx, sum)
	})
	res.SummaryApplied = applied
	if sumErr != nil {
		a.log.Error(ctx, "summary update failed", "enrollment_id", e.ID, "error", sumErr)
	}

	if err := errors.Join(progErr, sumErr); err != nil {
		return res, err
	}
	a.log.Debug(ctx, "enrollment applied", "enrollment_id", e.ID,
		"program_applied", res.ProgramApplied, "summary_applied", res.SummaryApplied)
	return res, nil
}

// SetTotalPrograms overwrites the summary's program count.
func (a *Aggregator) SetTotalPrograms(ctx context.Context, n int) error {
	return a.retry(ctx, func(ctx context.Context) error {
		return a.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			repo := a.repomanager.Stats(tx)
			sum, err := repo.GetSummary(ctx)
			if err != nil {
				return err
			}
			sum.TotalPrograms = n
			sum.UpdatedAt = a.now()
			return repo.SaveSummary(ctx, sum)
		})
	})
}

// step marks counter c on the enrollment and runs update in the same
// transaction. It reports false without error when the counter was already
// set.
func (a *Aggregator) step(ctx context.Context, id string, c enrollments.Counter, update func(ctx context.Context, repo stats.Repository) error) (bool, error) {
	applied := false
	err := a.retry(ctx, func(ctx context.Context) error {
		err := a.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			if err := a.repomanager.Enrollments(tx).MarkCounted(ctx, id, c); err != nil {
				return err
			}
			return update(ctx, a.repomanager.Stats(tx))
		})
		if errors.Is(err, common.ErrAlreadyCounted) {
			return nil
		}
		applied = err == nil
		return err
	})
	return applied, err
}

// retry reruns fn while it fails with a version conflict.
func (a *Aggregator) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(a.maxRetries, retry.WithJitterPercent(20, retry.NewExponential(a.baseDelay)))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, common.ErrVersionConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// StatsService is the read side of the counters, open to staff only.
type StatsService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
}

func NewStatsService(db *sql.DB, m repomanager.RepositoryManager) *StatsService {
	return &StatsService{db: db, repomanager: m}
}

func (s *StatsService) ProgramStats(ctx context.Context, caller auth.Identity, programID string) (*models.ProgramStats, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	ps, err := s.repomanager.Stats(s.db).GetProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("error reading program stats: %w", err)
	}
	return ps, nil
}

func (s *StatsService) Summary(ctx context.Context, caller auth.Identity) (*models.Summary, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	sum, err := s.repomanager.Stats(s.db).GetSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading summary: %w", err)
	}
	return sum, nil
}
