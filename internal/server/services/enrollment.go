package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/sanitize"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
)

const (
	MaxParticipantNameLength = 100
	MaxNotesLength           = 1000
)

type EnrollmentInput struct {
	ProgramID       string `json:"programId"`
	ParticipantName string `json:"participantName"`
	Email           string `json:"email"`
	Notes           string `json:"notes"`
}

// EnrollmentService writes enrollments. Counting them is left to the
// aggregator, which the database trigger wakes up.
type EnrollmentService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
}

func NewEnrollmentService(db *sql.DB, m repomanager.RepositoryManager) *EnrollmentService {
	return &EnrollmentService{db: db, repomanager: m}
}

// Create enrolls a participant. Guests may enroll; authenticated callers
// have their user ID attached.
func (s *EnrollmentService) Create(ctx context.Context, caller auth.Identity, in EnrollmentInput) (*models.Enrollment, error) {
	programID := strings.TrimSpace(in.ProgramID)
	name := sanitize.Truncate(strings.TrimSpace(in.ParticipantName), MaxParticipantNameLength)
	email := common.NormalizeEmail(in.Email)
	switch {
	case programID == "":
		return nil, fmt.Errorf("%w: programId is required", common.ErrInvalidArgument)
	case name == "":
		return nil, fmt.Errorf("%w: participantName is required", common.ErrInvalidArgument)
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", common.ErrInvalidArgument)
	}

	program, err := s.repomanager.Programs(s.db).Get(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("error loading program %s: %w", programID, err)
	}

	e := &models.Enrollment{
		ProgramID:       program.ID,
		ProgramName:     program.Name,
		ParticipantName: name,
		Email:           email,
		Notes:           sanitize.Truncate(strings.TrimSpace(in.Notes), MaxNotesLength),
	}
	if caller.Authenticated() {
		uid := caller.UserID
		e.UserID = &uid
	}

	created, err := s.repomanager.Enrollments(s.db).Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("error creating enrollment: %w", err)
	}
	return created, nil
}

// List returns the caller's own enrollments, or, for staff passing a
// program ID, every enrollment of that program.
func (s *EnrollmentService) List(ctx context.Context, caller auth.Identity, programID string) ([]*models.Enrollment, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	repo := s.repomanager.Enrollments(s.db)

	if programID == "" {
		list, err := repo.ListByUser(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("error listing enrollments: %w", err)
		}
		return list, nil
	}

	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	list, err := repo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	return list, nil
}
