package api

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, email, password string, requested models.Role) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type ProgramService interface {
	Seed(ctx context.Context, caller auth.Identity) (*services.SeedResult, error)
	List(ctx context.Context) ([]*models.Program, error)
	Get(ctx context.Context, id string) (*models.Program, error)
	ListReviews(ctx context.Context, programID string) ([]models.Review, error)
	AddReview(ctx context.Context, caller auth.Identity, programID string, in services.ReviewInput) (*models.Review, error)
}

type EnrollmentService interface {
	Create(ctx context.Context, caller auth.Identity, in services.EnrollmentInput) (*models.Enrollment, error)
	List(ctx context.Context, caller auth.Identity, programID string) ([]*models.Enrollment, error)
}

type StatsService interface {
	ProgramStats(ctx context.Context, caller auth.Identity, programID string) (*models.ProgramStats, error)
	Summary(ctx context.Context, caller auth.Identity) (*models.Summary, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, caller auth.Identity, req services.EmailRequest) (*services.DispatchResult, error)
}

type AttachmentService interface {
	PresignUpload(ctx context.Context, caller auth.Identity, filename string) (*services.UploadTicket, error)
}

// Services bundles the handlers' dependencies.
type Services struct {
	Users       UserService
	Programs    ProgramService
	Enrollments EnrollmentService
	Stats       StatsService
	Dispatcher  Dispatcher
	Attachments AttachmentService
}
