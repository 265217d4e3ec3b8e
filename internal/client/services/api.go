package services

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/client/client"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// API is the remote surface the client services use. *client.HTTPClient
// implements it.
type API interface {
	Register(ctx context.Context, email, password, role string) (*client.AuthResult, error)
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*client.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*models.User, error)
	Ping(ctx context.Context) error

	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgram(ctx context.Context, id string) (*models.Program, error)
	SeedPrograms(ctx context.Context) (*client.SeedResult, error)
	ListReviews(ctx context.Context, programID string) ([]models.Review, error)
	AddReview(ctx context.Context, programID string, in client.ReviewRequest) (*models.Review, error)
	ProgramStats(ctx context.Context, programID string) (*models.ProgramStats, error)
	EmailParticipants(ctx context.Context, programID string, in client.EmailRequest) (*client.DispatchResult, error)

	Enroll(ctx context.Context, in client.EnrollmentRequest) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, programID string) ([]models.Enrollment, error)
	Summary(ctx context.Context) (*models.Summary, error)

	PresignAttachment(ctx context.Context, filename string) (*client.UploadTicket, error)
	Upload(ctx context.Context, ticket *client.UploadTicket, contentType string, data []byte) error
}
