package services

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/rechub/internal/client/client"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// MaxUploadSize caps files sent through Upload.
const MaxUploadSize = 10 << 20

// ProgramService covers the remote catalog, enrollment and staff operations.
// Every call goes through the Caller, so an expired access token is renewed
// transparently.
type ProgramService interface {
	List(ctx context.Context) ([]models.Program, error)
	Get(ctx context.Context, id string) (*models.Program, error)
	Reviews(ctx context.Context, programID string) ([]models.Review, error)
	AddReview(ctx context.Context, programID string, in client.ReviewRequest) (*models.Review, error)
	Enroll(ctx context.Context, in client.EnrollmentRequest) (*models.Enrollment, error)
	Enrollments(ctx context.Context, programID string) ([]models.Enrollment, error)

	Seed(ctx context.Context) (*client.SeedResult, error)
	Stats(ctx context.Context, programID string) (*models.ProgramStats, error)
	Summary(ctx context.Context) (*models.Summary, error)
	Email(ctx context.Context, programID string, in client.EmailRequest) (*client.DispatchResult, error)
	// Upload stores data in object storage and returns the ticket whose
	// DownloadURL can be used as an email attachment.
	Upload(ctx context.Context, filename string, data []byte) (*client.UploadTicket, error)
}

type programService struct {
	api    API
	caller *Caller
}

func NewProgramService(api API, caller *Caller) ProgramService {
	return &programService{api: api, caller: caller}
}

// call runs fn through the Caller and returns its result.
func call[T any](ctx context.Context, c *Caller, fn func() (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *programService) List(ctx context.Context) ([]models.Program, error) {
	return call(ctx, s.caller, func() ([]models.Program, error) { return s.api.ListPrograms(ctx) })
}

func (s *programService) Get(ctx context.Context, id string) (*models.Program, error) {
	return call(ctx, s.caller, func() (*models.Program, error) { return s.api.GetProgram(ctx, id) })
}

func (s *programService) Reviews(ctx context.Context, programID string) ([]models.Review, error) {
	return call(ctx, s.caller, func() ([]models.Review, error) { return s.api.ListReviews(ctx, programID) })
}

func (s *programService) AddReview(ctx context.Context, programID string, in client.ReviewRequest) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", common.ErrInvalidArgument)
	}
	return call(ctx, s.caller, func() (*models.Review, error) { return s.api.AddReview(ctx, programID, in) })
}

func (s *programService) Enroll(ctx context.Context, in client.EnrollmentRequest) (*models.Enrollment, error) {
	return call(ctx, s.caller, func() (*models.Enrollment, error) { return s.api.Enroll(ctx, in) })
}

func (s *programService) Enrollments(ctx context.Context, programID string) ([]models.Enrollment, error) {
	return call(ctx, s.caller, func() ([]models.Enrollment, error) { return s.api.ListEnrollments(ctx, programID) })
}

func (s *programService) Seed(ctx context.Context) (*client.SeedResult, error) {
	return call(ctx, s.caller, func() (*client.SeedResult, error) { return s.api.SeedPrograms(ctx) })
}

func (s *programService) Stats(ctx context.Context, programID string) (*models.ProgramStats, error) {
	return call(ctx, s.caller, func() (*models.ProgramStats, error) { return s.api.ProgramStats(ctx, programID) })
}

func (s *programService) Summary(ctx context.Context) (*models.Summary, error) {
	return call(ctx, s.caller, func() (*models.Summary, error) { return s.api.Summary(ctx) })
}

func (s *programService) Email(ctx context.Context, programID string, in client.EmailRequest) (*client.DispatchResult, error) {
	return call(ctx, s.caller, func() (*client.DispatchResult, error) { return s.api.EmailParticipants(ctx, programID, in) })
}

func (s *programService) Upload(ctx context.Context, filename string, data []byte) (*client.UploadTicket, error) {
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrInvalidArgument, MaxUploadSize)
	}
	name := filepath.Base(strings.TrimSpace(filename))

	ticket, err := call(ctx, s.caller, func() (*client.UploadTicket, error) { return s.api.PresignAttachment(ctx, name) })
	if err != nil {
		return nil, err
	}
	if err := s.api.Upload(ctx, ticket, contentTypeFor(name), data); err != nil {
		return nil, err
	}
	return ticket, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return netx.DefaultContentType
}
