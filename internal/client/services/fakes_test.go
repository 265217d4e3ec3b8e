package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/rechub/internal/client/client"
	"github.com/dmitrijs2005/rechub/internal/client/session"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// memMeta is an in-memory metadata.Repository.
type memMeta struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemMeta() *memMeta { return &memMeta{m: map[string][]byte{}} }

func (r *memMeta) Get(_ context.Context, k string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[k], nil
}

func (r *memMeta) Set(_ context.Context, k string, v []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[k] = v
	return nil
}

func (r *memMeta) Delete(_ context.Context, k string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, k)
	return nil
}

func (r *memMeta) List(context.Context) (map[string][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]byte, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out, nil
}

func (r *memMeta) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = map[string][]byte{}
	return nil
}

// fakeAPI answers from fields. validToken, when set, makes every
// authenticated call fail unless the store's current token matches it.
type fakeAPI struct {
	store      *session.Store
	validToken string

	authResult *client.AuthResult
	authErr    error

	refreshed  *client.TokenPair
	refreshErr error
	refreshes  int

	logoutErr    error
	loggedOut    []string
	me           *models.User
	programs     []models.Program
	program      *models.Program
	programErr   error
	ticket       *client.UploadTicket
	uploadErr    error
	uploads      []string
	reviewIn     *client.ReviewRequest
	calls        []string
	enrollments  []models.Enrollment
	enrollmentIn *client.EnrollmentRequest
}

func (f *fakeAPI) authorized(name string) error {
	f.calls = append(f.calls, name)
	if f.validToken != "" && f.store.AccessToken() != f.validToken {
		return &client.APIError{Status: 401, Kind: "unauthenticated", Message: "token expired"}
	}
	return nil
}

func (f *fakeAPI) Register(context.Context, string, string, string) (*client.AuthResult, error) {
	return f.authResult, f.authErr
}

func (f *fakeAPI) Login(context.Context, string, string) (*client.AuthResult, error) {
	return f.authResult, f.authErr
}

func (f *fakeAPI) Refresh(context.Context, string) (*client.TokenPair, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

func (f *fakeAPI) Me(context.Context) (*models.User, error) {
	if err := f.authorized("me"); err != nil {
		return nil, err
	}
	return f.me, nil
}

func (f *fakeAPI) Ping(context.Context) error { return nil }

func (f *fakeAPI) ListPrograms(context.Context) ([]models.Program, error) {
	if err := f.authorized("programs"); err != nil {
		return nil, err
	}
	return f.programs, nil
}

func (f *fakeAPI) GetProgram(_ context.Context, id string) (*models.Program, error) {
	if err := f.authorized("program " + id); err != nil {
		return nil, err
	}
	return f.program, f.programErr
}

func (f *fakeAPI) SeedPrograms(context.Context) (*client.SeedResult, error) {
	if err := f.authorized("seed"); err != nil {
		return nil, err
	}
	return &client.SeedResult{Success: true, Seeded: 3}, nil
}

func (f *fakeAPI) ListReviews(context.Context, string) ([]models.Review, error) {
	return nil, f.authorized("reviews")
}

func (f *fakeAPI) AddReview(_ context.Context, _ string, in client.ReviewRequest) (*models.Review, error) {
	if err := f.authorized("review"); err != nil {
		return nil, err
	}
	f.reviewIn = &in
	return &models.Review{Rating: in.Rating, Text: in.Text}, nil
}

func (f *fakeAPI) ProgramStats(_ context.Context, id string) (*models.ProgramStats, error) {
	if err := f.authorized("stats"); err != nil {
		return nil, err
	}
	return &models.ProgramStats{ProgramID: id}, nil
}

func (f *fakeAPI) EmailParticipants(context.Context, string, client.EmailRequest) (*client.DispatchResult, error) {
	if err := f.authorized("email"); err != nil {
		return nil, err
	}
	return &client.DispatchResult{Success: true, Count: 2, Sent: 2}, nil
}

func (f *fakeAPI) Enroll(_ context.Context, in client.EnrollmentRequest) (*models.Enrollment, error) {
	if err := f.authorized("enroll"); err != nil {
		return nil, err
	}
	f.enrollmentIn = &in
	return &models.Enrollment{ID: "e1", ProgramID: in.ProgramID}, nil
}

func (f *fakeAPI) ListEnrollments(context.Context, string) ([]models.Enrollment, error) {
	if err := f.authorized("enrollments"); err != nil {
		return nil, err
	}
	return f.enrollments, nil
}

func (f *fakeAPI) Summary(context.Context) (*models.Summary, error) {
	if err := f.authorized("summary"); err != nil {
		return nil, err
	}
	return &models.Summary{TotalPrograms: 3}, nil
}

func (f *fakeAPI) PresignAttachment(_ context.Context, name string) (*client.UploadTicket, error) {
	if err := f.authorized("presign " + name); err != nil {
		return nil, err
	}
	return f.ticket, nil
}

func (f *fakeAPI) Upload(_ context.Context, _ *client.UploadTicket, contentType string, _ []byte) error {
	f.uploads = append(f.uploads, contentType)
	return f.uploadErr
}
