package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

const apiPrefix = "/api/v1"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token attached to each request. An empty
// token sends the request anonymously.
type TokenSource interface {
	AccessToken() string
}

// HTTPClient is a typed client for the RecHub JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorResponse
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Kind != "" {
		apiErr.Kind = env.Error.Kind
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func programPath(id string, rest ...string) string {
	p := apiPrefix + "/programs/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// --- auth ---

func (c *HTTPClient) Register(ctx context.Context, email, password, role string) (*AuthResult, error) {
	in := map[string]string{"email": email, "password": password}
	if role != "" {
		in["role"] = role
	}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	in := map[string]string{"email": email, "password": password}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	in := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/refresh", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refreshToken": refreshToken}
	return c.do(ctx, http.MethodPost, apiPrefix+"/auth/logout", in, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- programs ---

func (c *HTTPClient) ListPrograms(ctx context.Context) ([]models.Program, error) {
	var out listResponse[models.Program]
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/programs", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	var out models.Program
	if err := c.do(ctx, http.MethodGet, programPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SeedPrograms(ctx context.Context) (*SeedResult, error) {
	var out SeedResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/programs/seed", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListReviews(ctx context.Context, programID string) ([]models.Review, error) {
	var out listResponse[models.Review]
	if err := c.do(ctx, http.MethodGet, programPath(programID, "reviews"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) AddReview(ctx context.Context, programID string, in ReviewRequest) (*models.Review, error) {
	var out models.Review
	if err := c.do(ctx, http.MethodPost, programPath(programID, "reviews"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ProgramStats(ctx context.Context, programID string) (*models.ProgramStats, error) {
	var out models.ProgramStats
	if err := c.do(ctx, http.MethodGet, programPath(programID, "stats"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) EmailParticipants(ctx context.Context, programID string, in EmailRequest) (*DispatchResult, error) {
	var out DispatchResult
	if err := c.do(ctx, http.MethodPost, programPath(programID, "email"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- enrollments, stats, attachments ---

func (c *HTTPClient) Enroll(ctx context.Context, in EnrollmentRequest) (*models.Enrollment, error) {
	var out models.Enrollment
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/enrollments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEnrollments lists the caller's own enrollments, or every enrollment of
// programID when it is set (staff only).
func (c *HTTPClient) ListEnrollments(ctx context.Context, programID string) ([]models.Enrollment, error) {
	path := apiPrefix + "/enrollments"
	if programID != "" {
		path += "?programId=" + url.QueryEscape(programID)
	}
	var out listResponse[models.Enrollment]
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) Summary(ctx context.Context) (*models.Summary, error) {
	var out models.Summary
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/stats/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PresignAttachment(ctx context.Context, filename string) (*UploadTicket, error) {
	var out UploadTicket
	in := map[string]string{"filename": filename}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/attachments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload PUTs data to the ticket's presigned URL. The bearer token is not
// sent to object storage.
func (c *HTTPClient) Upload(ctx context.Context, ticket *UploadTicket, contentType string, data []byte) error {
	if ticket == nil || ticket.UploadURL == "" {
		return fmt.Errorf("%w: missing upload url", common.ErrInvalidArgument)
	}
	if err := netx.UploadToPresignedURL(ctx, c.http, ticket.UploadURL, contentType, data); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
