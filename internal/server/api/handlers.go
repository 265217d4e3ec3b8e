package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/middleware"
	"github.com/dmitrijs2005/rechub/internal/server/services"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Services
}

func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

func caller(c *gin.Context) auth.Identity {
	return auth.FromContext(c.Request.Context())
}

// bind decodes the JSON body into v. An empty body leaves v unchanged.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		middleware.AbortWithError(c, fmt.Errorf("%w: malformed JSON body", common.ErrInvalidArgument))
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, status int, v any, err error) {
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(status, v)
}

// --- auth ---

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Users.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	h.respond(c, http.StatusCreated, sess, err)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	h.respond(c, http.StatusOK, sess, err)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.Users.Refresh(c.Request.Context(), req.RefreshToken)
	h.respond(c, http.StatusOK, pair, err)
}

func (h *Handler) Logout(c *gin.Context) {
	var req RefreshRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Users.Me(c.Request.Context(), caller(c).UserID)
	h.respond(c, http.StatusOK, u, err)
}

// --- programs ---

func (h *Handler) ListPrograms(c *gin.Context) {
	list, err := h.svc.Programs.List(c.Request.Context())
	h.respond(c, http.StatusOK, listOf(list), err)
}

func (h *Handler) GetProgram(c *gin.Context) {
	p, err := h.svc.Programs.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, p, err)
}

func (h *Handler) SeedPrograms(c *gin.Context) {
	res, err := h.svc.Programs.Seed(c.Request.Context(), caller(c))
	h.respond(c, http.StatusOK, res, err)
}

func (h *Handler) ListReviews(c *gin.Context) {
	list, err := h.svc.Programs.ListReviews(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, listOf(list), err)
}

func (h *Handler) AddReview(c *gin.Context) {
	var in services.ReviewInput
	if !bind(c, &in) {
		return
	}
	r, err := h.svc.Programs.AddReview(c.Request.Context(), caller(c), c.Param("id"), in)
	h.respond(c, http.StatusCreated, r, err)
}

func (h *Handler) ProgramStats(c *gin.Context) {
	s, err := h.svc.Stats.ProgramStats(c.Request.Context(), caller(c), c.Param("id"))
	h.respond(c, http.StatusOK, s, err)
}

func (h *Handler) EmailParticipants(c *gin.Context) {
	var req services.EmailRequest
	if !bind(c, &req) {
		return
	}
	req.ProgramID = c.Param("id")
	res, err := h.svc.Dispatcher.Dispatch(c.Request.Context(), caller(c), req)
	h.respond(c, http.StatusOK, res, err)
}

// --- enrollments ---

func (h *Handler) CreateEnrollment(c *gin.Context) {
	var in services.EnrollmentInput
	if !bind(c, &in) {
		return
	}
	e, err := h.svc.Enrollments.Create(c.Request.Context(), caller(c), in)
	h.respond(c, http.StatusCreated, e, err)
}

func (h *Handler) ListEnrollments(c *gin.Context) {
	list, err := h.svc.Enrollments.List(c.Request.Context(), caller(c), c.Query("programId"))
	h.respond(c, http.StatusOK, listOf(list), err)
}

// --- stats and attachments ---

func (h *Handler) Summary(c *gin.Context) {
	s, err := h.svc.Stats.Summary(c.Request.Context(), caller(c))
	h.respond(c, http.StatusOK, s, err)
}

func (h *Handler) PresignAttachment(c *gin.Context) {
	var req AttachmentRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Attachments.PresignUpload(c.Request.Context(), caller(c), req.Filename)
	h.respond(c, http.StatusCreated, t, err)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
