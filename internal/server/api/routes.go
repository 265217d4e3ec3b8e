// Package api exposes the services as a JSON HTTP API.
package api

import (
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(svc Services, authn *middleware.Authenticator, corsOrigins []string, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log), middleware.CORS(corsOrigins))
	SetupRoutes(r, NewHandler(svc), authn)
	return r
}

func SetupRoutes(r *gin.Engine, h *Handler, authn *middleware.Authenticator) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1", authn.Identify())
	required := authn.RequireAuth()

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", required, h.Me)
	}

	programs := v1.Group("/programs")
	{
		programs.GET("", h.ListPrograms)
		programs.POST("/seed", required, h.SeedPrograms)
		programs.GET("/:id", h.GetProgram)
		programs.GET("/:id/reviews", h.ListReviews)
		programs.POST("/:id/reviews", required, h.AddReview)
		programs.GET("/:id/stats", required, h.ProgramStats)
		programs.POST("/:id/email", required, h.EmailParticipants)
	}

	v1.POST("/enrollments", h.CreateEnrollment)
	v1.GET("/enrollments", required, h.ListEnrollments)
	v1.GET("/stats/summary", required, h.Summary)
	v1.POST("/attachments", required, h.PresignAttachment)
	v1.GET("/health", h.Health)
}
