package router

import (
	"github.com/gin-gonic/gin"

	"cardlens/internal/handler"
	"cardlens/internal/middleware"
	"cardlens/internal/web"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cardH *handler.CardHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Upload page
	r.GET("/", web.Index)

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	cards := v1.Group("/cards")
	cards.POST("/extract", cardH.Extract)
	cards.POST("/extract/download", cardH.Download)

	return r
}
