package rest

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/internal/rest/handler"
	"github.com/robalyx/imagegate/internal/rest/middleware/auth"
	"github.com/robalyx/imagegate/internal/rest/middleware/ip"
	"github.com/robalyx/imagegate/internal/rest/middleware/ratelimit"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server implements the REST API service.
type Server struct {
	uploadHandler *handler.UploadHandler
	caseHandler   *handler.CaseHandler
	userHandler   *handler.UserHandler
	healthHandler *handler.HealthHandler
	rateLimiter   *ratelimit.Middleware
	handler       http.Handler
}

// NewServer creates a new REST API server.
func NewServer(
	engine *moderation.Engine,
	reviews *review.Manager,
	checks []handler.HealthCheck,
	cfg *config.APIConfig,
	logger *zap.Logger,
) (*Server, error) {
	logger = logger.Named("rest")

	authMiddleware, err := auth.New(&cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	// Create server instance with handlers
	server := &Server{
		uploadHandler: handler.NewUploadHandler(engine, reviews, cfg.Server.MaxBodyBytes, logger),
		caseHandler:   handler.NewCaseHandler(reviews, cfg.Server.MaxBodyBytes, logger),
		userHandler:   handler.NewUserHandler(reviews, logger),
		healthHandler: handler.NewHealthHandler(checks, logger),
		rateLimiter:   ratelimit.New(&cfg.RateLimit, logger),
	}

	ipMiddleware := ip.New(logger, &cfg.Server)

	router := bunrouter.New()

	router.GET("/healthz", server.healthHandler.Health)
	router.GET("/metrics", bunrouter.HTTPHandler(promhttp.Handler()))

	// Create API routes group
	router.Use(
		ipMiddleware.AsRESTMiddleware,
		server.rateLimiter.AsRESTMiddleware,
	).WithGroup("/v1", func(g *bunrouter.Group) {
		g.POST("/uploads", authMiddleware.Optional(server.uploadHandler.Moderate))
		g.GET("/uploads/:id", authMiddleware.RequireUser(server.uploadHandler.GetUpload))
		g.POST("/uploads/:id/review", authMiddleware.RequireUser(server.uploadHandler.RequestReview))
		g.POST("/uploads/:id/report", authMiddleware.RequireUser(server.uploadHandler.Report))

		g.GET("/cases", authMiddleware.RequireModerator(server.caseHandler.List))
		g.GET("/cases/:id", authMiddleware.RequireModerator(server.caseHandler.Get))
		g.POST("/cases/:id/claim", authMiddleware.RequireModerator(server.caseHandler.Claim))
		g.DELETE("/cases/:id/claim", authMiddleware.RequireModerator(server.caseHandler.Release))
		g.POST("/cases/:id/decision", authMiddleware.RequireModerator(server.caseHandler.Decide))

		g.GET("/users/:id/moderation", authMiddleware.RequireUser(server.userHandler.GetModerationState))
	})

	// Add gzip compression
	server.handler = gzhttp.GzipHandler(router)
	return server, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases background resources held by the middleware.
func (s *Server) Close() {
	s.rateLimiter.Close()
}
