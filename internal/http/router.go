package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/salesops/leadhub/internal/auth"
	"github.com/salesops/leadhub/internal/cache"
	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/http/handlers"
	"github.com/salesops/leadhub/internal/http/middlewares"
	"github.com/salesops/leadhub/internal/observability"
	redisclient "github.com/salesops/leadhub/internal/redis"
	"github.com/salesops/leadhub/internal/repo/postgres"
)

func NewRouter(
	cfg config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	jwtManager *auth.Manager,
	rdb *redisclient.Client,
	prom *observability.Prom,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(otelgin.Middleware("leadhub"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(10 << 20))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool)
	leadsRepo := postgres.NewLeadsRepo(pool, prom)
	districtsRepo := postgres.NewDistrictsRepo(pool)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	leadsHandler := handlers.NewLeadsHandler(leadsRepo, prom)
	districtsHandler := handlers.NewDistrictsHandler(districtsRepo, cache.New(30*time.Second))
	dashboardHandler := handlers.NewDashboardHandler(leadsRepo)

	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)
	loginLimiter := middlewares.NewRateLimiter(rdb, log, 10, time.Minute)

	api := r.Group("/api", middlewares.RequireJSON())

	api.POST("/auth/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)

	protected := api.Group("", authMW.RequireAuth())

	protected.GET("/auth/me", authHandler.Me)

	protected.POST("/leads", leadsHandler.CreateLead)
	protected.GET("/leads", leadsHandler.ListLeads)
	// fixed paths before the :id wildcard
	protected.POST("/leads/upload", leadsHandler.UploadLeads)
	protected.GET("/leads/export/excel", leadsHandler.ExportLeads)
	protected.GET("/leads/:id", leadsHandler.GetLead)
	protected.PUT("/leads/:id", leadsHandler.UpdateLead)
	protected.PATCH("/leads/:id/status", leadsHandler.UpdateLeadStatus)
	protected.DELETE("/leads/:id", leadsHandler.DeleteLead)

	protected.POST("/users", usersHandler.CreateUser)
	protected.GET("/users", usersHandler.ListUsers)
	protected.GET("/users/:id", usersHandler.GetUser)
	protected.PUT("/users/:id", usersHandler.UpdateUser)
	protected.DELETE("/users/:id", usersHandler.DeleteUser)

	protected.POST("/districts", districtsHandler.CreateDistrict)
	protected.GET("/districts", districtsHandler.ListDistricts)
	protected.GET("/districts/:id", districtsHandler.GetDistrict)
	protected.DELETE("/districts/:id", districtsHandler.DeleteDistrict)

	protected.GET("/dashboard/stats", dashboardHandler.Stats)

	return r
}
