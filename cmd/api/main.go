package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/auth"
	"github.com/noneedcode-dev/fiscalist-api/internal/handlers"
	"github.com/noneedcode-dev/fiscalist-api/internal/middleware"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/logger"
	"github.com/noneedcode-dev/fiscalist-api/pkg/memorydb"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"
	"github.com/noneedcode-dev/fiscalist-api/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logg := logger.New(cfg.App.LogLevel, cfg.App.Environment)

	ctx := context.Background()

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		logg.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := memorydb.NewRedisClient(ctx, cfg)
	if err != nil {
		logg.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	blobStore, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		logg.WithError(err).Fatal("failed to initialize object storage")
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	deadlineRepo := repositories.NewDeadlineRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	exportRepo := repositories.NewExportRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	invoiceRepo := repositories.NewInvoiceRepository(db)
	timeEntryRepo := repositories.NewTimeEntryRepository(db)
	planRepo := repositories.NewPlanRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Services
	tokenService := auth.NewTokenService(cfg)
	authService := services.NewAuthService(userRepo, tokenService, redisClient, logg, cfg)
	auditRecorder := services.NewAuditRecorder(auditLogRepo, logg)
	healthService := services.NewHealthService(db, redisClient)

	// Middleware
	authMW := middleware.NewAuthMiddleware(tokenService)
	rateLimitMW := middleware.NewRateLimitMiddleware(redisClient, cfg.RateLimit.RequestsPerMinute, logg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	clientHandler := handlers.NewClientHandler(clientRepo)
	deadlineHandler := handlers.NewDeadlineHandler(deadlineRepo, clientRepo)
	documentHandler := handlers.NewDocumentHandler(documentRepo, blobStore, auditRecorder, cfg.Storage.Bucket)
	exportHandler := handlers.NewExportHandler(exportRepo, documentRepo, auditRecorder)
	invitationHandler := handlers.NewInvitationHandler(invitationRepo, userRepo, auditRecorder)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceRepo, auditRecorder)
	timeEntryHandler := handlers.NewTimeEntryHandler(timeEntryRepo)
	planHandler := handlers.NewPlanHandler(planRepo, clientRepo, auditRecorder)
	auditLogHandler := handlers.NewAuditLogHandler(auditLogRepo)

	router := setupRouter(cfg, logg, healthService,
		authHandler, clientHandler, deadlineHandler, documentHandler,
		exportHandler, invitationHandler, invoiceHandler, timeEntryHandler,
		planHandler, auditLogHandler,
		authMW, rateLimitMW)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logg.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Fatal("server forced to shutdown")
	}

	logg.Info("server exited")
}

func setupRouter(
	cfg *config.Config,
	logg *logrus.Logger,
	healthService *services.HealthService,
	authHandler *handlers.AuthHandler,
	clientHandler *handlers.ClientHandler,
	deadlineHandler *handlers.DeadlineHandler,
	documentHandler *handlers.DocumentHandler,
	exportHandler *handlers.ExportHandler,
	invitationHandler *handlers.InvitationHandler,
	invoiceHandler *handlers.InvoiceHandler,
	timeEntryHandler *handlers.TimeEntryHandler,
	planHandler *handlers.PlanHandler,
	auditLogHandler *handlers.AuditLogHandler,
	authMW *middleware.AuthMiddleware,
	rateLimitMW *middleware.RateLimitMiddleware,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorMiddleware(logg))

	router.GET("/health", func(c *gin.Context) {
		status := healthService.Check(c.Request.Context())
		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyMiddleware(cfg.App.APIKeys))
	v1.Use(rateLimitMW.Limit())
	{
		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/password-reset/request", authHandler.RequestPasswordReset)
			authRoutes.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
			authRoutes.GET("/me", authMW.RequireAuth(), authHandler.Me)
		}

		// Invitation acceptance is public: the token is the credential
		v1.POST("/invitations/accept", invitationHandler.Accept)

		protected := v1.Group("")
		protected.Use(authMW.RequireAuth())
		{
			clients := protected.Group("/clients")
			{
				clients.POST("", authMW.RequireStaff(), clientHandler.Create)
				clients.GET("", authMW.RequireStaff(), clientHandler.List)
				clients.GET("/:id", clientHandler.GetByID)
				clients.PUT("/:id", authMW.RequireStaff(), clientHandler.Update)
				clients.DELETE("/:id", authMW.RequireAdmin(), clientHandler.Archive)

				clients.POST("/:id/deadlines", authMW.RequireStaff(), deadlineHandler.Create)

				clients.GET("/:id/plan", planHandler.GetCurrent)
				clients.POST("/:id/plan", authMW.RequireAdmin(), planHandler.Assign)
			}

			deadlines := protected.Group("/deadlines")
			{
				deadlines.GET("", deadlineHandler.List)
				deadlines.GET("/:id", deadlineHandler.GetByID)
				deadlines.PUT("/:id", authMW.RequireStaff(), deadlineHandler.Update)
				deadlines.DELETE("/:id", authMW.RequireStaff(), deadlineHandler.Delete)
			}

			documents := protected.Group("/documents")
			{
				documents.POST("/upload", documentHandler.Upload)
				documents.GET("", documentHandler.List)
				documents.GET("/:id/download", documentHandler.Download)
				documents.DELETE("/:id", documentHandler.Delete)
			}

			exports := protected.Group("/exports")
			{
				exports.POST("", exportHandler.Create)
				exports.GET("", exportHandler.List)
				exports.GET("/:id", exportHandler.GetByID)
			}

			invitations := protected.Group("/invitations")
			{
				invitations.POST("", authMW.RequireStaff(), invitationHandler.Create)
				invitations.GET("", authMW.RequireStaff(), invitationHandler.ListByClient)
				invitations.DELETE("/:id", authMW.RequireStaff(), invitationHandler.Revoke)
			}

			invoices := protected.Group("/invoices")
			{
				invoices.POST("", authMW.RequireStaff(), invoiceHandler.Create)
				invoices.GET("", invoiceHandler.List)
				invoices.GET("/:id", invoiceHandler.GetByID)
				invoices.PUT("/:id", authMW.RequireStaff(), invoiceHandler.Update)
				invoices.POST("/:id/send", authMW.RequireStaff(), invoiceHandler.Send)
				invoices.POST("/:id/mark-paid", authMW.RequireStaff(), invoiceHandler.MarkPaid)
			}

			timeEntries := protected.Group("/time-entries")
			{
				timeEntries.POST("", authMW.RequireStaff(), timeEntryHandler.Create)
				timeEntries.GET("", authMW.RequireStaff(), timeEntryHandler.List)
				timeEntries.GET("/:id", authMW.RequireStaff(), timeEntryHandler.GetByID)
				timeEntries.PUT("/:id", authMW.RequireStaff(), timeEntryHandler.Update)
				timeEntries.DELETE("/:id", authMW.RequireStaff(), timeEntryHandler.Delete)
			}

			auditLogs := protected.Group("/audit-logs")
			{
				auditLogs.GET("", authMW.RequireStaff(), auditLogHandler.List)
				auditLogs.GET("/:id", authMW.RequireStaff(), auditLogHandler.GetByID)
			}
		}
	}

	return router
}
