package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/logger"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"
	"github.com/noneedcode-dev/fiscalist-api/pkg/storage"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logg := logger.New(cfg.App.LogLevel, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		logg.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	blobStore, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		logg.WithError(err).Fatal("failed to initialize object storage")
	}

	exportRepo := repositories.NewExportRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)
	auditRecorder := services.NewAuditRecorder(auditLogRepo, logg)

	exportService := services.NewExportService(exportRepo, documentRepo, blobStore, auditRecorder, logg, cfg)

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %s", cfg.Export.PollInterval)
	if _, err := scheduler.AddFunc(spec, func() {
		exportService.ProcessDocumentExports(ctx)
	}); err != nil {
		logg.WithError(err).Fatal("failed to schedule export processor")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.WithField("interval", cfg.Export.PollInterval.String()).Info("export worker started")
		scheduler.Start()
		<-ctx.Done()
		logg.Info("shutting down export worker")
		// Stop returns after in-flight jobs finish
		<-scheduler.Stop().Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.WithError(err).Fatal("worker exited with error")
	}
	logg.Info("worker exited")
}
