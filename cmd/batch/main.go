package main

import (
	"alcyxob/run-coach/internal/config"
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"alcyxob/run-coach/internal/logger"
	"alcyxob/run-coach/internal/repository/mongo"
	"alcyxob/run-coach/internal/service"
	"alcyxob/run-coach/internal/storage"
	"context"
	"os"
	"time"
)

// Weekly plan refresh. Run from cron shortly after Sunday midnight: extracts
// feedback from the week just finished, then regenerates the upcoming week
// for every runner.
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer log.Sync()

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal("could not connect to MongoDB", "error", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatal("failed to initialize S3 storage", "error", err)
	}

	userRepo := mongo.NewMongoUserRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	feedbackRepo := mongo.NewMongoFeedbackRepository(appDB)

	gen := generator.NewOpenAIGenerator(cfg.Generator, log)
	planService := service.NewPlanService(userRepo, sessionRepo, feedbackRepo, gen, log)
	feedbackService := service.NewFeedbackService(sessionRepo, feedbackRepo, gen, fileStorage, log)

	monday := domain.MondayOf(time.Now().UTC())
	previousMonday := monday.AddDate(0, 0, -7)
	log.Info("starting weekly refresh",
		"weekMonday", monday.Format(domain.DateLayout), "concurrency", cfg.Batch.Concurrency)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// Harvest last week's feedback first so the regeneration below sees it.
	// Extraction failures are per-user and never block the refresh.
	if runners, err := userRepo.ListRunners(ctx); err != nil {
		log.Error("failed to list runners for feedback extraction", "error", err)
	} else {
		for i := range runners {
			if _, err := feedbackService.ExtractWeekly(ctx, runners[i].ID, previousMonday, nil); err != nil {
				log.Warn("feedback extraction failed for user",
					"userId", runners[i].ID.Hex(), "error", err)
			}
		}
	}

	summary := planService.RefreshAll(ctx, monday, cfg.Batch.Concurrency)
	log.Info("weekly refresh finished",
		"processed", summary.Processed, "failed", summary.Failed, "skipped", summary.Skipped)

	if summary.Failed > 0 {
		log.Sync()
		os.Exit(1)
	}
}
