package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"codeclash/config"
	"codeclash/database"
	"codeclash/events"
	"codeclash/repository"
	"codeclash/service"

	"github.com/go-co-op/gocron/v2"
)

// Run initializes and starts the settlement engine
func Run(ctx context.Context) error {
	log.Println("Starting match engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services. The timer coordinator and the match service
	// reference each other, so the handler is wired after construction.
	log.Println("Initializing services...")
	ratingService := service.NewRatingService(uowFactory, cfg, eventBus)

	timerCoordinator, err := service.NewTimerCoordinator(uowFactory)
	if err != nil {
		return fmt.Errorf("failed to initialize timer coordinator: %w", err)
	}
	matchService := service.NewMatchService(uowFactory, cfg, ratingService, timerCoordinator)
	timerCoordinator.SetHandler(matchService)
	log.Println("Services initialized successfully")

	// Re-arm timers that were pending when the process last stopped
	log.Println("Recovering pending timers...")
	if err := timerCoordinator.RecoverPending(ctx); err != nil {
		return fmt.Errorf("failed to recover pending timers: %w", err)
	}
	timerCoordinator.Start()

	// Daily deviation sweep for inactive rankings
	sweeper, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to initialize sweep scheduler: %w", err)
	}
	_, err = sweeper.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if _, err := ratingService.SweepInactive(context.Background()); err != nil {
				log.Printf("Inactivity sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule inactivity sweep: %w", err)
	}
	sweeper.Start()

	// Wait for context cancellation
	log.Printf("Match engine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")

	if err := sweeper.Shutdown(); err != nil {
		log.Printf("Error stopping sweep scheduler: %v", err)
	}
	if err := timerCoordinator.Shutdown(); err != nil {
		log.Printf("Error stopping timer coordinator: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
