package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/advisorconnect/advisorconnect/cmd"
	"github.com/advisorconnect/advisorconnect/internal/api"
	"github.com/advisorconnect/advisorconnect/internal/calendar"
	"github.com/advisorconnect/advisorconnect/internal/config"
	"github.com/advisorconnect/advisorconnect/internal/legacy"
	"github.com/advisorconnect/advisorconnect/internal/middleware"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/monitor"
	"github.com/advisorconnect/advisorconnect/internal/notify"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
	"github.com/advisorconnect/advisorconnect/internal/workers"
)

// RunServerCmd represents the 'run-server' Cobra command, the entry
// point for hosting the booking API.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Runs the AdvisorConnect booking API and its background processes.",
	Long: `This command initializes the database, wires the link, booking and
migration services, starts the side-effect workers and the link status
monitor, then serves the HTTP API until interrupted.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := db.AutoMigrate(&models.User{}, &models.SchedulingLink{}, &models.Meeting{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		userRepo := repository.NewUserRepository(db)
		linkRepo := repository.NewLinkRepository(db)
		meetingRepo := repository.NewMeetingRepository(db)
		log.Println("Repositories initialized.")

		// Side-effect collaborators: calendar client, credential
		// provider and notifier. The credential provider stays nil when
		// OAuth is not configured, which makes the booking workflow
		// skip calendar sync for tokenless requests.
		events := calendar.NewGoogleClient(cfg.Google.CalendarBaseURL)
		var creds calendar.CredentialProvider
		oauth := calendar.NewOAuthProvider(cfg.Google.TokenURL, cfg.Google.OAuthClientID, cfg.Google.OAuthClientSecret, cfg.Google.OAuthRefreshToken)
		if oauth.Configured() {
			creds = oauth
		} else {
			log.Println("Google OAuth not configured; calendar sync requires caller-supplied tokens.")
		}
		notifier := notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

		pool := workers.NewPool(cfg.SideEffects.WorkerCount, cfg.SideEffects.BufferSize,
			time.Duration(cfg.SideEffects.TimeoutSeconds)*time.Second)
		log.Printf("Side-effect pool initialized with a buffer of %d. %d worker(s) started.",
			cfg.SideEffects.BufferSize, cfg.SideEffects.WorkerCount)

		legacyStore, err := legacy.NewFileStore(cfg.Legacy.Dir)
		if err != nil {
			log.Fatalf("Failed to open legacy store: %v", err)
		}

		linkService := services.NewLinkService(userRepo, linkRepo, meetingRepo)
		bookingService := services.NewBookingService(linkRepo, meetingRepo, events, creds, notifier, pool)
		migrationService := services.NewMigrationService(userRepo, linkRepo, meetingRepo, legacyStore)
		log.Println("Services initialized.")

		// Link status monitor
		monitorInterval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
		linkMonitor := monitor.NewLinkMonitor(linkRepo, meetingRepo, monitorInterval)
		go linkMonitor.Start()
		log.Printf("Link status monitor started with an interval of %v.", monitorInterval)

		// Gin router and API handlers
		router := gin.Default()
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		api.SetupRoutes(router, linkService, bookingService, migrationService, events, limiter)
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		go func() {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Graceful shutdown on SIGINT/SIGTERM
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received. Stopping server...")

		// Stop accepting requests before closing the side-effect pool,
		// so no in-flight booking dispatches against a closed pool.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown: %v", err)
		}

		// Give the side-effect workers time to drain before exiting.
		pool.Close()
		time.Sleep(5 * time.Second)

		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
