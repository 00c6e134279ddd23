package cli

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/advisorconnect/advisorconnect/cmd"
	"github.com/advisorconnect/advisorconnect/internal/config"
	apperrors "github.com/advisorconnect/advisorconnect/internal/errors"
	"github.com/advisorconnect/advisorconnect/internal/legacy"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

var importEmailFlag string

// ImportLegacyCmd represents the 'import-legacy' command. It runs the
// one-time migration of client-local records into the server store and
// is safe to re-run: already-migrated records are skipped.
var ImportLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Imports legacy client-local links and meetings for an advisor.",
	Long: `This command reads the legacy JSON record store from the configured
directory and migrates the given advisor's links and meetings into the
database. The advisor account must already exist.

Example:
  advisorconnect import-legacy --email=jane@example.com`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Failed to get underlying SQL database: %v", err)
		}
		defer sqlDB.Close()

		store, err := legacy.NewFileStore(cfg.Legacy.Dir)
		if err != nil {
			log.Fatalf("Failed to open legacy store: %v", err)
		}

		userRepo := repository.NewUserRepository(db)
		linkRepo := repository.NewLinkRepository(db)
		meetingRepo := repository.NewMeetingRepository(db)
		migrationService := services.NewMigrationService(userRepo, linkRepo, meetingRepo, store)

		report, err := migrationService.Migrate(importEmailFlag)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				fmt.Printf("Error: no advisor account exists for %s\n", importEmailFlag)
				os.Exit(1)
			}
			log.Fatalf("Migration failed: %v", err)
		}

		fmt.Printf("Legacy import completed:\n")
		fmt.Printf("Links migrated: %d (skipped %d)\n", report.LinksMigrated, report.LinksSkipped)
		fmt.Printf("Meetings migrated: %d (skipped %d)\n", report.MeetingsMigrated, report.MeetingsSkipped)
	},
}

func init() {
	ImportLegacyCmd.Flags().StringVar(&importEmailFlag, "email", "", "Advisor email to migrate")
	ImportLegacyCmd.MarkFlagRequired("email")

	cmd.RootCmd.AddCommand(ImportLegacyCmd)
}
