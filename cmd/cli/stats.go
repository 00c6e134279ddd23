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
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

// StatsCmd represents the 'stats' command
var StatsCmd = &cobra.Command{
	Use:   "stats [slug]",
	Short: "Get booking statistics for a scheduling link",
	Long:  `Shows the booking count and derived status for the given link slug.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func runStats(cobraCmd *cobra.Command, args []string) {
	slug := args[0]

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

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	linkService := services.NewLinkService(userRepo, linkRepo, meetingRepo)

	link, bookings, status, err := linkService.GetLinkStats(slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrLinkNotFound) {
			fmt.Printf("Error: Link '%s' not found\n", slug)
		} else {
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Statistics for link: %s\n", slug)
	fmt.Printf("Name: %s\n", link.Name)
	fmt.Printf("Owner: %s\n", link.User.Email)
	fmt.Printf("Bookings: %d", bookings)
	if link.MaxUses != nil {
		fmt.Printf(" / %d", *link.MaxUses)
	}
	fmt.Println()
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Created: %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))
}
