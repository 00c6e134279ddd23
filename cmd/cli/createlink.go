package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/advisorconnect/advisorconnect/cmd"
	"github.com/advisorconnect/advisorconnect/internal/config"
	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
)

var (
	linkEmailFlag     string
	linkNameFlag      string
	linkSlugFlag      string
	linkDurationFlag  int
	linkMaxUsesFlag   int
	linkAdvanceFlag   int
	linkExpiresFlag   string
	linkQuestionsFlag []string
)

// CreateLinkCmd represents the 'create-link' command
var CreateLinkCmd = &cobra.Command{
	Use:   "create-link",
	Short: "Creates a scheduling link for an advisor.",
	Long: `This command creates a shareable booking link owned by the given
advisor email, creating the advisor account on first use.

Example:
  advisorconnect create-link --email=jane@example.com --name="Intro Call" --slug=intro --duration=30 --max-uses=5`,
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

		userRepo := repository.NewUserRepository(db)
		linkRepo := repository.NewLinkRepository(db)
		meetingRepo := repository.NewMeetingRepository(db)
		linkService := services.NewLinkService(userRepo, linkRepo, meetingRepo)

		spec := services.CreateLinkSpec{
			Name:     linkNameFlag,
			Slug:     linkSlugFlag,
			Duration: linkDurationFlag,
		}
		if linkMaxUsesFlag > 0 {
			spec.MaxUses = &linkMaxUsesFlag
		}
		if linkAdvanceFlag > 0 {
			spec.MaxAdvanceDays = &linkAdvanceFlag
		}
		if linkExpiresFlag != "" {
			expires, err := time.Parse("2006-01-02", linkExpiresFlag)
			if err != nil {
				fmt.Printf("Error: Invalid --expires date (want YYYY-MM-DD): %v\n", err)
				os.Exit(1)
			}
			spec.ExpirationDate = &expires
		}
		for _, text := range linkQuestionsFlag {
			spec.CustomQuestions = append(spec.CustomQuestions, models.Question{Text: text})
		}

		link, err := linkService.CreateLink(linkEmailFlag, spec)
		if err != nil {
			log.Fatalf("Failed to create scheduling link: %v", err)
		}

		fmt.Printf("Scheduling link created successfully:\n")
		fmt.Printf("Slug: %s\n", link.Slug)
		fmt.Printf("Booking URL: %s/schedule/%s\n", cfg.Server.BaseURL, link.Slug)
	},
}

func init() {
	CreateLinkCmd.Flags().StringVar(&linkEmailFlag, "email", "", "Advisor email owning the link")
	CreateLinkCmd.Flags().StringVar(&linkNameFlag, "name", "", "Display name of the link")
	CreateLinkCmd.Flags().StringVar(&linkSlugFlag, "slug", "", "URL-safe unique identifier")
	CreateLinkCmd.Flags().IntVar(&linkDurationFlag, "duration", 30, "Meeting duration in minutes (minimum 15)")
	CreateLinkCmd.Flags().IntVar(&linkMaxUsesFlag, "max-uses", 0, "Maximum total bookings (0 = unbounded)")
	CreateLinkCmd.Flags().IntVar(&linkAdvanceFlag, "max-advance-days", 0, "Maximum advance-booking window in days (0 = unbounded)")
	CreateLinkCmd.Flags().StringVar(&linkExpiresFlag, "expires", "", "Expiration date (YYYY-MM-DD)")
	CreateLinkCmd.Flags().StringArrayVar(&linkQuestionsFlag, "question", nil, "Custom question prompt (repeatable)")

	CreateLinkCmd.MarkFlagRequired("email")
	CreateLinkCmd.MarkFlagRequired("name")
	CreateLinkCmd.MarkFlagRequired("slug")

	cmd.RootCmd.AddCommand(CreateLinkCmd)
}
