package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/advisorconnect/advisorconnect/internal/config"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application.
// All other commands (run-server, migrate, create-link, stats,
// import-legacy) are added as subcommands.
var RootCmd = &cobra.Command{
	Use:   "advisorconnect",
	Short: "A scheduling and booking application for advisors",
	Long: `AdvisorConnect lets advisors create shareable booking links with
configurable availability rules, takes client bookings through those links,
and syncs confirmed meetings to the advisor's calendar and inbox.`,
}

// Execute is the main entry point for the Cobra application.
// It is called from 'main.go' and handles command execution and error handling.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Set up configuration initialization to run before any command executes
	cobra.OnInitialize(initConfig)

	// Subcommands register themselves via their own init() functions;
	// nothing is added here directly. This keeps the command packages
	// decoupled and avoids import cycles.
}

// initConfig loads the application configuration before every command
// runs, via cobra.OnInitialize above.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v. Using default values.", err)
	}
}
