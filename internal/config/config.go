package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config maps the entire application configuration. Values come from
// ./configs/config.yaml with environment variable overrides (dots
// replaced by underscores, e.g. SERVER_PORT).
type Config struct {
	// Server configuration for the HTTP API
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL string `mapstructure:"base_url"` // Base URL used in shareable booking links
	} `mapstructure:"server"`

	// Database configuration for SQLite
	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	// SideEffects configures the post-commit fan-out workers that
	// create calendar events and send advisor notifications
	SideEffects struct {
		BufferSize     int `mapstructure:"buffer_size"`     // Size of the task channel buffer
		WorkerCount    int `mapstructure:"worker_count"`    // Number of worker goroutines
		TimeoutSeconds int `mapstructure:"timeout_seconds"` // Per-task timeout so a slow third party cannot hold a task forever
	} `mapstructure:"sideeffects"`

	// Google configures the calendar API and OAuth token refresh
	Google struct {
		OAuthClientID     string `mapstructure:"oauth_client_id"`
		OAuthClientSecret string `mapstructure:"oauth_client_secret"`
		OAuthRefreshToken string `mapstructure:"oauth_refresh_token"`
		CalendarBaseURL   string `mapstructure:"calendar_base_url"`
		TokenURL          string `mapstructure:"token_url"`
	} `mapstructure:"google"`

	// SMTP configures advisor email notifications
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`

	// Monitor configures the periodic link status scan
	Monitor struct {
		IntervalMinutes int `mapstructure:"interval_minutes"`
	} `mapstructure:"monitor"`

	// Legacy configures where the client-local record store lives
	Legacy struct {
		Dir string `mapstructure:"dir"` // Directory holding legacy JSON documents
	} `mapstructure:"legacy"`

	// RateLimit configures the per-IP limiter on mutating endpoints
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`
}

// LoadConfig loads the application configuration using Viper. Missing
// config files are not fatal; defaults cover every key.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.name", "advisorconnect.db")
	viper.SetDefault("sideeffects.buffer_size", 100)
	viper.SetDefault("sideeffects.worker_count", 2)
	viper.SetDefault("sideeffects.timeout_seconds", 15)
	viper.SetDefault("google.calendar_base_url", "https://www.googleapis.com/calendar/v3")
	viper.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("monitor.interval_minutes", 5)
	viper.SetDefault("legacy.dir", "./legacy-data")
	viper.SetDefault("ratelimit.rps", 5)
	viper.SetDefault("ratelimit.burst", 10)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using default values")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Side-effect Workers=%d, Monitor Interval=%dmin",
		cfg.Server.Port, cfg.Database.Name, cfg.SideEffects.WorkerCount, cfg.Monitor.IntervalMinutes)

	return &cfg, nil
}
