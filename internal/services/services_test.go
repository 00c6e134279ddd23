package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/advisorconnect/advisorconnect/internal/models"
	"github.com/advisorconnect/advisorconnect/internal/repository"
	"github.com/advisorconnect/advisorconnect/internal/services"
	"github.com/advisorconnect/advisorconnect/internal/workers"
)

// testEnv bundles a throwaway database with the repositories and the
// link service every test needs.
type testEnv struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	linkRepo    repository.LinkRepository
	meetingRepo repository.MeetingRepository
	linkService *services.LinkService
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	// A single connection serializes concurrent transactions the same
	// way a production SQLite writer queue does.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.SchedulingLink{}, &models.Meeting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)

	return &testEnv{
		db:          db,
		userRepo:    userRepo,
		linkRepo:    linkRepo,
		meetingRepo: meetingRepo,
		linkService: services.NewLinkService(userRepo, linkRepo, meetingRepo),
	}
}

func intPtr(n int) *int { return &n }

// syncRunner executes side-effect tasks inline so tests can observe
// their outcomes deterministically.
type syncRunner struct {
	results map[string]error
}

func newSyncRunner() *syncRunner {
	return &syncRunner{results: make(map[string]error)}
}

func (r *syncRunner) Dispatch(task workers.Task) bool {
	r.results[task.Kind] = task.Run(context.Background())
	return true
}
