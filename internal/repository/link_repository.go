package repository

import (
	"fmt"

	"github.com/advisorconnect/advisorconnect/internal/models"
	"gorm.io/gorm"
)

// LinkRepository defines the data access methods for scheduling links.
type LinkRepository interface {
	CreateLink(link *models.SchedulingLink) error
	GetLinkByID(id string) (*models.SchedulingLink, error)
	GetLinkBySlug(slug string) (*models.SchedulingLink, error)
	GetLinkBySlugAndOwner(slug, userID string) (*models.SchedulingLink, error)
	GetLinksByOwner(userID string) ([]models.SchedulingLink, error)
	GetAllLinks() ([]models.SchedulingLink, error)
}

// GormLinkRepository is the GORM-backed implementation of LinkRepository.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates and returns a new GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink inserts a new scheduling link.
func (r *GormLinkRepository) CreateLink(link *models.SchedulingLink) error {
	if err := r.db.Create(link).Error; err != nil {
		return fmt.Errorf("failed to create scheduling link: %w", err)
	}
	return nil
}

// GetLinkByID fetches a link by primary key with its owner preloaded.
func (r *GormLinkRepository) GetLinkByID(id string) (*models.SchedulingLink, error) {
	var link models.SchedulingLink
	if err := r.db.Preload("User").Where("id = ?", id).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinkBySlug fetches a link by its unique slug with its owner preloaded.
func (r *GormLinkRepository) GetLinkBySlug(slug string) (*models.SchedulingLink, error) {
	var link models.SchedulingLink
	if err := r.db.Preload("User").Where("slug = ?", slug).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinkBySlugAndOwner fetches a link by slug scoped to a specific
// owner. Used by the legacy migration to resolve a meeting's link.
func (r *GormLinkRepository) GetLinkBySlugAndOwner(slug, userID string) (*models.SchedulingLink, error) {
	var link models.SchedulingLink
	if err := r.db.Where("slug = ? AND user_id = ?", slug, userID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinksByOwner returns all links belonging to a user.
func (r *GormLinkRepository) GetLinksByOwner(userID string) ([]models.SchedulingLink, error) {
	var links []models.SchedulingLink
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve links for user %s: %w", userID, err)
	}
	return links, nil
}

// GetAllLinks returns every scheduling link. Used by the status monitor.
func (r *GormLinkRepository) GetAllLinks() ([]models.SchedulingLink, error) {
	var links []models.SchedulingLink
	if err := r.db.Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve all links: %w", err)
	}
	return links, nil
}
