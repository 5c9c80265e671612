// Package sqlstore implements repository contracts on top of gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/database"
	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/repository"
)

// ProjectRepository stores project posts as single rows. The team roster and
// ledger are JSON columns so one UPDATE commits a whole transition.
type ProjectRepository struct {
	db *gorm.DB
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository constructs a gorm-backed repository.
func NewProjectRepository(db *gorm.DB) (*ProjectRepository, error) {
	if db == nil {
		return nil, errors.New("project repository: db is required")
	}
	return &ProjectRepository{db: db}, nil
}

func (r *ProjectRepository) CreateProject(ctx context.Context, post *models.ProjectPost) error {
	if post.Version == 0 {
		post.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*models.ProjectPost, error) {
	var post models.ProjectPost
	err := r.db.WithContext(ctx).Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &post, nil
}

func (r *ProjectRepository) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.ProjectPost, error) {
	query := r.db.WithContext(ctx).Model(&models.ProjectPost{}).Order("created_at DESC")
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.OpenOnly {
		query = query.Where("team_formed = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var posts []models.ProjectPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return posts, nil
}

func (r *ProjectRepository) SaveProject(ctx context.Context, post *models.ProjectPost, expected int64) error {
	post.Version = expected + 1

	res := r.db.WithContext(ctx).
		Model(post).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(post)
	if res.Error != nil {
		post.Version = expected
		return fmt.Errorf("save project: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	post.Version = expected
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectPost{}).Where("id = ?", post.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("save project: check existence: %w", err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}
