// Package repository defines the persistence contracts for project posts.
package repository

import (
	"context"

	"github.com/charlesng35/campusconnect/internal/models"
)

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	CreatorID string
	// OpenOnly excludes projects whose team is already formed.
	OpenOnly bool
	Limit    int
}

// ProjectRepository persists ProjectPost aggregates. SaveProject is a
// compare-and-swap: it writes only when the stored version equals expected and
// bumps post.Version on success.
type ProjectRepository interface {
	CreateProject(ctx context.Context, post *models.ProjectPost) error
	GetProject(ctx context.Context, id string) (*models.ProjectPost, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]models.ProjectPost, error)
	SaveProject(ctx context.Context, post *models.ProjectPost, expected int64) error
}
