// Package mongostore implements repository contracts on MongoDB. Each project
// is one document, so a single ReplaceOne commits a whole transition.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/repository"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "project_posts"

// ProjectRepository stores project posts in a MongoDB collection.
type ProjectRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository wraps an existing collection.
func NewProjectRepository(collection *mongo.Collection) (*ProjectRepository, error) {
	if collection == nil {
		return nil, errors.New("project repository: collection is required")
	}
	return &ProjectRepository{collection: collection, now: time.Now}, nil
}

// EnsureIndexes creates the secondary indexes ListProjects relies on.
func (r *ProjectRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "team_formed", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}

func (r *ProjectRepository) CreateProject(ctx context.Context, post *models.ProjectPost) error {
	post.EnsureID()
	now := r.now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Version == 0 {
		post.Version = 1
	}
	post.Team.Sync()
	if err := post.Team.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, toDocument(post)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*models.ProjectPost, error) {
	var doc projectDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return fromDocument(doc)
}

func (r *ProjectRepository) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.ProjectPost, error) {
	query := bson.M{}
	if filter.CreatorID != "" {
		query["creator_id"] = filter.CreatorID
	}
	if filter.OpenOnly {
		query["team_formed"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []projectDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list projects: decode: %w", err)
	}

	posts := make([]models.ProjectPost, 0, len(docs))
	for _, doc := range docs {
		post, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (r *ProjectRepository) SaveProject(ctx context.Context, post *models.ProjectPost, expected int64) error {
	post.Team.Sync()
	if err := post.Team.Validate(); err != nil {
		return err
	}

	previousUpdated := post.UpdatedAt
	post.Version = expected + 1
	post.UpdatedAt = r.now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": post.ID, "version": expected}, toDocument(post))
	if err != nil {
		post.Version, post.UpdatedAt = expected, previousUpdated
		return fmt.Errorf("save project: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	post.Version, post.UpdatedAt = expected, previousUpdated
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": post.ID})
	if err != nil {
		return fmt.Errorf("save project: check existence: %w", err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}
