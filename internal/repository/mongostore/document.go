package mongostore

import (
	"fmt"
	"time"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
)

type projectDocument struct {
	ID                string                `bson:"_id"`
	Title             string                `bson:"title"`
	Description       string                `bson:"description"`
	Category          string                `bson:"category,omitempty"`
	Skills            []string              `bson:"skills"`
	EstimatedDuration string                `bson:"estimated_duration"`
	Visibility        string                `bson:"visibility"`
	CreatorID         string                `bson:"creator_id"`
	TeamSize          int                   `bson:"team_size"`
	TeamMembers       []string              `bson:"team_members"`
	TeamFormed        bool                  `bson:"team_formed"`
	JoinRequests      []joinRequestDocument `bson:"join_requests"`
	Version           int64                 `bson:"version"`
	CreatedAt         time.Time             `bson:"created_at"`
	UpdatedAt         time.Time             `bson:"updated_at"`
}

type joinRequestDocument struct {
	ID          string     `bson:"id"`
	UserID      string     `bson:"user_id"`
	Status      string     `bson:"status"`
	RequestTime time.Time  `bson:"request_time"`
	RemovalTime *time.Time `bson:"removal_time,omitempty"`
}

func toDocument(post *models.ProjectPost) projectDocument {
	entries := post.Requests.Entries()
	requests := make([]joinRequestDocument, len(entries))
	for i, entry := range entries {
		requests[i] = joinRequestDocument{
			ID:          entry.ID,
			UserID:      entry.UserID,
			Status:      string(entry.Status),
			RequestTime: entry.RequestTime,
			RemovalTime: entry.RemovalTime,
		}
	}

	members := append([]string{}, post.Members...)
	skills := append([]string{}, post.Skills...)

	return projectDocument{
		ID:                post.ID,
		Title:             post.Title,
		Description:       post.Description,
		Category:          post.Category,
		Skills:            skills,
		EstimatedDuration: post.EstimatedDuration,
		Visibility:        post.Visibility,
		CreatorID:         post.CreatorID,
		TeamSize:          post.Size,
		TeamMembers:       members,
		TeamFormed:        post.Formed,
		JoinRequests:      requests,
		Version:           post.Version,
		CreatedAt:         post.CreatedAt,
		UpdatedAt:         post.UpdatedAt,
	}
}

func fromDocument(doc projectDocument) (*models.ProjectPost, error) {
	entries := make([]projects.JoinRequest, len(doc.JoinRequests))
	for i, req := range doc.JoinRequests {
		entries[i] = projects.JoinRequest{
			ID:          req.ID,
			UserID:      req.UserID,
			Status:      projects.Status(req.Status),
			RequestTime: req.RequestTime,
			RemovalTime: req.RemovalTime,
		}
	}
	ledger, err := projects.NewLedger(entries...)
	if err != nil {
		return nil, fmt.Errorf("decode project %s: %w", doc.ID, err)
	}

	post := &models.ProjectPost{
		Title:             doc.Title,
		Description:       doc.Description,
		Category:          doc.Category,
		Skills:            doc.Skills,
		EstimatedDuration: doc.EstimatedDuration,
		Visibility:        doc.Visibility,
		Team: projects.Team{
			CreatorID: doc.CreatorID,
			Size:      doc.TeamSize,
			Members:   projects.Roster(doc.TeamMembers),
			Formed:    doc.TeamFormed,
			Requests:  ledger,
		},
		Version: doc.Version,
	}
	post.ID = doc.ID
	post.CreatedAt = doc.CreatedAt
	post.UpdatedAt = doc.UpdatedAt
	post.Team.Sync()
	return post, nil
}
