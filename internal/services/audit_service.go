package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/models"
)

const (
	defaultAuditPage = 50
	maxAuditPage     = 200
)

// AuditEntry is one team transition attempt to persist.
type AuditEntry struct {
	ActorID   *string
	ProjectID string
	Action    string
	Result    string
	RequestID string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

func (e AuditEntry) record() (models.AuditLog, error) {
	rec := models.AuditLog{
		ProjectID: strings.TrimSpace(e.ProjectID),
		Action:    strings.TrimSpace(e.Action),
		Result:    strings.TrimSpace(e.Result),
		RequestID: strings.TrimSpace(e.RequestID),
		IPAddress: strings.TrimSpace(e.IPAddress),
		UserAgent: strings.TrimSpace(e.UserAgent),
		Metadata:  datatypes.JSON("{}"),
	}
	if rec.Action == "" || rec.Result == "" {
		return rec, errors.New("audit service: action and result are required")
	}
	if e.ActorID != nil {
		rec.ActorID = optionalID(*e.ActorID)
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return rec, fmt.Errorf("audit service: encode metadata: %w", err)
		}
		rec.Metadata = datatypes.JSON(raw)
	}
	return rec, nil
}

// AuditFilters narrows List. Zero values match everything.
type AuditFilters struct {
	ActorID   string
	ProjectID string
	Action    string
	Result    string
	Since     *time.Time
}

func (f AuditFilters) scope(db *gorm.DB) *gorm.DB {
	for column, value := range map[string]string{
		"actor_id":   f.ActorID,
		"project_id": f.ProjectID,
		"action":     f.Action,
		"result":     f.Result,
	} {
		if value != "" {
			db = db.Where(column+" = ?", value)
		}
	}
	if f.Since != nil {
		db = db.Where("created_at >= ?", *f.Since)
	}
	return db
}

// AuditService is the append-only trail of team transitions, including
// refused ones.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditService returns an AuditService on db.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

// Log appends entry. Metadata is stored as a JSON object.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	rec, err := entry.record()
	if err != nil {
		return err
	}
	return s.db.WithContext(ensureContext(ctx)).Create(&rec).Error
}

// List returns the newest entries matching filters.
func (s *AuditService) List(ctx context.Context, filters AuditFilters, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = defaultAuditPage
	}

	var logs []models.AuditLog
	err := s.db.WithContext(ensureContext(ctx)).
		Scopes(filters.scope).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("audit service: list logs: %w", err)
	}
	return logs, nil
}

// CleanupOlderThan deletes entries created more than retentionDays ago.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: prune logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
