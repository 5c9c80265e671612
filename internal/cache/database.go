package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/campusconnect/internal/database"
	"github.com/charlesng35/campusconnect/internal/models"
)

var (
	errNoDatabase = errors.New("cache: database store not initialised")
	errKeyHeld    = errors.New("cache: key held")
)

// DatabaseStore keeps cache entries in the primary SQL database when Redis is
// disabled. Counter and lease updates lock the row for the transaction.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil when db is nil.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

func (s *DatabaseStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errNoDatabase
	}
	return s.db.WithContext(ctx), nil
}

// locked loads key under a row lock. found is false when no row exists.
func locked(tx *gorm.DB, key string) (entry models.CacheEntry, found bool, err error) {
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, false, nil
	}
	return entry, err == nil, err
}

// IncrementWithTTL bumps the counter at key. A missing or lapsed counter
// restarts at 1 with a fresh window; the remaining window is returned.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	count, expiry := int64(1), now.Add(window)
	err = db.Transaction(func(tx *gorm.DB) error {
		entry, found, err := locked(tx, key)
		if err != nil {
			return err
		}
		if found && !entry.Expired(now) {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiry = current+1, entry.ExpiresAt
		}
		entry.Key = key
		entry.Value = []byte(strconv.FormatInt(count, 10))
		entry.ExpiresAt = expiry
		if found {
			return tx.Save(&entry).Error
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiry.Sub(now), nil
}

// Set upserts key. A non-positive ttl stores the entry without expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}
	return db.Clauses(upsert).Create(&models.CacheEntry{Key: key, Value: value, ExpiresAt: s.expiryFor(ttl)}).Error
}

// Get returns the live value at key. Lapsed entries are removed on read.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	switch err := db.Take(&entry, "key = ?", key).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case entry.Expired(s.now()):
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	db, err := s.conn(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	return db.Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// SetIfAbsent inserts key unless a live entry already holds it. Expired
// entries are taken over in place.
func (s *DatabaseStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	now := s.now()
	acquired := false
	err = db.Transaction(func(tx *gorm.DB) error {
		entry, found, err := locked(tx, key)
		switch {
		case err != nil:
			return err
		case !found:
			err := tx.Create(&models.CacheEntry{Key: key, Value: value, ExpiresAt: s.expiryFor(ttl)}).Error
			if database.IsUniqueViolation(err) {
				// Another writer inserted between the read and the create.
				return errKeyHeld
			}
			acquired = err == nil
			return err
		case !entry.Expired(now):
			return nil
		}

		res := tx.Model(&models.CacheEntry{}).
			Where("key = ?", key).
			Updates(map[string]any{"value": value, "expires_at": s.expiryFor(ttl)})
		acquired = res.Error == nil && res.RowsAffected == 1
		return res.Error
	})
	if errors.Is(err, errKeyHeld) {
		return false, nil
	}
	return acquired, err
}

// CompareAndDelete deletes key only while it still holds value.
func (s *DatabaseStore) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	res := db.Where("key = ? AND value = ?", key, value).Delete(&models.CacheEntry{})
	return res.Error == nil && res.RowsAffected > 0, res.Error
}

// PurgeExpired deletes lapsed entries and reports how many went. Entries
// without expiry are kept.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	res := db.Where("expires_at > ? AND expires_at < ?", time.Time{}, s.now()).Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

func (s *DatabaseStore) expiryFor(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
