package database

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charlesng35/campusconnect/internal/models"
	"github.com/charlesng35/campusconnect/internal/projects"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenAppliesPoolLimits(t *testing.T) {
	db, err := Open(Config{
		Driver:       "sqlite",
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 3,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestSQLiteDSNForFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "campus.sqlite")
	dsn, err := sqliteDSN(Config{Path: path, Options: map[string]string{"_busy_timeout": "100"}})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(dsn, "file:"+filepath.ToSlash(path)+"?"))
	require.Contains(t, dsn, "_txlock=immediate")
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.Contains(t, dsn, "_busy_timeout=100")
	require.DirExists(t, filepath.Dir(path))
}

func TestSQLiteDSNDefaultsToSharedMemory(t *testing.T) {
	dsn, err := sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, sharedMemoryDSN, dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigratePersistsProjectTeam(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	ledger, err := projects.NewLedger(projects.JoinRequest{ID: "r1", UserID: "u1", Status: projects.StatusApproved})
	require.NoError(t, err)

	post := &models.ProjectPost{
		Title:             "Robotics club rover",
		Description:       "Build a rover",
		Skills:            []string{"go", "cad"},
		EstimatedDuration: "3 months",
		Visibility:        models.VisibilityPublic,
		Team: projects.Team{
			CreatorID: "creator",
			Size:      1,
			Members:   projects.Roster{"u1"},
			Requests:  ledger,
		},
		Version: 1,
	}
	require.NoError(t, db.Create(post).Error)
	require.True(t, post.Formed, "BeforeSave derives team_formed")

	var loaded models.ProjectPost
	require.NoError(t, db.First(&loaded, "id = ?", post.ID).Error)
	require.Equal(t, projects.Roster{"u1"}, loaded.Members)
	require.True(t, loaded.Formed)
	require.Equal(t, post.Requests.Entries(), loaded.Requests.Entries())
	require.Equal(t, []string{"go", "cad"}, []string(loaded.Skills))
}

func TestAutoMigrateRejectsOverfullTeam(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	post := &models.ProjectPost{
		Title:             "Overfull",
		Description:       "x",
		EstimatedDuration: "1 week",
		Team:              projects.Team{CreatorID: "c", Size: 1, Members: projects.Roster{"a", "b"}},
	}
	err := db.Create(post).Error
	require.ErrorIs(t, err, projects.ErrInvalidTeam)
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil))
	require.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	require.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: cache_entries.key")))
	require.False(t, IsUniqueViolation(errors.New("connection refused")))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, gormlogger.Silent, parseLogLevel(""))
	require.Equal(t, gormlogger.Warn, parseLogLevel("WARN"))
	require.Equal(t, gormlogger.Info, parseLogLevel("debug"))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
