package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campusconnect/internal/api"
	"github.com/charlesng35/campusconnect/internal/app"
	"github.com/charlesng35/campusconnect/internal/app/maintenance"
	iauth "github.com/charlesng35/campusconnect/internal/auth"
	"github.com/charlesng35/campusconnect/internal/cache"
	"github.com/charlesng35/campusconnect/internal/database"
	"github.com/charlesng35/campusconnect/internal/handlers"
	"github.com/charlesng35/campusconnect/internal/middleware"
	"github.com/charlesng35/campusconnect/internal/projects"
	"github.com/charlesng35/campusconnect/internal/realtime"
	"github.com/charlesng35/campusconnect/internal/repository"
	"github.com/charlesng35/campusconnect/internal/repository/mongostore"
	"github.com/charlesng35/campusconnect/internal/repository/sqlstore"
	"github.com/charlesng35/campusconnect/internal/services"
	"github.com/charlesng35/campusconnect/pkg/logger"
)

const defaultMongoTimeout = 10 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Redis         *cache.RedisStore
	Mongo         *mongo.Client
	Hub           *realtime.Hub
	AuditSvc      *services.AuditService
	Notifications *services.NotificationService
	Projects      *services.ProjectService
	Cleaner       *maintenance.Cleaner
	Router        *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := stack.openDatabase(cfg.Database.ClientConfig()); err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	var sharedStore cache.Store = dbStore
	if stack.Redis != nil {
		sharedStore = stack.Redis
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Hub = realtime.NewHub(realtime.WithAllowedOrigins(cfg.Server.AllowedOrigins...))

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	var notificationOpts []services.NotificationOption
	if stack.Redis != nil {
		notificationOpts = append(notificationOpts, services.WithPublisher(stack.Redis, cfg.Notifications.Channel))
	}
	stack.Notifications, err = services.NewNotificationService(stack.DB, stack.Hub, notificationOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	repo, err := stack.projectRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	projectOpts := []services.ProjectOption{
		services.WithEngine(projects.NewEngine(projects.WithCooldown(cfg.Projects.Cooldown))),
		services.WithLocker(projectLocker(stack.Redis, sharedStore), cfg.Projects.LockTTL),
		services.WithHub(stack.Hub),
		services.WithMaxRetries(cfg.Projects.MaxRetries),
		services.WithDefaultTeamSize(cfg.Projects.DefaultTeamSize),
	}
	if cfg.Notifications.Enabled {
		projectOpts = append(projectOpts, services.WithEventSink(stack.Notifications))
	}
	stack.Projects, err = services.NewProjectService(repo, stack.DB, stack.AuditSvc, projectOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise project service: %w", err)
	}
	stack.Hub.SetAuthorizer(stack.Projects.CanAccessStream)

	cleanerOpts := []maintenance.Option{
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
		maintenance.WithSchedules(cfg.Maintenance.AuditSchedule, cfg.Maintenance.NotificationSchedule, cfg.Maintenance.CacheSchedule),
	}
	if stack.Redis == nil {
		cleanerOpts = append(cleanerOpts, maintenance.WithCachePurger(dbStore))
	}
	stack.Cleaner = maintenance.NewCleaner(stack.AuditSvc, stack.Notifications, cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	checks := map[string]handlers.HealthCheck{}
	if stack.Redis != nil {
		checks["redis"] = stack.Redis.Ping
	}
	if stack.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return stack.Mongo.Ping(ctx, nil) }
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:             stack.DB,
		Verifier:       jwtSvc,
		Projects:       stack.Projects,
		Notifications:  stack.Notifications,
		Hub:            stack.Hub,
		RateStore:      middleware.NewStoreRateStore(sharedStore),
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		HealthChecks:   checks,
		MetricsEnabled: cfg.Monitoring.Prometheus.Enabled,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// projectRepository selects the project store named by projects.store.
func (s *runtimeStack) projectRepository(ctx context.Context, cfg *app.Config, log *zap.Logger) (repository.ProjectRepository, error) {
	if !strings.EqualFold(strings.TrimSpace(cfg.Projects.Store), app.ProjectStoreMongo) {
		repo, err := sqlstore.NewProjectRepository(s.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise project repository: %w", err)
		}
		return repo, nil
	}

	timeout := cfg.Mongo.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s.Mongo = client

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := cfg.Mongo.Collection
	if strings.TrimSpace(collection) == "" {
		collection = mongostore.DefaultCollection
	}
	repo, err := mongostore.NewProjectRepository(client.Database(cfg.Mongo.Database).Collection(collection))
	if err != nil {
		return nil, fmt.Errorf("initialise project repository: %w", err)
	}
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	log.Info("mongo project store connected",
		zap.String("database", cfg.Mongo.Database),
		zap.String("collection", collection))
	return repo, nil
}

// projectLocker shares leases through the store when Redis is available so
// several API replicas serialise on the same project. A single process is
// served by the in-memory locker.
func projectLocker(redisStore *cache.RedisStore, store cache.Store) cache.Locker {
	if redisStore != nil {
		return cache.NewStoreLocker(store)
	}
	return cache.NewLocalLocker()
}

// Shutdown stops background jobs, then closes every store the stack opened.
// Close failures are logged; shutdown always runs to the end.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}
	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	var errs error
	if s.Redis != nil {
		errs = multierr.Append(errs, closeStep("redis", s.Redis.Close))
	}
	if s.Mongo != nil {
		errs = multierr.Append(errs, closeStep("mongo", func() error { return s.Mongo.Disconnect(ctx) }))
	}
	if s.DB != nil {
		errs = multierr.Append(errs, closeStep("database", func() error {
			sqlDB, err := s.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}))
	}
	for _, err := range multierr.Errors(errs) {
		log.Warn("shutdown step failed", zap.Error(err))
	}
}

func closeStep(name string, fn func() error) error {
	if err := fn(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// openDatabase connects the primary database and migrates its schema.
func (s *runtimeStack) openDatabase(cfg database.Config) error {
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.DB = db
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}
	logger.WithModule("database").Info("database connected", zap.String("driver", cfg.Driver))
	return nil
}
