package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/campusconnect/pkg/logger"
	"github.com/charlesng35/campusconnect/pkg/metrics"
)

const (
	defaultAuditRetentionDays        = 90
	defaultNotificationRetentionDays = 30
	defaultAuditSpec                 = "@daily"
	defaultNotificationSpec          = "@daily"
	defaultCacheSpec                 = "@hourly"
)

// AuditPruner removes audit entries older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// NotificationPruner removes read notifications older than a retention window.
type NotificationPruner interface {
	CleanupReadOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CachePurger drops expired cache rows. Only the SQL-backed cache needs it;
// Redis expires keys on its own.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: audit retention, read
// notification retention and expired cache rows.
type Cleaner struct {
	audit         AuditPruner
	notifications NotificationPruner
	cache         CachePurger
	cron          *cron.Cron
	log           *zap.Logger

	auditRetention        int
	notificationRetention int

	auditSchedule        string
	notificationSchedule string
	cacheSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are retained.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithCachePurger enables the expired cache row job.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// WithSchedules overrides the cron expressions. Empty values keep the defaults.
func WithSchedules(audit, notifications, cacheSpec string) Option {
	return func(cleaner *Cleaner) {
		if audit != "" {
			cleaner.auditSchedule = audit
		}
		if notifications != "" {
			cleaner.notificationSchedule = notifications
		}
		if cacheSpec != "" {
			cleaner.cacheSchedule = cacheSpec
		}
	}
}

// NewCleaner constructs a Cleaner. Any nil dependency results in the
// corresponding job being skipped.
func NewCleaner(audit AuditPruner, notifications NotificationPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:                 audit,
		notifications:         notifications,
		auditRetention:        defaultAuditRetentionDays,
		notificationRetention: defaultNotificationRetentionDays,
		auditSchedule:         defaultAuditSpec,
		notificationSchedule:  defaultNotificationSpec,
		cacheSchedule:         defaultCacheSpec,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.audit != nil {
		jobs = append(jobs, job{
			name:     "audit",
			schedule: c.auditSchedule,
			run: func(ctx context.Context) (int64, error) {
				return c.audit.CleanupOlderThan(ctx, c.auditRetention)
			},
		})
	}
	if c.notifications != nil {
		jobs = append(jobs, job{
			name:     "notifications",
			schedule: c.notificationSchedule,
			run: func(ctx context.Context) (int64, error) {
				return c.notifications.CleanupReadOlderThan(ctx, c.notificationRetention)
			},
		})
	}
	if c.cache != nil {
		jobs = append(jobs, job{
			name:     "cache",
			schedule: c.cacheSchedule,
			run:      c.cache.PurgeExpired,
		})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			if _, err := c.execute(context.Background(), j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured jobs sequentially and returns the rows
// removed per job. Every job runs even when an earlier one fails.
func (c *Cleaner) RunOnce(ctx context.Context) (map[string]int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	removed := make(map[string]int64)
	var errs error
	for _, j := range c.jobs() {
		n, err := c.execute(ctx, j)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed[j.name] = n
	}
	return removed, errs
}

func (c *Cleaner) execute(ctx context.Context, j job) (int64, error) {
	n, err := j.run(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.MaintenanceRecordsPurged.WithLabelValues(j.name).Add(float64(n))
		c.log.Info("maintenance job purged records", zap.String("job", j.name), zap.Int64("rows", n))
	}
	return n, nil
}
