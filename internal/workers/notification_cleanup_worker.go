package workers

import (
	"context"
	"fmt"
	"time"

	"platform_backend/internal/clock"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"

	"github.com/robfig/cron/v3"
)

const (
	DefaultCleanupSchedule = "0 3 * * 0" // воскресенье, 03:00
	DefaultArchiveAfter    = 30 * 24 * time.Hour
	DefaultPurgeAfter      = 90 * 24 * time.Hour
)

// NotificationStore - операции репозитория уведомлений, нужные очистке
type NotificationStore interface {
	CountArchivable(ctx context.Context, createdBefore time.Time) (int64, error)
	Archive(ctx context.Context, createdBefore time.Time) (int64, error)
	CountPurgeable(ctx context.Context, createdBefore time.Time) (int64, error)
	Purge(ctx context.Context, createdBefore time.Time) (int64, error)
}

type CleanupConfig struct {
	Schedule     string
	ArchiveAfter time.Duration
	PurgeAfter   time.Duration
}

type CleanupResult struct {
	Archived int64 `json:"archived"`
	Purged   int64 `json:"purged"`
	DryRun   bool  `json:"dryRun"`
}

// NotificationCleanupWorker архивирует (soft delete) старые уведомления
// и окончательно удаляет архивные после второго порога.
type NotificationCleanupWorker struct {
	store   NotificationStore
	clock   clock.Clock
	cfg     CleanupConfig
	metrics *metrics.Metrics
}

func NewNotificationCleanupWorker(store NotificationStore, c clock.Clock, cfg CleanupConfig, m *metrics.Metrics) *NotificationCleanupWorker {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultCleanupSchedule
	}
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = DefaultArchiveAfter
	}
	if cfg.PurgeAfter <= 0 {
		cfg.PurgeAfter = DefaultPurgeAfter
	}
	return &NotificationCleanupWorker{store: store, clock: c, cfg: cfg, metrics: m}
}

// Run выполняет один проход. Сначала удаляются давно архивные строки, потом архивируются новые,
// поэтому заархивированное в этом проходе доживает хотя бы до следующего.
// В режиме dryRun только считает.
func (w *NotificationCleanupWorker) Run(ctx context.Context, dryRun bool) (CleanupResult, error) {
	now := w.clock.Now()
	archiveBefore := now.Add(-w.cfg.ArchiveAfter)
	purgeBefore := now.Add(-w.cfg.PurgeAfter)
	result := CleanupResult{DryRun: dryRun}

	started := time.Now()
	if dryRun {
		purgeable, err := w.store.CountPurgeable(ctx, purgeBefore)
		if err != nil {
			return result, fmt.Errorf("count purgeable notifications: %w", err)
		}
		archivable, err := w.store.CountArchivable(ctx, archiveBefore)
		if err != nil {
			return result, fmt.Errorf("count archivable notifications: %w", err)
		}
		result.Purged, result.Archived = purgeable, archivable
		logger.WorkerLog("notification_cleanup", "dry_run", time.Since(started), nil,
			"would_archive", archivable, "would_purge", purgeable)
		return result, nil
	}

	purged, err := w.store.Purge(ctx, purgeBefore)
	if err != nil {
		logger.WorkerLog("notification_cleanup", "purge", time.Since(started), err)
		return result, fmt.Errorf("purge notifications: %w", err)
	}
	result.Purged = purged

	archived, err := w.store.Archive(ctx, archiveBefore)
	if err != nil {
		logger.WorkerLog("notification_cleanup", "archive", time.Since(started), err)
		return result, fmt.Errorf("archive notifications: %w", err)
	}
	result.Archived = archived

	if w.metrics != nil {
		w.metrics.CleanupAffected.WithLabelValues("archived").Add(float64(archived))
		w.metrics.CleanupAffected.WithLabelValues("purged").Add(float64(purged))
	}
	logger.WorkerLog("notification_cleanup", "run", time.Since(started), nil,
		"archived", archived, "purged", purged)
	return result, nil
}

// Start регистрирует задачу в cron и останавливает планировщик по ctx
func (w *NotificationCleanupWorker) Start(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(w.cfg.Schedule, func() {
		if _, err := w.Run(ctx, false); err != nil {
			logger.Error("scheduled notification cleanup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", w.cfg.Schedule, err)
	}

	scheduler.Start()
	logger.Info("notification cleanup scheduled", "schedule", w.cfg.Schedule)

	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
		logger.Info("notification cleanup scheduler stopped")
	}()
	return nil
}
