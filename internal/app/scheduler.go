package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/booking_service/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	availability *service.AvailabilityService
	horizonDays  int
	interval     time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(availability *service.AvailabilityService, horizonDays int, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		availability: availability,
		horizonDays:  horizonDays,
		interval:     interval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Int("horizon_days", s.horizonDays),
		zap.Duration("interval", s.interval),
	)

	go s.runCalendarSyncTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runCalendarSyncTask периодически пересобирает доступность всех учителей
// с привязанным календарём. Ошибки отдельных учителей не останавливают
// ни прогон, ни расписание прогонов.
func (s *Scheduler) runCalendarSyncTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.syncAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.syncAll(ctx)
		case <-s.stopChan:
			s.logger.Info("Calendar sync task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Calendar sync task cancelled")
			return
		}
	}
}

func (s *Scheduler) syncAll(ctx context.Context) {
	s.logger.Info("Starting scheduled calendar sync")

	err := s.availability.SyncAll(ctx, s.horizonDays)
	if err != nil {
		s.logger.Error("Scheduled calendar sync failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled calendar sync completed")
}
