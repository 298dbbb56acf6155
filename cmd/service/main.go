package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/booking_service/internal/app"
	"github.com/Freeeeeet/booking_service/internal/calendar"
	"github.com/Freeeeeet/booking_service/internal/config"
	"github.com/Freeeeeet/booking_service/internal/controller"
	"github.com/Freeeeeet/booking_service/internal/notify"
	"github.com/Freeeeeet/booking_service/internal/repository"
	"github.com/Freeeeeet/booking_service/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting booking service",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Int("sync_horizon_days", cfg.SyncHorizonDays),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	// Миграции применяются при старте
	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	teacherRepo := repository.NewTeacherRepository(pool)
	hoursRepo := repository.NewWorkingHoursRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Внешний календарь
	source := calendar.NewHTTPSource(cfg.CalendarAPIURL, cfg.CalendarTimeout, logger)

	// Сервисы
	availabilityService := service.NewAvailabilityService(teacherRepo, hoursRepo, slotRepo, source, logger)
	bookingService := service.NewBookingService(
		slotRepo, bookingRepo, ticketRepo, userRepo, teacherRepo,
		cfg.LessonDuration, cfg.SlotStep, logger,
	)
	ticketService := service.NewTicketService(ticketRepo, logger)

	// Пост-коммитные уведомления
	notifiers := []notify.Notifier{notify.NewCalendarPushNotifier(source)}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	dispatcher := notify.NewDispatcher(logger, notifiers...)

	// Периодическая синхронизация календарей
	scheduler := app.NewScheduler(availabilityService, cfg.SyncHorizonDays, cfg.SyncInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP-слой
	server := controller.NewServer(availabilityService, bookingService, ticketService, dispatcher, cfg.SyncHorizonDays, logger)

	go func() {
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
}
