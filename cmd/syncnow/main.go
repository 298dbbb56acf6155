package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Freeeeeet/booking_service/internal/app"
	"github.com/Freeeeeet/booking_service/internal/calendar"
	"github.com/Freeeeeet/booking_service/internal/config"
	"github.com/Freeeeeet/booking_service/internal/repository"
	"github.com/Freeeeeet/booking_service/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Ручной запуск синхронизации календаря - кнопка "sync now"
// для оператора. Обычно синхронизацию гоняет планировщик в cmd/service.
func main() {
	var (
		teacherID = flag.Int64("teacher", 0, "teacher id to sync (0 with -all syncs everyone)")
		all       = flag.Bool("all", false, "sync all teachers with a linked calendar")
		horizon   = flag.Int("horizon", 0, "horizon in days (default from config)")
	)
	flag.Parse()

	if *teacherID == 0 && !*all {
		fmt.Fprintln(os.Stderr, "usage: syncnow -teacher <id> | -all [-horizon <days>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *horizon <= 0 {
		*horizon = cfg.SyncHorizonDays
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	teacherRepo := repository.NewTeacherRepository(pool)
	hoursRepo := repository.NewWorkingHoursRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	source := calendar.NewHTTPSource(cfg.CalendarAPIURL, cfg.CalendarTimeout, logger)

	availability := service.NewAvailabilityService(teacherRepo, hoursRepo, slotRepo, source, logger)

	if *all {
		if err := availability.SyncAll(ctx, *horizon); err != nil {
			logger.Fatal("Sync failed", zap.Error(err))
		}
		return
	}

	created, err := availability.Reconcile(ctx, *teacherID, *horizon)
	if err != nil {
		logger.Fatal("Sync failed", zap.Error(err), zap.Int64("teacher_id", *teacherID))
	}

	fmt.Printf("teacher %d: %d slots created\n", *teacherID, created)
}
