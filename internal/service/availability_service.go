package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_service/internal/calendar"
	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Зависимости сервиса описаны интерфейсами со стороны потребителя:
// в проде их реализуют pgx-репозитории, в тестах - фейки в памяти.

type TeacherStore interface {
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
	GetLinked(ctx context.Context) ([]*model.Teacher, error)
	ClearCredentials(ctx context.Context, teacherID int64) error
}

type WorkingHoursStore interface {
	GetActiveByTeacher(ctx context.Context, teacherID int64) ([]*model.WorkingHourRule, error)
	ReplaceForTeacher(ctx context.Context, teacherID int64, rules []*model.WorkingHourRule) error
}

type SlotWriter interface {
	GetBookedIntervals(ctx context.Context, teacherID int64, from time.Time) ([]model.Interval, error)
	ReplaceFuture(ctx context.Context, teacherID int64, from time.Time, intervals []model.Interval, runID uuid.UUID) (int, error)
}

// syncAllConcurrency сколько учителей синхронизируем одновременно
const syncAllConcurrency = 4

type AvailabilityService struct {
	teacherRepo TeacherStore
	hoursRepo   WorkingHoursStore
	slotRepo    SlotWriter
	source      calendar.Source
	logger      *zap.Logger
	now         func() time.Time
}

func NewAvailabilityService(
	teacherRepo TeacherStore,
	hoursRepo WorkingHoursStore,
	slotRepo SlotWriter,
	source calendar.Source,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		teacherRepo: teacherRepo,
		hoursRepo:   hoursRepo,
		slotRepo:    slotRepo,
		source:      source,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock подменяет источник времени. Нужен тестам.
func (s *AvailabilityService) WithClock(now func() time.Time) *AvailabilityService {
	s.now = now
	return s
}

// Reconcile пересобирает доступность учителя на horizonDays вперёд:
// правила рабочих часов разворачиваются в конкретные даты, из них
// вычитается занятость внешнего календаря, результат атомарно заменяет
// будущие незабронированные слоты. Прогон идемпотентен - повторный
// запуск с теми же входами даёт тот же набор интервалов.
//
// До финальной замены хранилище не мутируется: упавший прогон
// не оставляет частично удалённых слотов.
func (s *AvailabilityService) Reconcile(ctx context.Context, teacherID int64, horizonDays int) (int, error) {
	teacher, err := s.teacherRepo.GetByID(ctx, teacherID)
	if err != nil {
		return 0, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return 0, model.ErrTeacherNotFound
	}
	if !teacher.CalendarLinked() {
		return 0, model.ErrCalendarNotLinked
	}

	rules, err := s.hoursRepo.GetActiveByTeacher(ctx, teacherID)
	if err != nil {
		return 0, fmt.Errorf("get working hours: %w", err)
	}
	if len(rules) == 0 {
		return 0, model.ErrNoWorkingHours
	}

	loc, err := time.LoadLocation(teacher.Timezone)
	if err != nil {
		return 0, fmt.Errorf("load teacher timezone %q: %w", teacher.Timezone, err)
	}

	now := s.now().UTC()
	windowEnd := now.AddDate(0, 0, horizonDays)

	creds := calendar.Credentials{
		AccessToken:  *teacher.AccessToken,
		RefreshToken: *teacher.RefreshToken,
	}

	busy, err := s.source.BusyIntervals(ctx, teacher.CalendarID, now, windowEnd, creds)
	if err != nil {
		if errors.Is(err, model.ErrReauthRequired) {
			// Токены мертвы - сбрасываем их, чтобы учитель увидел
			// запрос на повторную привязку, и выходим без мутаций слотов
			if clearErr := s.teacherRepo.ClearCredentials(ctx, teacherID); clearErr != nil {
				s.logger.Error("Failed to clear dead credentials",
					zap.Error(clearErr),
					zap.Int64("teacher_id", teacherID),
				)
			}
			s.logger.Warn("Calendar requires relink",
				zap.Int64("teacher_id", teacherID),
			)
			return 0, model.ErrReauthRequired
		}
		return 0, fmt.Errorf("fetch busy intervals: %w", err)
	}

	// Уже забронированное время тоже считаем занятым: эти слоты
	// переживут замену, и предлагать их минуты второй раз нельзя
	booked, err := s.slotRepo.GetBookedIntervals(ctx, teacherID, now)
	if err != nil {
		return 0, fmt.Errorf("get booked intervals: %w", err)
	}
	busy = append(busy, booked...)

	open := s.buildOpenIntervals(rules, busy, now, horizonDays, loc)

	runID := uuid.New()
	created, err := s.slotRepo.ReplaceFuture(ctx, teacherID, now, open, runID)
	if err != nil {
		return 0, fmt.Errorf("replace future slots: %w", err)
	}

	s.logger.Info("Availability reconciled",
		zap.Int64("teacher_id", teacherID),
		zap.String("sync_run_id", runID.String()),
		zap.Int("horizon_days", horizonDays),
		zap.Int("busy_intervals", len(busy)),
		zap.Int("slots_created", created),
	)

	return created, nil
}

// buildOpenIntervals разворачивает недельные правила по дням горизонта
// и вычитает занятость. Дата берётся в локации учителя, поэтому
// локальное время правила фиксировано, а UTC-момент для каждой даты
// свой - переход на летнее время учитывается сам собой.
func (s *AvailabilityService) buildOpenIntervals(
	rules []*model.WorkingHourRule,
	busy []model.Interval,
	now time.Time,
	horizonDays int,
	loc *time.Location,
) []model.Interval {
	byWeekday := make(map[int][]*model.WorkingHourRule)
	for _, rule := range rules {
		byWeekday[rule.Weekday] = append(byWeekday[rule.Weekday], rule)
	}

	var open []model.Interval
	localNow := now.In(loc)

	for day := 0; day < horizonDays; day++ {
		date := localNow.AddDate(0, 0, day)

		for _, rule := range byWeekday[int(date.Weekday())] {
			window := rule.Instantiate(date, loc)

			// Первый день горизонта: окно не может начинаться в прошлом,
			// иначе повторный прогон наплодит слоты, которые замена
			// (scoped start_time >= now) уже не удаляет
			if window.Start.Before(now) {
				window.Start = now
			}
			if !window.IsValid() {
				continue
			}

			var dayBusy []model.Interval
			for _, b := range busy {
				if b.Overlaps(window) {
					dayBusy = append(dayBusy, b)
				}
			}

			// Занятость, полностью покрывающая окно, даёт ноль слотов -
			// это нормальный результат, не ошибка
			open = append(open, model.Subtract(window, dayBusy)...)
		}
	}

	return open
}

// SyncAll пересобирает доступность всех учителей с привязанным календарём.
// Ошибка одного учителя логируется и не прерывает остальных.
func (s *AvailabilityService) SyncAll(ctx context.Context, horizonDays int) error {
	teachers, err := s.teacherRepo.GetLinked(ctx)
	if err != nil {
		return fmt.Errorf("get linked teachers: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncAllConcurrency)

	for _, teacher := range teachers {
		teacher := teacher
		g.Go(func() error {
			_, err := s.Reconcile(gctx, teacher.ID, horizonDays)
			if err != nil {
				s.logger.Error("Failed to reconcile teacher availability",
					zap.Error(err),
					zap.Int64("teacher_id", teacher.ID),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("Synced availability for all linked teachers",
		zap.Int("teachers", len(teachers)),
	)

	return nil
}

// SaveWorkingHours заменяет весь набор правил учителя. Частичного
// редактирования нет: клиент присылает полный список, мы его валидируем
// и записываем вместо старого.
func (s *AvailabilityService) SaveWorkingHours(ctx context.Context, teacherID int64, rules []*model.WorkingHourRule) error {
	teacher, err := s.teacherRepo.GetByID(ctx, teacherID)
	if err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return model.ErrTeacherNotFound
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule for weekday %d: %w", rule.Weekday, err)
		}
	}

	if err := s.hoursRepo.ReplaceForTeacher(ctx, teacherID, rules); err != nil {
		return fmt.Errorf("replace working hours: %w", err)
	}

	s.logger.Info("Working hours saved",
		zap.Int64("teacher_id", teacherID),
		zap.Int("rules", len(rules)),
	)

	return nil
}

// GetWorkingHours возвращает активные правила учителя
func (s *AvailabilityService) GetWorkingHours(ctx context.Context, teacherID int64) ([]*model.WorkingHourRule, error) {
	return s.hoursRepo.GetActiveByTeacher(ctx, teacherID)
}
