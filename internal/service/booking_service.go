package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/Freeeeeet/booking_service/internal/notify"
	"go.uber.org/zap"
)

type SlotStore interface {
	GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	GetOpen(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.AvailabilitySlot, error)
	Claim(ctx context.Context, slotID int64) (bool, error)
	Release(ctx context.Context, slotID int64) error
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	CancelConfirmed(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	GetByStudentID(ctx context.Context, studentID int64) ([]*model.Booking, error)
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Booking, error)
}

type TicketStore interface {
	GetBalance(ctx context.Context, userID int64, ticketType string) (*model.TicketBalance, error)
	Debit(ctx context.Context, userID int64, ticketType string) (bool, error)
	Credit(ctx context.Context, userID int64, ticketType string, count int) error
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type BookingService struct {
	slotRepo    SlotStore
	bookingRepo BookingStore
	ticketRepo  TicketStore
	userRepo    UserStore
	teacherRepo TeacherStore
	duration    time.Duration
	step        time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewBookingService(
	slotRepo SlotStore,
	bookingRepo BookingStore,
	ticketRepo TicketStore,
	userRepo UserStore,
	teacherRepo TeacherStore,
	duration, step time.Duration,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		teacherRepo: teacherRepo,
		duration:    duration,
		step:        step,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock подменяет источник времени. Нужен тестам.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Book бронирует слот для студента, списывая один билет. Это сага,
// а не одна транзакция БД: захват слота и списание билета - независимо
// отказывающие условные операции, каждая закрывает свою гонку на уровне
// хранилища. Любой сбой компенсируется в обратном порядке, поэтому
// подтверждённое бронирование без успешного списания существовать не может.
func (s *BookingService) Book(ctx context.Context, studentID, teacherID, slotID int64, ticketType string) (*model.Booking, []notify.Event, error) {
	// Быстрая предварительная проверка баланса. Авторитетная проверка -
	// условное списание ниже: к этому моменту баланс мог измениться.
	balance, err := s.ticketRepo.GetBalance(ctx, studentID, ticketType)
	if err != nil {
		return nil, nil, fmt.Errorf("get ticket balance: %w", err)
	}
	if balance == nil || balance.RemainingTickets <= 0 {
		return nil, nil, model.ErrInsufficientTickets
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.TeacherID != teacherID {
		return nil, nil, model.ErrSlotNotFound
	}
	if slot.StartTime.Before(s.now()) {
		return nil, nil, model.ErrSlotUnavailable
	}

	// Шаг 1: атомарный захват слота. Проигравший конкурент получает
	// ноль затронутых строк - откатывать ещё нечего.
	claimed, err := s.slotRepo.Claim(ctx, slotID)
	if err != nil {
		return nil, nil, fmt.Errorf("claim slot: %w", err)
	}
	if !claimed {
		return nil, nil, model.ErrSlotUnavailable
	}

	// Шаг 2: запись о бронировании
	booking := &model.Booking{
		StudentID:  studentID,
		TeacherID:  teacherID,
		SlotID:     slotID,
		TicketType: ticketType,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Status:     model.BookingStatusConfirmed,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.compensateRelease(ctx, slotID)
		return nil, nil, fmt.Errorf("create booking: %w", err)
	}

	// Шаг 3: списание билета. Условие remaining > 0 перепроверяется
	// самим UPDATE - предварительная проверка выше уже не авторитетна.
	debited, err := s.ticketRepo.Debit(ctx, studentID, ticketType)
	if err == nil && !debited {
		err = model.ErrInsufficientTickets
	}
	if err != nil {
		// Компенсации в обратном порядке
		if delErr := s.bookingRepo.Delete(ctx, booking.ID); delErr != nil {
			s.logger.Error("Compensation failed: delete booking",
				zap.Error(delErr),
				zap.Int64("booking_id", booking.ID),
			)
		}
		s.compensateRelease(ctx, slotID)
		return nil, nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("slot_id", slotID),
		zap.String("ticket_type", ticketType),
	)

	return booking, s.buildEvents(ctx, notify.EventBookingConfirmed, booking, false), nil
}

// Cancel отменяет бронирование. Переход confirmed -> cancelled условный,
// поэтому повторная конкурентная отмена - no-op, а не двойной возврат.
// Возврат билета разрешён только не позднее чем за 24 часа до урока;
// флаг refund проверяется здесь, а не доверяется вызывающему коду.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, refund bool) (bool, []notify.Event, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return false, nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return false, nil, model.ErrBookingNotFound
	}

	if refund && !booking.RefundEligible(s.now()) {
		return false, nil, model.ErrRefundNotAllowed
	}

	cancelled, err := s.bookingRepo.CancelConfirmed(ctx, bookingID)
	if err != nil {
		return false, nil, fmt.Errorf("cancel booking: %w", err)
	}
	if !cancelled {
		// Уже отменено (возможно конкурентным запросом)
		return false, nil, model.ErrBookingNotFound
	}

	booking.Status = model.BookingStatusCancelled

	if err := s.slotRepo.Release(ctx, booking.SlotID); err != nil {
		// Слот остался закрытым - это потеря доступности, не двойная
		// продажа. Чинится следующей синхронизацией календаря.
		s.logger.Error("Failed to release slot after cancellation",
			zap.Error(err),
			zap.Int64("slot_id", booking.SlotID),
		)
	}

	if refund {
		if err := s.ticketRepo.Credit(ctx, booking.StudentID, booking.TicketType, 1); err != nil {
			return false, nil, fmt.Errorf("refund ticket: %w", err)
		}
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Bool("refunded", refund),
	)

	return refund, s.buildEvents(ctx, notify.EventBookingCancelled, booking, refund), nil
}

// ListOpenSlots возвращает каталог доступных времён уроков: открытые
// интервалы из хранилища нарезаются на слоты фиксированной длительности
// прямо в момент запроса. Чистая функция от хранимых слотов - ничего
// не персистится.
func (s *BookingService) ListOpenSlots(ctx context.Context, teacherID int64, from, to time.Time) ([]model.BookableSlot, error) {
	open, err := s.slotRepo.GetOpen(ctx, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get open slots: %w", err)
	}

	now := s.now()
	var result []model.BookableSlot

	for _, slot := range open {
		for _, chunk := range slot.Interval().Chunk(s.duration, s.step) {
			if chunk.Start.Before(now) {
				continue
			}
			result = append(result, model.BookableSlot{
				SlotID:    slot.ID,
				TeacherID: slot.TeacherID,
				StartTime: chunk.Start,
				EndTime:   chunk.End,
			})
		}
	}

	return result, nil
}

// ListStudentBookings возвращает бронирования студента
func (s *BookingService) ListStudentBookings(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return s.bookingRepo.GetByStudentID(ctx, studentID)
}

// ListTeacherBookings возвращает бронирования учителя
func (s *BookingService) ListTeacherBookings(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return s.bookingRepo.GetByTeacherID(ctx, teacherID)
}

// GetBooking получает бронирование по ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, model.ErrBookingNotFound
	}
	return booking, nil
}

// compensateRelease возвращает слот в открытое состояние после сбоя
// одного из шагов саги
func (s *BookingService) compensateRelease(ctx context.Context, slotID int64) {
	if err := s.slotRepo.Release(ctx, slotID); err != nil {
		s.logger.Error("Compensation failed: release slot",
			zap.Error(err),
			zap.Int64("slot_id", slotID),
		)
	}
}

// buildEvents собирает пост-коммитные эффекты. Участники подгружаются
// best-effort: без них уведомление просто уйдёт не всем.
func (s *BookingService) buildEvents(ctx context.Context, kind notify.EventKind, booking *model.Booking, refunded bool) []notify.Event {
	event := notify.Event{
		Kind:     kind,
		Booking:  booking,
		Refunded: refunded,
	}

	student, err := s.userRepo.GetByID(ctx, booking.StudentID)
	if err != nil {
		s.logger.Warn("Failed to load student for notification", zap.Error(err))
	}
	event.Student = student

	teacher, err := s.teacherRepo.GetByID(ctx, booking.TeacherID)
	if err != nil {
		s.logger.Warn("Failed to load teacher for notification", zap.Error(err))
	}
	event.Teacher = teacher

	return []notify.Event{event}
}
