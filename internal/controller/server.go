package controller

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/Freeeeeet/booking_service/internal/notify"
	"github.com/Freeeeeet/booking_service/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Server тонкий HTTP-слой над сервисами. Аутентификацию делает
// внешний gateway - сюда приходят уже проверенные идентификаторы.
type Server struct {
	app          *fiber.App
	availability *service.AvailabilityService
	bookings     *service.BookingService
	tickets      *service.TicketService
	dispatcher   *notify.Dispatcher
	horizonDays  int
	logger       *zap.Logger
}

func NewServer(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	tickets *service.TicketService,
	dispatcher *notify.Dispatcher,
	horizonDays int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		availability: availability,
		bookings:     bookings,
		tickets:      tickets,
		dispatcher:   dispatcher,
		horizonDays:  horizonDays,
		logger:       logger,
	}

	app := fiber.New(fiber.Config{
		AppName:      "Booking Service",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/bookings", s.createBooking)
	app.Get("/bookings/:id", s.getBooking)
	app.Post("/bookings/:id/cancel", s.cancelBooking)
	app.Get("/users/:id/bookings", s.listStudentBookings)
	app.Get("/teachers/:id/bookings", s.listTeacherBookings)
	app.Get("/teachers/:id/slots", s.listOpenSlots)
	app.Post("/teachers/:id/sync", s.syncTeacher)
	app.Get("/teachers/:id/working-hours", s.getWorkingHours)
	app.Put("/teachers/:id/working-hours", s.saveWorkingHours)
	app.Post("/tickets/credit", s.creditTickets)
	app.Get("/users/:id/tickets/:type", s.ticketBalance)

	s.app = app
	return s
}

// Listen блокирует до остановки сервера
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown мягко останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type createBookingRequest struct {
	StudentID  int64  `json:"student_id"`
	TeacherID  int64  `json:"teacher_id"`
	SlotID     int64  `json:"slot_id"`
	TicketType string `json:"ticket_type"`
}

func (s *Server) createBooking(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}
	if req.StudentID == 0 || req.TeacherID == 0 || req.SlotID == 0 || req.TicketType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required fields"})
	}

	booking, events, err := s.bookings.Book(c.Context(), req.StudentID, req.TeacherID, req.SlotID, req.TicketType)
	if err != nil {
		return s.fail(c, err)
	}

	// Эффекты исполняются после успешного ответа саги; их сбои
	// логируются диспетчером и не влияют на результат
	s.dispatcher.Dispatch(c.Context(), events)

	return c.Status(fiber.StatusCreated).JSON(booking)
}

type cancelBookingRequest struct {
	Refund bool `json:"refund"`
}

func (s *Server) cancelBooking(c *fiber.Ctx) error {
	bookingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid booking id"})
	}

	var req cancelBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	refunded, events, err := s.bookings.Cancel(c.Context(), int64(bookingID), req.Refund)
	if err != nil {
		return s.fail(c, err)
	}

	s.dispatcher.Dispatch(c.Context(), events)

	return c.JSON(fiber.Map{"cancelled": true, "refunded": refunded})
}

func (s *Server) getBooking(c *fiber.Ctx) error {
	bookingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid booking id"})
	}

	booking, err := s.bookings.GetBooking(c.Context(), int64(bookingID))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(booking)
}

func (s *Server) listStudentBookings(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	bookings, err := s.bookings.ListStudentBookings(c.Context(), int64(studentID))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (s *Server) listTeacherBookings(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid teacher id"})
	}

	bookings, err := s.bookings.ListTeacherBookings(c.Context(), int64(teacherID))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (s *Server) listOpenSlots(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid teacher id"})
	}

	from, to, err := parseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slots, err := s.bookings.ListOpenSlots(c.Context(), int64(teacherID), from, to)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"slots": slots})
}

func (s *Server) syncTeacher(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid teacher id"})
	}

	horizon := c.QueryInt("horizon_days", s.horizonDays)

	created, err := s.availability.Reconcile(c.Context(), int64(teacherID), horizon)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"slots_created": created})
}

func (s *Server) getWorkingHours(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid teacher id"})
	}

	rules, err := s.availability.GetWorkingHours(c.Context(), int64(teacherID))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"working_hours": rules})
}

type saveWorkingHoursRequest struct {
	WorkingHours []*model.WorkingHourRule `json:"working_hours"`
}

func (s *Server) saveWorkingHours(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid teacher id"})
	}

	var req saveWorkingHoursRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := s.availability.SaveWorkingHours(c.Context(), int64(teacherID), req.WorkingHours); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"saved": len(req.WorkingHours)})
}

type creditTicketsRequest struct {
	UserID     int64  `json:"user_id"`
	TicketType string `json:"ticket_type"`
	Count      int    `json:"count"`
}

// creditTickets вызывается внешним платёжным webhook-слоем после
// проверки подлинности платежа
func (s *Server) creditTickets(c *fiber.Ctx) error {
	var req creditTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := s.tickets.Credit(c.Context(), req.UserID, req.TicketType, req.Count); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"credited": req.Count})
}

func (s *Server) ticketBalance(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	remaining, err := s.tickets.Balance(c.Context(), int64(userID), c.Params("type"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"remaining_tickets": remaining})
}

// fail переводит типизированные ошибки домена в HTTP-статусы
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrSlotNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrTeacherNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrSlotUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInsufficientTickets),
		errors.Is(err, model.ErrRefundNotAllowed),
		errors.Is(err, model.ErrNoWorkingHours),
		errors.Is(err, model.ErrInvalidWorkingHours),
		errors.Is(err, model.ErrCalendarNotLinked):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrReauthRequired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "reconnect_required"})
	case errors.Is(err, model.ErrSourceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Error("Unhandled request error", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func parseWindow(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 0, 14)

	var err error
	if fromRaw != "" {
		from, err = time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' timestamp")
		}
	}
	if toRaw != "" {
		to, err = time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' timestamp")
		}
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("'from' must be before 'to'")
	}

	return from, to, nil
}
