package notify

import (
	"context"

	"github.com/Freeeeeet/booking_service/internal/model"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventBookingConfirmed EventKind = "booking_confirmed"
	EventBookingCancelled EventKind = "booking_cancelled"
)

// Event побочный эффект успешной операции бронирования. Координатор
// саги возвращает список событий, а исполняет их диспетчер уже после
// коммита - сбой уведомления никогда не откатывает бронирование.
type Event struct {
	Kind     EventKind
	Booking  *model.Booking
	Teacher  *model.Teacher
	Student  *model.User
	Refunded bool
}

// Notifier один канал доставки событий
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Dispatcher исполняет пост-коммитные эффекты. Политика log-and-continue:
// каждая ошибка логируется, ни одна не возвращается наружу.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

func NewDispatcher(logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Dispatch доставляет события всем зарегистрированным каналам
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	for _, event := range events {
		for _, n := range d.notifiers {
			if err := n.Notify(ctx, event); err != nil {
				d.logger.Warn("Post-commit notification failed",
					zap.Error(err),
					zap.String("kind", string(event.Kind)),
					zap.Int64("booking_id", event.Booking.ID),
				)
			}
		}
	}
}
