package calendar

import (
	"context"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
)

// Credentials токены доступа к календарю учителя. Их выдача и обновление -
// забота внешнего OAuth-сервиса, мы только передаём их провайдеру.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Event событие, которое мы пушим в календарь учителя после
// подтверждённого бронирования. Доставка best-effort.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Source источник занятости учителя. Реализация обязана возвращать
// model.ErrSourceUnavailable на временные сбои (включая таймауты)
// и model.ErrReauthRequired когда токены больше не действуют.
type Source interface {
	// BusyIntervals возвращает занятые интервалы календаря в окне [from, to)
	BusyIntervals(ctx context.Context, calendarID string, from, to time.Time, creds Credentials) ([]model.Interval, error)

	// CreateEvent создаёт событие в календаре
	CreateEvent(ctx context.Context, calendarID string, event Event, creds Credentials) error
}
