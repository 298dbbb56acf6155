package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_service/internal/calendar"
)

// CalendarPushNotifier создаёт событие в календаре учителя после
// подтверждённого бронирования, чтобы урок был виден рядом с остальной
// занятостью. Отмены календарь узнаёт при следующей синхронизации.
type CalendarPushNotifier struct {
	source calendar.Source
}

func NewCalendarPushNotifier(source calendar.Source) *CalendarPushNotifier {
	return &CalendarPushNotifier{source: source}
}

func (n *CalendarPushNotifier) Notify(ctx context.Context, event Event) error {
	if event.Kind != EventBookingConfirmed {
		return nil
	}
	if event.Teacher == nil || !event.Teacher.CalendarLinked() {
		return nil
	}

	summary := "Lesson"
	if event.Student != nil {
		summary = fmt.Sprintf("Lesson with %s", event.Student.DisplayName)
	}

	return n.source.CreateEvent(ctx, event.Teacher.CalendarID, calendar.Event{
		Summary:     summary,
		Description: fmt.Sprintf("Booking #%d (%s)", event.Booking.ID, event.Booking.TicketType),
		Start:       event.Booking.StartTime,
		End:         event.Booking.EndTime,
	}, calendar.Credentials{
		AccessToken:  *event.Teacher.AccessToken,
		RefreshToken: *event.Teacher.RefreshToken,
	})
}
