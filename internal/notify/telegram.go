package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramNotifier шлёт студенту и учителю сообщение о судьбе
// бронирования. Пользователи без привязанного телеграма молча
// пропускаются.
type TelegramNotifier struct {
	bot *bot.Bot
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: b}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, event Event) error {
	studentText, teacherText := n.render(event)

	if event.Student != nil && event.Student.TelegramID != nil {
		if err := n.send(ctx, *event.Student.TelegramID, studentText); err != nil {
			return fmt.Errorf("notify student: %w", err)
		}
	}

	if event.Teacher != nil && event.Teacher.TelegramID != nil {
		if err := n.send(ctx, *event.Teacher.TelegramID, teacherText); err != nil {
			return fmt.Errorf("notify teacher: %w", err)
		}
	}

	return nil
}

func (n *TelegramNotifier) render(event Event) (studentText, teacherText string) {
	b := event.Booking
	when := b.StartTime.Format("Mon, 02 Jan 15:04 MST")

	switch event.Kind {
	case EventBookingConfirmed:
		studentText = fmt.Sprintf("✅ Your lesson on %s is confirmed.", when)
		teacherText = fmt.Sprintf("📅 New booking: %s.", when)
	case EventBookingCancelled:
		if event.Refunded {
			studentText = fmt.Sprintf("❌ Lesson on %s cancelled, ticket refunded.", when)
		} else {
			studentText = fmt.Sprintf("❌ Lesson on %s cancelled (no refund).", when)
		}
		teacherText = fmt.Sprintf("❌ Booking on %s was cancelled.", when)
	}

	return studentText, teacherText
}

func (n *TelegramNotifier) send(ctx context.Context, chatID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}
