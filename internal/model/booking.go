package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
)

// RefundCutoff за сколько до начала урока ещё возможен возврат билета
const RefundCutoff = 24 * time.Hour

type Booking struct {
	ID         int64         `json:"id"`
	StudentID  int64         `json:"student_id"`
	TeacherID  int64         `json:"teacher_id"`
	SlotID     int64         `json:"slot_id"`
	TicketType string        `json:"ticket_type"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Student *User    `json:"student,omitempty"`
	Teacher *Teacher `json:"teacher,omitempty"`
}

// RefundEligible проверяет политику возврата: билет возвращается
// только если до начала урока осталось не меньше RefundCutoff.
func (b *Booking) RefundEligible(now time.Time) bool {
	return !now.After(b.StartTime.Add(-RefundCutoff))
}
