package model

import "time"

// Teacher учитель с привязкой к внешнему календарю.
// Токены выдаёт и обновляет внешний OAuth-сервис; мы их только
// используем и сбрасываем, когда календарь требует повторной привязки.
type Teacher struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Timezone     string    `json:"timezone"`    // IANA, например "Asia/Tokyo"
	CalendarID   string    `json:"calendar_id"` // "primary" если не задан
	AccessToken  *string   `json:"-"`
	RefreshToken *string   `json:"-"`
	TelegramID   *int64    `json:"telegram_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CalendarLinked проверяет что у учителя есть действующая привязка календаря
func (t *Teacher) CalendarLinked() bool {
	return t.AccessToken != nil && t.RefreshToken != nil
}
