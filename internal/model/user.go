package model

import "time"

// User минимальная запись о пользователе. Регистрация, профили и
// аутентификация живут во внешнем сервисе - здесь только то,
// что нужно бронированию и уведомлениям.
type User struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	TelegramID  *int64    `json:"telegram_id"` // указатель - может быть nil
	CreatedAt   time.Time `json:"created_at"`
}
