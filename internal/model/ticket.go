package model

import "time"

// Известные типы билетов. Баланс хранится по произвольной строке -
// новый тариф не требует миграции.
const (
	TicketTypeOnlineTrial = "online_trial"
	TicketTypeOnline      = "online"
	TicketTypeInPerson    = "in_person"
	TicketTypePremium     = "premium"
)

// TicketBalance баланс предоплаченных билетов, одна строка на
// пару (пользователь, тип билета). Инвариант: RemainingTickets >= 0,
// списание выполняется условным UPDATE прямо в хранилище.
type TicketBalance struct {
	UserID           int64     `json:"user_id"`
	TicketType       string    `json:"ticket_type"`
	RemainingTickets int       `json:"remaining_tickets"`
	UpdatedAt        time.Time `json:"updated_at"`
}
