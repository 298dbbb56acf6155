package model

import "errors"

// Типизированные ошибки домена. Вызывающий код различает их через
// errors.Is и сам решает - ретраить, показывать пользователю или падать.
var (
	// ErrSlotNotFound слот не существует
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotUnavailable слот уже занят (проигран конкурентный захват)
	ErrSlotUnavailable = errors.New("slot is not available")
	// ErrInsufficientTickets у студента нет билетов этого типа
	ErrInsufficientTickets = errors.New("insufficient tickets")
	// ErrBookingNotFound бронирование не существует или уже отменено
	ErrBookingNotFound = errors.New("booking not found")
	// ErrRefundNotAllowed возврат запрошен позже чем за 24 часа до урока
	ErrRefundNotAllowed = errors.New("refund window closed")
	// ErrNoWorkingHours у учителя не настроены рабочие часы
	ErrNoWorkingHours = errors.New("no working hours set")
	// ErrInvalidWorkingHours правило рабочих часов некорректно
	ErrInvalidWorkingHours = errors.New("invalid working hours rule")
	// ErrSourceUnavailable календарь временно недоступен, можно повторить позже
	ErrSourceUnavailable = errors.New("busy source unavailable")
	// ErrReauthRequired токены календаря невалидны, нужна повторная привязка
	ErrReauthRequired = errors.New("calendar reauthorization required")
	// ErrTeacherNotFound учитель не существует
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrCalendarNotLinked у учителя не привязан календарь
	ErrCalendarNotLinked = errors.New("calendar is not linked")
)
