package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot открытый интервал доступности учителя в UTC.
// Создаётся пачкой при синхронизации календаря, бронирование меняет
// только IsAvailable и никогда не удаляет строку.
type AvailabilitySlot struct {
	ID          int64     `json:"id"`
	TeacherID   int64     `json:"teacher_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	SyncRunID   uuid.UUID `json:"sync_run_id"` // какой прогон синхронизации создал слот
	CreatedAt   time.Time `json:"created_at"`
}

// Interval возвращает границы слота как интервал
func (s *AvailabilitySlot) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// BookableSlot конкретное время урока, вычисленное из открытого слота.
// Не хранится в БД - пересчитывается на каждый запрос списка.
type BookableSlot struct {
	SlotID    int64     `json:"slot_id"`
	TeacherID int64     `json:"teacher_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
