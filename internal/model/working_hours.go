package model

import "time"

// WorkingHourRule еженедельное правило рабочих часов учителя.
// Время локальное для таймзоны учителя: UTC-момент вычисляется
// заново для каждой конкретной даты, чтобы переход на летнее время
// не сдвигал часы по стене.
type WorkingHourRule struct {
	ID          int64     `json:"id"`
	TeacherID   int64     `json:"teacher_id"`
	Weekday     int       `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartHour   int       `json:"start_hour"`   // 0-23
	StartMinute int       `json:"start_minute"` // 0-59
	EndHour     int       `json:"end_hour"`
	EndMinute   int       `json:"end_minute"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate проверяет границы правила
func (r *WorkingHourRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return ErrInvalidWorkingHours
	}
	if r.StartHour < 0 || r.StartHour > 23 || r.EndHour < 0 || r.EndHour > 24 {
		return ErrInvalidWorkingHours
	}
	if r.StartMinute < 0 || r.StartMinute > 59 || r.EndMinute < 0 || r.EndMinute > 59 {
		return ErrInvalidWorkingHours
	}
	start := r.StartHour*60 + r.StartMinute
	end := r.EndHour*60 + r.EndMinute
	if start >= end {
		return ErrInvalidWorkingHours
	}
	return nil
}

// Instantiate превращает правило в абсолютный UTC-интервал для конкретной
// даты. date должна быть полуночью нужного дня в локации учителя.
func (r *WorkingHourRule) Instantiate(date time.Time, loc *time.Location) Interval {
	start := time.Date(date.Year(), date.Month(), date.Day(), r.StartHour, r.StartMinute, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), r.EndHour, r.EndMinute, 0, 0, loc)
	return Interval{Start: start.UTC(), End: end.UTC()}
}
