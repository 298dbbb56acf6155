package model

import (
	"sort"
	"time"
)

// Interval полуоткрытый интервал времени [Start, End).
// Значение считается валидным только если Start < End.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid проверяет что интервал непустой
func (i Interval) IsValid() bool {
	return i.Start.Before(i.End)
}

// Duration возвращает длительность интервала
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps проверяет пересекаются ли два интервала
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains проверяет лежит ли момент времени внутри интервала
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Clip обрезает интервал границами base. Если пересечения нет,
// возвращается пустой интервал (IsValid() == false).
func (i Interval) Clip(base Interval) Interval {
	clipped := i
	if clipped.Start.Before(base.Start) {
		clipped.Start = base.Start
	}
	if clipped.End.After(base.End) {
		clipped.End = base.End
	}
	return clipped
}

// Subtract вычитает занятые интервалы из базового и возвращает
// максимальные свободные подынтервалы, отсортированные по началу.
// Занятые интервалы могут приходить неотсортированными и пересекаться
// между собой - результат всё равно дизъюнктный.
func Subtract(base Interval, busy []Interval) []Interval {
	if !base.IsValid() {
		return nil
	}

	// Сортируем копию, чтобы не трогать входной срез
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Start.Before(sorted[b].Start)
	})

	var free []Interval
	cursor := base.Start

	for _, b := range sorted {
		b = b.Clip(base)
		// Обрезка интервала вне base даёт пустой результат
		if !b.IsValid() {
			continue
		}
		// Интервал целиком позади курсора - дубликат или вложенный, пропускаем
		if !b.End.After(cursor) {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if cursor.Before(base.End) {
		free = append(free, Interval{Start: cursor, End: base.End})
	}

	return free
}

// Merge объединяет пересекающиеся и смежные интервалы в минимальный
// дизъюнктный набор, отсортированный по началу.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsValid() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Start.Before(sorted[b].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	return merged
}

// Chunk нарезает интервал на уроки фиксированной длительности.
// Старт кандидата двигается с шагом step, урок попадает в результат
// пока целиком помещается в интервал. step может быть меньше duration -
// тогда кандидаты пересекаются.
func (i Interval) Chunk(duration, step time.Duration) []Interval {
	if duration <= 0 || step <= 0 {
		return nil
	}

	var chunks []Interval
	for t := i.Start; !t.Add(duration).After(i.End); t = t.Add(step) {
		chunks = append(chunks, Interval{Start: t, End: t.Add(duration)})
	}
	return chunks
}
