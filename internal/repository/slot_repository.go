package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	query := `
		SELECT id, teacher_id, start_time, end_time, is_available, sync_run_id, created_at
		FROM availability_slots
		WHERE id = $1
	`

	var slot model.AvailabilitySlot
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsAvailable,
		&slot.SyncRunID,
		&slot.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return &slot, nil
}

// GetOpen получает открытые слоты учителя в заданном диапазоне времени
func (r *SlotRepository) GetOpen(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT id, teacher_id, start_time, end_time, is_available, sync_run_id, created_at
		FROM availability_slots
		WHERE teacher_id = $1
		  AND is_available = true
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get open slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		var slot model.AvailabilitySlot
		err := rows.Scan(
			&slot.ID,
			&slot.TeacherID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.IsAvailable,
			&slot.SyncRunID,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, nil
}

// GetBookedIntervals возвращает интервалы будущих слотов, на которые есть
// подтверждённое бронирование. Синхронизация исключает их из удаления
// и считает это время занятым, чтобы не предложить его второй раз.
func (r *SlotRepository) GetBookedIntervals(ctx context.Context, teacherID int64, from time.Time) ([]model.Interval, error) {
	query := `
		SELECT s.start_time, s.end_time
		FROM availability_slots s
		JOIN bookings b ON b.slot_id = s.id AND b.status = 'confirmed'
		WHERE s.teacher_id = $1 AND s.start_time >= $2
		ORDER BY s.start_time
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from)
	if err != nil {
		return nil, fmt.Errorf("get booked intervals: %w", err)
	}
	defer rows.Close()

	var intervals []model.Interval
	for rows.Next() {
		var iv model.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan booked interval: %w", err)
		}
		intervals = append(intervals, iv)
	}

	return intervals, nil
}

// Claim атомарно захватывает слот. Условие is_available = true проверяется
// самим UPDATE, поэтому из двух конкурентных бронирований выиграет ровно одно.
// Возвращает false если слот не существует или уже захвачен.
func (r *SlotRepository) Claim(ctx context.Context, slotID int64) (bool, error) {
	query := `
		UPDATE availability_slots
		SET is_available = false
		WHERE id = $1 AND is_available = true
	`

	tag, err := r.pool.Exec(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Release возвращает слот в открытое состояние
func (r *SlotRepository) Release(ctx context.Context, slotID int64) error {
	query := `
		UPDATE availability_slots
		SET is_available = true
		WHERE id = $1 AND is_available = false
	`

	_, err := r.pool.Exec(ctx, query, slotID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	return nil
}

// ReplaceFuture заменяет будущие слоты учителя новым набором в одной
// транзакции. Слоты с подтверждённым бронированием не удаляются - их
// время уже исключено из нового набора на этапе вычитания занятости.
// Прошлые слоты не трогаем: на них могут ссылаться завершённые уроки.
func (r *SlotRepository) ReplaceFuture(ctx context.Context, teacherID int64, from time.Time, intervals []model.Interval, runID uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := `
		DELETE FROM availability_slots s
		WHERE s.teacher_id = $1
		  AND s.start_time >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.slot_id = s.id AND b.status = 'confirmed'
		  )
	`

	_, err = tx.Exec(ctx, deleteQuery, teacherID, from)
	if err != nil {
		return 0, fmt.Errorf("delete future slots: %w", err)
	}

	insertQuery := `
		INSERT INTO availability_slots (teacher_id, start_time, end_time, is_available, sync_run_id)
		VALUES ($1, $2, $3, true, $4)
	`

	batch := &pgx.Batch{}
	for _, iv := range intervals {
		batch.Queue(insertQuery, teacherID, iv.Start, iv.End, runID)
	}

	results := tx.SendBatch(ctx, batch)
	for range intervals {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("insert slot: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(intervals), nil
}
