package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, teacher_id, slot_id, ticket_type, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.TeacherID,
		booking.SlotID,
		booking.TicketType,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT id, student_id, teacher_id, slot_id, ticket_type, start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TeacherID,
		&booking.SlotID,
		&booking.TicketType,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &booking, nil
}

// CancelConfirmed условно переводит бронирование confirmed -> cancelled.
// Возвращает false если бронирование не найдено или уже отменено -
// второй конкурентный cancel становится no-op, а не двойным возвратом.
func (r *BookingRepository) CancelConfirmed(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete удаляет бронирование. Используется только как компенсация
// внутри саги, когда списание билета не удалось.
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM bookings WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	return nil
}

// GetByStudentID получает все бронирования студента
func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return r.list(ctx, `student_id`, studentID)
}

// GetByTeacherID получает все бронирования учителя
func (r *BookingRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return r.list(ctx, `teacher_id`, teacherID)
}

func (r *BookingRepository) list(ctx context.Context, column string, id int64) ([]*model.Booking, error) {
	query := fmt.Sprintf(`
		SELECT id, student_id, teacher_id, slot_id, ticket_type, start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE %s = $1
		ORDER BY start_time DESC
	`, column)

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get bookings by %s: %w", column, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		var booking model.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.StudentID,
			&booking.TeacherID,
			&booking.SlotID,
			&booking.TicketType,
			&booking.StartTime,
			&booking.EndTime,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, nil
}
