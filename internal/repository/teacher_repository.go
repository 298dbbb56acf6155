package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TeacherRepository struct {
	pool *pgxpool.Pool
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

// GetByID получает учителя по ID
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	query := `
		SELECT id, user_id, display_name, timezone, calendar_id, access_token, refresh_token, telegram_id, created_at
		FROM teachers
		WHERE id = $1
	`

	var teacher model.Teacher
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&teacher.ID,
		&teacher.UserID,
		&teacher.DisplayName,
		&teacher.Timezone,
		&teacher.CalendarID,
		&teacher.AccessToken,
		&teacher.RefreshToken,
		&teacher.TelegramID,
		&teacher.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by id: %w", err)
	}

	return &teacher, nil
}

// GetByUserID получает учителя по ID пользователя
func (r *TeacherRepository) GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	query := `
		SELECT id, user_id, display_name, timezone, calendar_id, access_token, refresh_token, telegram_id, created_at
		FROM teachers
		WHERE user_id = $1
	`

	var teacher model.Teacher
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&teacher.ID,
		&teacher.UserID,
		&teacher.DisplayName,
		&teacher.Timezone,
		&teacher.CalendarID,
		&teacher.AccessToken,
		&teacher.RefreshToken,
		&teacher.TelegramID,
		&teacher.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by user id: %w", err)
	}

	return &teacher, nil
}

// GetLinked получает всех учителей с привязанным календарём
func (r *TeacherRepository) GetLinked(ctx context.Context) ([]*model.Teacher, error) {
	query := `
		SELECT id, user_id, display_name, timezone, calendar_id, access_token, refresh_token, telegram_id, created_at
		FROM teachers
		WHERE access_token IS NOT NULL AND refresh_token IS NOT NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get linked teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		var teacher model.Teacher
		err := rows.Scan(
			&teacher.ID,
			&teacher.UserID,
			&teacher.DisplayName,
			&teacher.Timezone,
			&teacher.CalendarID,
			&teacher.AccessToken,
			&teacher.RefreshToken,
			&teacher.TelegramID,
			&teacher.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, &teacher)
	}

	return teachers, nil
}

// ClearCredentials сбрасывает токены календаря. Вызывается когда провайдер
// ответил что токены невалидны - учителю придётся привязать календарь заново.
func (r *TeacherRepository) ClearCredentials(ctx context.Context, teacherID int64) error {
	query := `
		UPDATE teachers
		SET access_token = NULL, refresh_token = NULL
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, teacherID)
	if err != nil {
		return fmt.Errorf("clear teacher credentials: %w", err)
	}

	return nil
}
