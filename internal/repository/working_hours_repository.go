package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkingHoursRepository struct {
	pool *pgxpool.Pool
}

func NewWorkingHoursRepository(pool *pgxpool.Pool) *WorkingHoursRepository {
	return &WorkingHoursRepository{pool: pool}
}

// GetActiveByTeacher получает активные правила рабочих часов учителя
func (r *WorkingHoursRepository) GetActiveByTeacher(ctx context.Context, teacherID int64) ([]*model.WorkingHourRule, error) {
	query := `
		SELECT id, teacher_id, weekday, start_hour, start_minute, end_hour, end_minute, is_active, created_at
		FROM teacher_working_hours
		WHERE teacher_id = $1 AND is_active = true
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.pool.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get working hours: %w", err)
	}
	defer rows.Close()

	var rules []*model.WorkingHourRule
	for rows.Next() {
		var rule model.WorkingHourRule
		err := rows.Scan(
			&rule.ID,
			&rule.TeacherID,
			&rule.Weekday,
			&rule.StartHour,
			&rule.StartMinute,
			&rule.EndHour,
			&rule.EndMinute,
			&rule.IsActive,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan working hour rule: %w", err)
		}
		rules = append(rules, &rule)
	}

	return rules, nil
}

// ReplaceForTeacher заменяет весь набор правил учителя. Сохранение -
// это не патч: старые правила удаляются и вставляются новые, в одной
// транзакции, чтобы читатель никогда не увидел пустой промежуток.
func (r *WorkingHoursRepository) ReplaceForTeacher(ctx context.Context, teacherID int64, rules []*model.WorkingHourRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM teacher_working_hours WHERE teacher_id = $1`, teacherID)
	if err != nil {
		return fmt.Errorf("delete working hours: %w", err)
	}

	insertQuery := `
		INSERT INTO teacher_working_hours (teacher_id, weekday, start_hour, start_minute, end_hour, end_minute, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	for _, rule := range rules {
		err := tx.QueryRow(
			ctx, insertQuery,
			teacherID,
			rule.Weekday,
			rule.StartHour,
			rule.StartMinute,
			rule.EndHour,
			rule.EndMinute,
			rule.IsActive,
		).Scan(&rule.ID, &rule.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert working hour rule: %w", err)
		}
		rule.TeacherID = teacherID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
