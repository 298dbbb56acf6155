package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// GetBalance получает баланс билетов пользователя по типу.
// Отсутствующая строка равносильна нулевому балансу.
func (r *TicketRepository) GetBalance(ctx context.Context, userID int64, ticketType string) (*model.TicketBalance, error) {
	query := `
		SELECT user_id, ticket_type, remaining_tickets, updated_at
		FROM user_tickets
		WHERE user_id = $1 AND ticket_type = $2
	`

	var balance model.TicketBalance
	err := r.pool.QueryRow(ctx, query, userID, ticketType).Scan(
		&balance.UserID,
		&balance.TicketType,
		&balance.RemainingTickets,
		&balance.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket balance: %w", err)
	}

	return &balance, nil
}

// Debit условно списывает один билет. Условие remaining_tickets > 0
// перепроверяется самим UPDATE на момент записи, а не более ранним
// чтением - два конкурентных списания против баланса 1 дадут ровно
// одно успешное. Возвращает false если билетов не хватило.
func (r *TicketRepository) Debit(ctx context.Context, userID int64, ticketType string) (bool, error) {
	query := `
		UPDATE user_tickets
		SET remaining_tickets = remaining_tickets - 1, updated_at = now()
		WHERE user_id = $1 AND ticket_type = $2 AND remaining_tickets > 0
	`

	tag, err := r.pool.Exec(ctx, query, userID, ticketType)
	if err != nil {
		return false, fmt.Errorf("debit ticket: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Credit начисляет билеты. Строка баланса создаётся при первом начислении.
func (r *TicketRepository) Credit(ctx context.Context, userID int64, ticketType string, count int) error {
	query := `
		INSERT INTO user_tickets (user_id, ticket_type, remaining_tickets)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, ticket_type)
		DO UPDATE SET remaining_tickets = user_tickets.remaining_tickets + EXCLUDED.remaining_tickets,
		              updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, userID, ticketType, count)
	if err != nil {
		return fmt.Errorf("credit tickets: %w", err)
	}

	return nil
}
