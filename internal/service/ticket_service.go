package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TicketService точка входа для внешнего источника платёжных событий.
// Подлинность платежа проверяет сам источник (webhook-слой) - здесь
// только начисление и чтение баланса.
type TicketService struct {
	ticketRepo TicketStore
	logger     *zap.Logger
}

func NewTicketService(ticketRepo TicketStore, logger *zap.Logger) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// Credit начисляет билеты пользователю
func (s *TicketService) Credit(ctx context.Context, userID int64, ticketType string, count int) error {
	if count <= 0 {
		return fmt.Errorf("ticket count must be positive, got %d", count)
	}

	if err := s.ticketRepo.Credit(ctx, userID, ticketType, count); err != nil {
		return err
	}

	s.logger.Info("Tickets credited",
		zap.Int64("user_id", userID),
		zap.String("ticket_type", ticketType),
		zap.Int("count", count),
	)

	return nil
}

// Balance возвращает текущий баланс билетов. Отсутствующая строка
// равносильна нулю.
func (s *TicketService) Balance(ctx context.Context, userID int64, ticketType string) (int, error) {
	balance, err := s.ticketRepo.GetBalance(ctx, userID, ticketType)
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return balance.RemainingTickets, nil
}
