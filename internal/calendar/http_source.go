package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// HTTPSource клиент freebusy-прокси календарного провайдера.
// Конкретный вендорский API спрятан за прокси, здесь только общий
// контракт: окно времени на входе, занятые интервалы на выходе.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewHTTPSource(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

type freeBusyRequest struct {
	CalendarID string    `json:"calendar_id"`
	TimeMin    time.Time `json:"time_min"`
	TimeMax    time.Time `json:"time_max"`
}

type freeBusyResponse struct {
	Busy []struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"busy"`
}

type createEventRequest struct {
	CalendarID  string    `json:"calendar_id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// BusyIntervals запрашивает занятость с ограниченным ретраем.
// Невалидные токены не ретраятся - это постоянная ошибка до перепривязки.
func (s *HTTPSource) BusyIntervals(ctx context.Context, calendarID string, from, to time.Time, creds Credentials) ([]model.Interval, error) {
	payload, err := json.Marshal(freeBusyRequest{
		CalendarID: calendarID,
		TimeMin:    from.UTC(),
		TimeMax:    to.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal freebusy request: %w", err)
	}

	var intervals []model.Interval

	// Ограниченный fibonacci backoff на временные сбои
	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(500*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := s.post(ctx, "/v1/freebusy", payload, creds)
		if err != nil {
			return err
		}

		var parsed freeBusyResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode freebusy response: %w", err)
		}

		intervals = intervals[:0]
		for _, b := range parsed.Busy {
			iv := model.Interval{Start: b.Start.UTC(), End: b.End.UTC()}
			if iv.IsValid() {
				intervals = append(intervals, iv)
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return intervals, nil
}

// CreateEvent пушит событие в календарь. Один запрос, без ретраев -
// вызывающая сторона и так считает доставку best-effort.
func (s *HTTPSource) CreateEvent(ctx context.Context, calendarID string, event Event, creds Credentials) error {
	payload, err := json.Marshal(createEventRequest{
		CalendarID:  calendarID,
		Summary:     event.Summary,
		Description: event.Description,
		Start:       event.Start.UTC(),
		End:         event.End.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event request: %w", err)
	}

	_, err = s.post(ctx, "/v1/events", payload, creds)
	return err
}

// post выполняет один запрос и классифицирует результат:
// 401/403 - постоянная ошибка авторизации, 5xx и сетевые ошибки -
// временные (помечаются retryable).
func (s *HTTPSource) post(ctx context.Context, path string, payload []byte, creds Credentials) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("X-Refresh-Token", creds.RefreshToken)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Calendar request failed", zap.String("path", path), zap.Error(err))
		return nil, retry.RetryableError(model.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(model.ErrSourceUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, model.ErrReauthRequired
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		s.logger.Warn("Calendar returned retryable status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, retry.RetryableError(model.ErrSourceUnavailable)
	default:
		return nil, fmt.Errorf("calendar returned status %d: %w", resp.StatusCode, model.ErrSourceUnavailable)
	}
}
