// Package notification delivers push notices through an external provider.
// Deliveries are fire-and-forget: the service wraps the provider in a circuit
// breaker and a short retry policy so a dead provider fails fast and never
// stalls the completion path.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domain "github.com/habitforge/habitforge/internal/domain/notification"
	"github.com/habitforge/habitforge/pkg/circuitbreaker"
	"github.com/habitforge/habitforge/pkg/logger"
	"github.com/habitforge/habitforge/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUSH PROVIDER SENDERS
// ══════════════════════════════════════════════════════════════════════════════

// HTTPPushSender delivers notices over a JSON webhook to the push provider.
type HTTPPushSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPPushSender creates an HTTP-based sender.
func NewHTTPPushSender(endpoint, apiKey string) *HTTPPushSender {
	return &HTTPPushSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Send posts the notice to the provider.
func (s *HTTPPushSender) Send(ctx context.Context, userID, title, body string) error {
	data, err := json.Marshal(pushPayload{UserID: userID, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("push request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("push provider returned %d", resp.StatusCode))
	default:
		return retry.Permanent(fmt.Errorf("push provider returned %d", resp.StatusCode))
	}
}

// LogSender logs notices instead of delivering them. Used in development and
// demo mode.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a logging sender.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Default()
	}
	return &LogSender{log: log.With(logger.Component("log_sender"))}
}

// Send logs the notice.
func (s *LogSender) Send(_ context.Context, userID, title, body string) error {
	s.log.Info("notification",
		logger.UserID(userID),
		logger.String("title", title),
		logger.String("body", body))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Service wraps a Sender with resilience. It implements the application
// layer's Notifier interface.
type Service struct {
	sender  domain.Sender
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewService creates a notification service around the given sender.
func NewService(sender domain.Sender, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("notification_service"))

	breaker := circuitbreaker.PushProviderBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("push provider circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()))
	})

	return &Service{
		sender:  sender,
		breaker: breaker,
		retrier: retry.NotifierRetrier(),
		log:     log,
	}
}

// SendToUser delivers a notice through the breaker and retry policy.
func (s *Service) SendToUser(ctx context.Context, userID, title, body string) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.sender.Send(ctx, userID, title, body)
		})
	})
}

// SendCompletionSummary builds and delivers the completion toast.
func (s *Service) SendCompletionSummary(ctx context.Context, userID string, xpEarned, streak int, perfectDay bool) error {
	return s.SendToUser(ctx, userID, "Habit completed", domain.CompletionSummary(xpEarned, streak, perfectDay))
}

// BreakerState exposes the circuit state for health reporting.
func (s *Service) BreakerState() circuitbreaker.State {
	return s.breaker.State()
}
