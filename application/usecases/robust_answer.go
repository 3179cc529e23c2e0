package usecases

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"agents-backend/application/ports"
)

// RobustAnswerConfig tunes the retry and circuit-breaker behavior.
type RobustAnswerConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	BreakerTimeout time.Duration
}

// RobustAnswerUseCase wraps an agent with retries and a circuit breaker
// so transient provider failures don't surface to callers and sustained
// outages fail fast.
type RobustAnswerUseCase struct {
	agent   ports.AgentEngine
	config  RobustAnswerConfig
	breaker *gobreaker.CircuitBreaker
}

var _ ports.AnswerCapable = (*RobustAnswerUseCase)(nil)

// NewRobustAnswerUseCase creates the use case around one agent.
func NewRobustAnswerUseCase(agent ports.AgentEngine, config RobustAnswerConfig) *RobustAnswerUseCase {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 200 * time.Millisecond
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "robust-answer",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RobustAnswerUseCase{agent: agent, config: config, breaker: breaker}
}

// Invoke answers one request, retrying with exponential backoff inside
// the circuit breaker.
func (uc *RobustAnswerUseCase) Invoke(ctx context.Context, req ports.AnswerRequest) (string, error) {
	input := ports.AgentInput{SessionID: req.SessionID, Message: req.Message}

	answer, err := uc.breaker.Execute(func() (any, error) {
		var lastErr error
		backoff := uc.config.InitialBackoff
		for attempt := 0; attempt < uc.config.MaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
			}

			result, err := uc.agent.Invoke(ctx, input)
			if err == nil {
				return result.Content, nil
			}
			lastErr = err
		}
		return nil, lastErr
	})
	if err != nil {
		return "", err
	}
	return answer.(string), nil
}

// Stream answers one request as a chunk stream. The stream passes through
// the circuit breaker but is not retried: a half-delivered answer cannot
// be transparently replayed.
func (uc *RobustAnswerUseCase) Stream(ctx context.Context, req ports.AnswerRequest) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		_, err := uc.breaker.Execute(func() (any, error) {
			chunks, agentErr := uc.agent.Stream(ctx, ports.AgentInput{
				SessionID: req.SessionID,
				Message:   req.Message,
			})
			for chunk := range chunks {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return nil, <-agentErr
		})
		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
