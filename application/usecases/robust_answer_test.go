package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agents-backend/application/ports"
)

type flakyAgent struct {
	failures int32
	calls    atomic.Int32
}

func (a *flakyAgent) Invoke(_ context.Context, input ports.AgentInput) (ports.AgentResult, error) {
	if a.calls.Add(1) <= a.failures {
		return ports.AgentResult{}, errors.New("provider timeout")
	}
	return ports.AgentResult{Content: "answer to " + input.Message}, nil
}

func (a *flakyAgent) Stream(_ context.Context, input ports.AgentInput) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	if a.calls.Add(1) <= a.failures {
		errCh <- errors.New("provider timeout")
	} else {
		out <- "answer to " + input.Message
	}
	close(out)
	close(errCh)
	return out, errCh
}

func fastConfig() RobustAnswerConfig {
	return RobustAnswerConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		BreakerTimeout: time.Second,
	}
}

func TestRobustAnswerRetriesTransientFailures(t *testing.T) {
	agent := &flakyAgent{failures: 2}
	uc := NewRobustAnswerUseCase(agent, fastConfig())

	answer, err := uc.Invoke(context.Background(), ports.AnswerRequest{SessionID: "s1", Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", answer)
	assert.Equal(t, int32(3), agent.calls.Load())
}

func TestRobustAnswerExhaustsRetries(t *testing.T) {
	agent := &flakyAgent{failures: 100}
	uc := NewRobustAnswerUseCase(agent, fastConfig())

	_, err := uc.Invoke(context.Background(), ports.AnswerRequest{Message: "q"})
	require.Error(t, err)
	assert.Equal(t, int32(3), agent.calls.Load(), "stops after max retries")
}

func TestRobustAnswerBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	agent := &flakyAgent{failures: 1 << 30}
	uc := NewRobustAnswerUseCase(agent, fastConfig())

	// each Invoke is one breaker execution; five failures trip it
	for i := 0; i < 5; i++ {
		_, err := uc.Invoke(context.Background(), ports.AnswerRequest{Message: "q"})
		require.Error(t, err)
	}
	callsBefore := agent.calls.Load()

	_, err := uc.Invoke(context.Background(), ports.AnswerRequest{Message: "q"})
	require.Error(t, err)
	assert.Equal(t, callsBefore, agent.calls.Load(), "open breaker short-circuits the agent")
}

func TestRobustAnswerRespectsContextCancellation(t *testing.T) {
	agent := &flakyAgent{failures: 100}
	cfg := fastConfig()
	cfg.InitialBackoff = time.Minute
	uc := NewRobustAnswerUseCase(agent, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := uc.Invoke(ctx, ports.AnswerRequest{Message: "q"})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Invoke did not return after cancellation")
	}
}

func TestRobustAnswerStreamIsNotRetried(t *testing.T) {
	agent := &flakyAgent{failures: 1}
	uc := NewRobustAnswerUseCase(agent, fastConfig())

	chunks, errCh := uc.Stream(context.Background(), ports.AnswerRequest{Message: "q"})
	for range chunks {
	}
	require.Error(t, <-errCh)
	assert.Equal(t, int32(1), agent.calls.Load(), "a failed stream must not replay")
}

func TestBasicAnswerDelegates(t *testing.T) {
	agent := &flakyAgent{}
	uc := NewBasicAnswerUseCase(agent)

	answer, err := uc.Invoke(context.Background(), ports.AnswerRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", answer)

	chunks, errCh := uc.Stream(context.Background(), ports.AnswerRequest{Message: "q"})
	var got string
	for chunk := range chunks {
		got += chunk
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "answer to q", got)
}
