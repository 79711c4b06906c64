package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker guards each upstream data source (sam, mcb, warehouse)
// with a breaker whose state lives in a Redis hash, so every worker and the
// dashboard see the same state.
//
// - Closed: fetches run and failures are counted.
// - Open: fetches are skipped until the cooldown has elapsed.
// - Half-Open: a probe fetch runs. Success closes, failure re-opens.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	onChange         func(source, state string)
}

// BreakerState is the snapshot of one source's circuit.
type BreakerState struct {
	Source       string `json:"source"`
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 3,
		cooldownPeriod:   time.Minute,
	}
}

// OnStateChange registers a callback invoked after every transition.
func (cb *CircuitBreaker) OnStateChange(fn func(source, state string)) {
	cb.onChange = fn
}

func cbKey(source string) string {
	return fmt.Sprintf("cb:source:%s", source)
}

func (cb *CircuitBreaker) transition(ctx context.Context, source, state string) {
	cb.redisClient.HSet(ctx, cbKey(source), "state", state)
	if cb.onChange != nil {
		cb.onChange(source, state)
	}
}

func (cb *CircuitBreaker) cooledDown(lastFailedAt int64) bool {
	return time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds())
}

// Allow reports whether a fetch from the source may run, and the state it
// runs under.
func (cb *CircuitBreaker) Allow(ctx context.Context, source string) (string, bool) {
	data, err := cb.redisClient.HGetAll(ctx, cbKey(source)).Result()
	if err != nil {
		cb.logger.Warn("circuit breaker state unavailable", "source", source, "error", err)
		return StateClosed, true
	}

	switch data["state"] {
	case StateOpen:
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if !cb.cooledDown(lastFailedAt) {
			return StateOpen, false
		}
		cb.transition(ctx, source, StateHalfOpen)
		cb.logger.Info("circuit breaker half-open", "source", source)
		return StateHalfOpen, true
	case StateHalfOpen:
		return StateHalfOpen, true
	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the source's circuit and clears its failures.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, source string) {
	key := cbKey(source)
	prev, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	cb.redisClient.HSet(ctx, key, "failures", 0)
	if prev != StateClosed {
		cb.transition(ctx, source, StateClosed)
	}
	if prev == StateHalfOpen {
		cb.logger.Info("circuit breaker closed", "source", source)
	}
}

// RecordFailure counts a failed fetch and opens the circuit once the
// threshold is reached, or immediately when a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, source string) {
	key := cbKey(source)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record circuit breaker failure", "source", source, "error", err)
		return
	}
	cb.redisClient.HSet(ctx, key, "last_failed_at", time.Now().Unix())

	prev, _ := cb.redisClient.HGet(ctx, key, "state").Result()
	switch {
	case prev == StateHalfOpen:
		cb.transition(ctx, source, StateOpen)
		cb.logger.Warn("circuit breaker re-opened", "source", source)
	case prev != StateOpen && failures >= int64(cb.failureThreshold):
		cb.transition(ctx, source, StateOpen)
		cb.logger.Warn("circuit breaker opened",
			"source", source,
			"failures", failures,
			"threshold", cb.failureThreshold,
		)
	case prev == "":
		cb.transition(ctx, source, StateClosed)
	}
}

// State returns the current snapshot for a source. An open circuit past its
// cooldown reports half-open.
func (cb *CircuitBreaker) State(ctx context.Context, source string) BreakerState {
	result := BreakerState{Source: source, State: StateClosed}

	data, err := cb.redisClient.HGetAll(ctx, cbKey(source)).Result()
	if err != nil || len(data) == 0 {
		return result
	}

	result.Failures, _ = strconv.Atoi(data["failures"])
	if data["state"] != "" {
		result.State = data["state"]
	}

	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
	if result.State == StateOpen && cb.cooledDown(lastFailedAt) {
		result.State = StateHalfOpen
	}
	if lastFailedAt > 0 {
		result.LastFailedAt = time.Unix(lastFailedAt, 0).UTC().Format(time.RFC3339)
	}
	return result
}

// States returns snapshots for several sources, in the given order.
func (cb *CircuitBreaker) States(ctx context.Context, sources []string) []BreakerState {
	out := make([]BreakerState, 0, len(sources))
	for _, s := range sources {
		out = append(out, cb.State(ctx, s))
	}
	return out
}
