package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/store"
)

func setupTestFanOut(t *testing.T) (*FanOutEngine, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewFanOutEngine(store.NewRedisFromClient(client), logger), client
}

func queuedJobs(t *testing.T, client *redis.Client) []CountryJob {
	t.Helper()
	members, err := client.ZRange(context.Background(), CountryQueueKey, 0, -1).Result()
	if err != nil {
		t.Fatalf("reading queue: %v", err)
	}
	jobs := make([]CountryJob, 0, len(members))
	for _, m := range members {
		var job CountryJob
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			t.Fatalf("decoding job: %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func TestFanOut_QueuesOneJobPerCountry(t *testing.T) {
	f, client := setupTestFanOut(t)
	ctx := context.Background()

	run := &domain.Run{ID: "run-1", Countries: []string{"ZA", "BE", "MY"}, Window: domain.WeeklyWindow(time.Now())}
	n, err := f.FanOut(ctx, run)
	if err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 jobs, got %d", n)
	}

	depth, err := f.QueueDepth(ctx)
	if err != nil || depth != 3 {
		t.Errorf("expected queue depth 3, got %d (%v)", depth, err)
	}

	seen := map[string]bool{}
	for _, job := range queuedJobs(t, client) {
		if job.RunID != "run-1" || job.Attempt != 1 || job.MaxAttempts != DefaultMaxAttempts {
			t.Errorf("unexpected job: %+v", job)
		}
		seen[job.Country] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected a job per country, got %v", seen)
	}
}

func TestFanOut_SubsetOfCountries(t *testing.T) {
	f, client := setupTestFanOut(t)

	run := &domain.Run{ID: "run-1", Countries: []string{"ZA", "BE"}}
	if _, err := f.FanOut(context.Background(), run, "BE"); err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}

	jobs := queuedJobs(t, client)
	if len(jobs) != 1 || jobs[0].Country != "BE" {
		t.Errorf("expected only BE queued, got %+v", jobs)
	}
}

func TestFanOut_NoCountries(t *testing.T) {
	f, _ := setupTestFanOut(t)

	n, err := f.FanOut(context.Background(), &domain.Run{ID: "run-1"})
	if err != nil || n != 0 {
		t.Errorf("expected nothing queued, got %d (%v)", n, err)
	}
}

func TestRetry_DelaysNextAttempt(t *testing.T) {
	f, client := setupTestFanOut(t)
	ctx := context.Background()

	before := time.Now()
	if err := f.Retry(ctx, CountryJob{RunID: "run-1", Country: "ZA", Attempt: 1, MaxAttempts: 3}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	zs, err := client.ZRangeWithScores(ctx, CountryQueueKey, 0, -1).Result()
	if err != nil || len(zs) != 1 {
		t.Fatalf("expected one queued job, got %d (%v)", len(zs), err)
	}
	// Scores have microsecond resolution.
	earliest := before.Truncate(time.Microsecond).Add(RetryDelay(1))
	readyAt := time.UnixMicro(int64(zs[0].Score))
	if readyAt.Before(earliest) {
		t.Errorf("expected job ready no earlier than %v, got %v", earliest, readyAt)
	}
	if jobs := queuedJobs(t, client); jobs[0].Attempt != 2 {
		t.Errorf("expected attempt 2, got %d", jobs[0].Attempt)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{6, 10 * time.Minute},
		{20, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}
