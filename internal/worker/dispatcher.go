package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/metrics"
)

// Dispatcher polls the Redis country queue and hands ready jobs to the pool.
// Several dispatchers may share a queue; ZREM decides which one claims a job.
type Dispatcher struct {
	redisClient  *redis.Client
	pool         *Pool
	metrics      *metrics.Metrics
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

func NewDispatcher(redisClient *redis.Client, pool *Pool, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		redisClient:  redisClient,
		pool:         pool,
		metrics:      m,
		logger:       logger,
		pollInterval: 500 * time.Millisecond,
		batchSize:    int64(pool.numWorkers),
	}
}

// Start runs the polling loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	if depth, err := d.redisClient.ZCard(ctx, engine.CountryQueueKey).Result(); err == nil {
		d.metrics.SetQueueDepth(depth)
	}

	results, err := d.redisClient.ZRangeByScoreWithScores(ctx, engine.CountryQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixMicro(), 10),
		Count: d.batchSize,
	}).Result()
	if err != nil {
		d.logger.Error("failed to poll country queue", "error", err)
		return
	}

	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		removed, err := d.redisClient.ZRem(ctx, engine.CountryQueueKey, member).Result()
		if err != nil {
			d.logger.Error("failed to claim job", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job engine.CountryJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("discarding malformed job", "error", err)
			continue
		}

		if !d.pool.Submit(ctx, job) {
			d.requeue(z)
			return
		}
	}
}

// requeue puts a claimed job back with its original score after shutdown
// interrupted the hand-off.
func (d *Dispatcher) requeue(z redis.Z) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.redisClient.ZAdd(ctx, engine.CountryQueueKey, z).Err(); err != nil {
		d.logger.Error("failed to requeue job", "error", err)
	}
}
