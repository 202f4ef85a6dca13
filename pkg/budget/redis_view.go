package budget

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisView mirrors a Governor's counters into Redis for cross-process
// dashboards. It is a read-side supplement only: the Governor in this
// process remains the sole writer of budget decisions, and RedisView never
// feeds back into Record's limit checks.
type RedisView struct {
	client *redis.Client
	keyFn  func(runID string, dimension Dimension) string
}

// NewRedisView creates a view publisher against an existing Redis client.
func NewRedisView(client *redis.Client) *RedisView {
	return &RedisView{
		client: client,
		keyFn: func(runID string, dimension Dimension) string {
			return fmt.Sprintf("governance:budget:%s:%s", runID, dimension)
		},
	}
}

// Publish writes the governor's current snapshot to Redis under runID.
func (v *RedisView) Publish(ctx context.Context, runID string, g *Governor) error {
	snapshot := g.Snapshot()
	pipe := v.client.Pipeline()
	for dim, val := range snapshot {
		pipe.Set(ctx, v.keyFn(runID, dim), strconv.FormatInt(val, 10), 0)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("budget: publish snapshot to redis: %w", err)
	}
	return nil
}

// Read retrieves a single dimension's last-published value for a run.
func (v *RedisView) Read(ctx context.Context, runID string, dimension Dimension) (int64, error) {
	s, err := v.client.Get(ctx, v.keyFn(runID, dimension)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("budget: read %s/%s from redis: %w", runID, dimension, err)
	}
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget: parse redis value: %w", err)
	}
	return val, nil
}
