package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// RedisStore keeps each run as a JSON value and indexes run IDs in a
// sorted set scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis. ttl <= 0 keeps runs forever.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "matcheval:runs:",
		ttl:    ttl,
	}, nil
}

func (rs *RedisStore) runKey(id string) string {
	return rs.prefix + id
}

func (rs *RedisStore) indexKey() string {
	return rs.prefix + "index"
}

// Save stores the run and prunes index entries older than the TTL.
func (rs *RedisStore) Save(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return apperrors.HistoryError("encoding run", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.runKey(run.ID), data, rs.ttl)
	pipe.ZAdd(ctx, rs.indexKey(), redis.Z{
		Score:  float64(run.CreatedAt.UnixMilli()),
		Member: run.ID,
	})
	if rs.ttl > 0 {
		minScore := time.Now().Add(-rs.ttl).UnixMilli()
		pipe.ZRemRangeByScore(ctx, rs.indexKey(), "-inf", fmt.Sprintf("(%d", minScore))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.HistoryError("saving run", err)
	}
	return nil
}

func (rs *RedisStore) Get(ctx context.Context, id string) (*Run, error) {
	data, err := rs.client.Get(ctx, rs.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFoundError(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return nil, apperrors.HistoryError("loading run", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, apperrors.HistoryError("decoding run", err)
	}
	return &run, nil
}

// List reads the newest IDs from the index and fetches them in one MGET.
// Runs whose value already expired are skipped.
func (rs *RedisStore) List(ctx context.Context, limit int) ([]*Run, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := rs.client.ZRevRange(ctx, rs.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, apperrors.HistoryError("listing runs", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rs.runKey(id)
	}
	values, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.HistoryError("loading runs", err)
	}

	runs := make([]*Run, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var run Run
		if err := json.Unmarshal([]byte(s), &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

// Delete removes a run and its index entry.
func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := rs.client.TxPipeline()
	deleted := pipe.Del(ctx, rs.runKey(id))
	pipe.ZRem(ctx, rs.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.HistoryError("deleting run", err)
	}
	if deleted.Val() == 0 {
		return apperrors.NotFoundError(fmt.Sprintf("run %s", id))
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
