package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gad-esmeraldas/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Redis struct {
	Client *redis.Client
	tracer trace.Tracer
}

func NewRedis(ctx context.Context) (*Redis, error) {
	redisURL := config.GetEnv("REDIS_URL", "redis://localhost:6379")

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opt.Addr)

	r := &Redis{Client: client}

	// Only initialize tracer if telemetry is enabled
	if config.GetBoolEnv("ENABLE_TELEMETRY", false) {
		r.tracer = otel.Tracer("redis-client")
	}

	return r, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.Client.Ping(ctx).Err()
}

// startSpan opens a span for a Redis operation when tracing is enabled.
// The returned finish func records err on the span and ends it.
func (r *Redis) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if r.tracer == nil {
		return ctx, func(error) {}
	}

	attrs = append(attrs, attribute.String("redis.operation", operation))
	ctx, span := r.tracer.Start(ctx, "redis."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil && err != redis.Nil {
			span.RecordError(err)
		}
		span.End()
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	ctx, finish := r.startSpan(ctx, "del", attribute.StringSlice("redis.keys", keys))
	err := r.Client.Del(ctx, keys...).Err()
	finish(err)
	return err
}

// HGetJSON reads one field of a hash and unmarshals it into dest.
// A missing key or field returns redis.Nil.
func (r *Redis) HGetJSON(ctx context.Context, key, field string, dest interface{}) error {
	ctx, finish := r.startSpan(ctx, "hget", attribute.String("redis.key", key), attribute.String("redis.field", field))
	raw, err := r.Client.HGet(ctx, key, field).Result()
	finish(err)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// HSetJSON stores value as JSON in one hash field and refreshes the expiration of the whole hash
func (r *Redis) HSetJSON(ctx context.Context, key, field string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	ctx, finish := r.startSpan(ctx, "hset", attribute.String("redis.key", key), attribute.Int("redis.data_size", len(data)))
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, expiration)
	_, err = pipe.Exec(ctx)
	finish(err)
	return err
}
