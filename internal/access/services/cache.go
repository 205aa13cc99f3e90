package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gad-esmeraldas/pkg/database"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DecisionCache stores permission decisions per (user, department). A nil
// DecisionCache disables caching.
type DecisionCache interface {
	Get(ctx context.Context, userID, departmentID primitive.ObjectID, field string) (*Decision, bool)
	Set(ctx context.Context, userID, departmentID primitive.ObjectID, field string, d *Decision, ttl time.Duration)
	Invalidate(ctx context.Context, userID, departmentID primitive.ObjectID)
}

// RedisDecisionCache keeps one hash per (user, department); each field is one
// permission or contract check. Invalidation drops the whole hash.
type RedisDecisionCache struct {
	redis *database.Redis
}

func NewRedisDecisionCache(r *database.Redis) *RedisDecisionCache {
	return &RedisDecisionCache{redis: r}
}

func decisionKey(userID, departmentID primitive.ObjectID) string {
	return fmt.Sprintf("access:decision:%s:%s", userID.Hex(), departmentID.Hex())
}

func (c *RedisDecisionCache) Get(ctx context.Context, userID, departmentID primitive.ObjectID, field string) (*Decision, bool) {
	var d Decision
	err := c.redis.HGetJSON(ctx, decisionKey(userID, departmentID), field, &d)
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("[Access] Decision cache read failed", "error", err)
		return nil, false
	}
	return &d, true
}

func (c *RedisDecisionCache) Set(ctx context.Context, userID, departmentID primitive.ObjectID, field string, d *Decision, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.redis.HSetJSON(ctx, decisionKey(userID, departmentID), field, d, ttl); err != nil {
		slog.Warn("[Access] Decision cache write failed", "error", err)
	}
}

func (c *RedisDecisionCache) Invalidate(ctx context.Context, userID, departmentID primitive.ObjectID) {
	if err := c.redis.Delete(ctx, decisionKey(userID, departmentID)); err != nil {
		slog.Warn("[Access] Decision cache invalidation failed",
			"user_id", userID.Hex(), "department_id", departmentID.Hex(), "error", err)
	}
}
