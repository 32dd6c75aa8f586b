// Package cache is the bounded, time-keyed SessionDay cache at the
// collaborator boundary. Reconciliation itself stays pure; this cache only
// short-circuits repeated status reads and is explicitly invalidated by the
// two mutating paths (punch, approved edit).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "punchcard/internal/platform/redis"
	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
)

// StatusCache caches reconciled SessionDay snapshots per user-day.
type StatusCache interface {
	Get(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string) (*models.SessionDay, bool)
	Set(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string, session *models.SessionDay)
	Invalidate(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string)
}

// Redis implements StatusCache on the shared Redis client. All failures
// degrade to cache misses; the cache must never fail a read path.
type Redis struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedis(client *platformredis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(userID id.UserID, companyID id.CompanyID, day string) string {
	return fmt.Sprintf("sessionday:%s:%s:%s", companyID, userID, day)
}

func (c *Redis) Get(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string) (*models.SessionDay, bool) {
	raw, err := c.client.Get(ctx, key(userID, companyID, day)).Bytes()
	if err == redis.Nil || err != nil {
		return nil, false
	}
	var session models.SessionDay
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false
	}
	return &session, true
}

func (c *Redis) Set(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string, session *models.SessionDay) {
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(userID, companyID, day), raw, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string) {
	_ = c.client.Del(ctx, key(userID, companyID, day)).Err()
}
