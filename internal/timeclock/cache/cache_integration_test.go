//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "punchcard/internal/platform/redis"
	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	"punchcard/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	client := &platformredis.Client{Client: rc.Client}
	c := NewRedis(client, time.Minute)

	ctx := context.Background()
	userID := id.UserID(uuid.New())
	companyID := id.CompanyID(uuid.New())
	const day = "2025-03-10"

	_, ok := c.Get(ctx, userID, companyID, day)
	assert.False(t, ok, "empty cache must miss")

	openSince := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	session := &models.SessionDay{
		Status:        models.StatusWorking,
		WorkedSeconds: 4 * 3600,
		OpenSince:     &openSince,
	}
	c.Set(ctx, userID, companyID, day, session)

	got, ok := c.Get(ctx, userID, companyID, day)
	require.True(t, ok)
	assert.Equal(t, session, got)

	// Another user-day stays isolated.
	_, ok = c.Get(ctx, id.UserID(uuid.New()), companyID, day)
	assert.False(t, ok)

	c.Invalidate(ctx, userID, companyID, day)
	_, ok = c.Get(ctx, userID, companyID, day)
	assert.False(t, ok, "invalidation must evict the entry")
}
