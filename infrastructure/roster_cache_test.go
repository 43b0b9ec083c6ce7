package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"socialbets/domain/testhelpers"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
			Labels:       map[string]string{"test": "socialbets-infrastructure", "cleanup": "auto"},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := ConnectRedis(ctx, fmt.Sprintf("%s:%s", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRosterCache_ReadThrough(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	membership := new(testhelpers.MockGroupMembership)
	membership.On("GetEligibleResolvers", mock.Anything, int64(42)).Return([]int64{7, 9}, nil).Once()

	cache := NewRosterCache(rdb, time.Minute)
	roster := cache.Wrap(membership)

	first, err := roster.GetEligibleResolvers(ctx, 42)
	require.NoError(t, err)
	second, err := roster.GetEligibleResolvers(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 9}, first)
	assert.Equal(t, first, second)
	membership.AssertExpectations(t)

	require.NoError(t, cache.Invalidate(ctx, 42))
	membership.On("GetEligibleResolvers", mock.Anything, int64(42)).Return([]int64{7}, nil).Once()

	third, err := roster.GetEligibleResolvers(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, third)
}

func TestRosterCache_DisabledWithoutClient(t *testing.T) {
	membership := new(testhelpers.MockGroupMembership)
	cache := NewRosterCache(nil, time.Minute)

	assert.Same(t, membership, cache.Wrap(membership))
}
