package journey

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjection(t *testing.T, repo Repository) (*ActiveProjection, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewActiveProjection(repo, client, 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestProjectionCachesActiveJourneys(t *testing.T) {
	repo := newMemRepository()
	svc := newTestService(repo)
	checkIn(t, svc, "p-1")

	projection, mr := newTestProjection(t, repo)

	journeys, err := projection.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.True(t, mr.Exists(activeProjectionKey))

	// A second read inside the TTL window is served from the cache even if
	// storage changed underneath; the staleness bound is the TTL.
	checkIn(t, svc, "p-2")
	journeys, err = projection.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 1)
}

func TestProjectionInvalidateDropsSnapshot(t *testing.T) {
	repo := newMemRepository()
	svc := newTestService(repo)
	checkIn(t, svc, "p-1")

	projection, mr := newTestProjection(t, repo)
	_, err := projection.ListActive(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(activeProjectionKey))

	projection.Invalidate(context.Background())
	assert.False(t, mr.Exists(activeProjectionKey))

	checkIn(t, svc, "p-2")
	journeys, err := projection.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 2)
}

func TestProjectionExpiresWithTTL(t *testing.T) {
	repo := newMemRepository()
	svc := newTestService(repo)
	checkIn(t, svc, "p-1")

	projection, mr := newTestProjection(t, repo)
	_, err := projection.ListActive(context.Background())
	require.NoError(t, err)

	checkIn(t, svc, "p-2")
	mr.FastForward(3 * time.Second)

	journeys, err := projection.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 2)
}

func TestProjectionWorksWithoutRedis(t *testing.T) {
	repo := newMemRepository()
	svc := newTestService(repo)
	checkIn(t, svc, "p-1")

	projection := NewActiveProjection(repo, nil, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	journeys, err := projection.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 1)
}
