package journey

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const activeProjectionKey = "journeys:active"

// ActiveProjection serves the staff polling view. It is a read-only
// projection over the store: a short-TTL redis cache of ListActive with
// singleflight coalescing, so a burst of polling staff clients costs one
// storage read per TTL window. Correctness never depends on the cache;
// any redis failure degrades to a direct read.
type ActiveProjection struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewActiveProjection constructs the projection.
func NewActiveProjection(repo Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ActiveProjection {
	return &ActiveProjection{repo: repo, client: client, ttl: ttl, logger: logger}
}

// ListActive returns the active journeys, served from cache when fresh.
// Every response is a full-state snapshot, never a diff; clients replace
// their view wholesale on each poll.
func (p *ActiveProjection) ListActive(ctx context.Context) ([]*Journey, error) {
	if p.client != nil {
		payload, err := p.client.Get(ctx, activeProjectionKey).Bytes()
		if err == nil {
			var journeys []*Journey
			if err := json.Unmarshal(payload, &journeys); err == nil {
				return journeys, nil
			}
			p.logger.Warn("active projection cache corrupt, refreshing")
		} else if err != redis.Nil {
			p.logger.Warn("active projection cache read failed", slog.Any("error", err))
		}
	}

	result, err, _ := p.group.Do(activeProjectionKey, func() (any, error) {
		journeys, err := p.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		p.fill(ctx, journeys)
		return journeys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Journey), nil
}

// Invalidate drops the cached snapshot after a mutation. Staff clients see
// the change on their next poll at the latest.
func (p *ActiveProjection) Invalidate(ctx context.Context) {
	if p.client == nil {
		return
	}
	if err := p.client.Del(ctx, activeProjectionKey).Err(); err != nil {
		p.logger.Warn("active projection invalidate failed", slog.Any("error", err))
	}
}

func (p *ActiveProjection) fill(ctx context.Context, journeys []*Journey) {
	if p.client == nil {
		return
	}
	payload, err := json.Marshal(journeys)
	if err != nil {
		return
	}
	if err := p.client.Set(ctx, activeProjectionKey, payload, p.ttl).Err(); err != nil {
		p.logger.Warn("active projection cache write failed", slog.Any("error", err))
	}
}
