package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-stagepass/internal/platform"
)

// Probe implements Checker against the service's real dependencies. A nil
// Redis client is treated as healthy since the cache is optional.
type Probe struct {
	Redis    *redis.Client
	Platform platform.Client
}

func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

func (p Probe) PingPlatform(ctx context.Context, timeout time.Duration) error {
	if p.Platform == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := p.Platform.GetSystemSettings(ctx)
	return err
}
