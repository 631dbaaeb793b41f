package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPinger reports redis reachability for the readiness endpoint.
type RedisPinger struct {
	client *redis.Client
}

func NewRedisPinger(address, password string, db int) *RedisPinger {
	return &RedisPinger{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func (p *RedisPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (p *RedisPinger) Close() error {
	return p.client.Close()
}
