package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Ulule adapts a ulule/limiter instance to Limiter.
type Ulule struct {
	L *limiter.Limiter
}

// NewRedis builds a limiter for a formatted rate such as "120-M" backed by Redis.
func NewRedis(client redis.UniversalClient, prefix, formatted string) (Ulule, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return Ulule{}, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	if prefix == "" {
		prefix = "laundry:ratelimit"
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return Ulule{}, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return Ulule{L: limiter.New(store, rate)}, nil
}

// NewMemory builds an in-process limiter, used by tests and single-node setups.
func NewMemory(formatted string) (Ulule, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return Ulule{}, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	return Ulule{L: limiter.New(memory.NewStore(), rate)}, nil
}

// Allow implements Limiter.
func (u Ulule) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := u.L.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     res.Limit,
		Remaining: res.Remaining,
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}
