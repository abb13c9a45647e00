package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/config"
	"github.com/MAshrafM/FinStat-sub000/internal/portfolio"
)

// ledgerVersionKey counts ledger mutations. The portfolio snapshot cache is
// keyed by this version, so any create/update/delete invalidates it.
const ledgerVersionKey = "ledger:version"

// Client wraps Redis with the service's caching operations: the market
// price cache and the computed-portfolio snapshot cache.
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Market price caching

// SetPrice caches the latest price for a stock code with TTL.
func (c *Client) SetPrice(ctx context.Context, stockCode string, price decimal.Decimal, ttl time.Duration) error {
	key := fmt.Sprintf("quote:%s:price", stockCode)
	return c.rdb.Set(ctx, key, price.String(), ttl).Err()
}

// GetPrice retrieves a cached price. A cache miss returns (zero, false).
func (c *Client) GetPrice(ctx context.Context, stockCode string) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf("quote:%s:price", stockCode)
	s, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached price for %s: %w", stockCode, err)
	}
	return price, true, nil
}

// Ledger versioning

// LedgerVersion returns the current mutation counter (0 when unset).
func (c *Client) LedgerVersion(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, ledgerVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// BumpLedgerVersion increments the mutation counter, invalidating any
// snapshot computed for the previous version.
func (c *Client) BumpLedgerVersion(ctx context.Context) error {
	return c.rdb.Incr(ctx, ledgerVersionKey).Err()
}

// Portfolio snapshot caching

// SetPortfolio caches a computed portfolio result for a ledger version.
func (c *Client) SetPortfolio(ctx context.Context, version int64, result *portfolio.Result, ttl time.Duration) error {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio result: %w", err)
	}
	key := fmt.Sprintf("portfolio:v%d", version)
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetPortfolio retrieves the cached result for a ledger version. A cache
// miss returns (nil, nil).
func (c *Client) GetPortfolio(ctx context.Context, version int64) (*portfolio.Result, error) {
	key := fmt.Sprintf("portfolio:v%d", version)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result portfolio.Result
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio result: %w", err)
	}
	return &result, nil
}
