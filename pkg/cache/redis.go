// Package cache stores computed routes in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"parcel_router/pkg/routing"
)

// DefaultTTL is how long a cached route stays valid.
const DefaultTTL = 10 * time.Minute

// Key identifies a route query after normalisation. Coordinates are not part
// of the key; callers cache only queries whose endpoints are resolved names.
// Variant fingerprints the loaded network and search settings so that
// servers with different configurations never share entries.
type Key struct {
	Dataset     string
	Variant     string
	Start       string
	Goal        string
	NumPackages int
	Weights     [3]float64
}

// String renders k as a Redis key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("parcel_router:route:")
	b.WriteString(k.Dataset)
	for _, part := range []string{k.Variant, k.Start, k.Goal, strconv.Itoa(k.NumPackages)} {
		b.WriteByte(':')
		b.WriteString(part)
	}
	for _, w := range k.Weights {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	return b.String()
}

// RouteCache is a read-through cache for route results.
type RouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps client. ttl <= 0 selects DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *RouteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RouteCache{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RouteCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return New(client, ttl), nil
}

// Close closes the underlying client.
func (c *RouteCache) Close() error {
	return c.client.Close()
}

// Get returns the cached result for k, or (nil, nil) on a miss.
func (c *RouteCache) Get(ctx context.Context, k Key) (*routing.RouteResult, error) {
	val, err := c.client.Get(ctx, k.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached route: %w", err)
	}

	var res routing.RouteResult
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, fmt.Errorf("failed to decode cached route: %w", err)
	}
	return &res, nil
}

// Put stores res under k with the cache TTL.
func (c *RouteCache) Put(ctx context.Context, k Key, res *routing.RouteResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}
	if err := c.client.Set(ctx, k.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache route: %w", err)
	}
	return nil
}
