package cache

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dashboard cache keys.
const (
	DriverCountKey    = "dashboard:driver_count"
	PassengerCountKey = "dashboard:passenger_count"
	OverviewKey       = "dashboard:overview"
	QueueKeyFmt       = "queue:barangay:"
)

var client *redis.Client

// Init initializes the Redis connection. Failure is not fatal; every
// helper in this package degrades to a no-op when the client is nil.
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client, or nil when Redis is unavailable.
func GetClient() *redis.Client {
	return client
}

// GetCached returns cached data for a key.
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL.
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys.
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a glob pattern.
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateDashboardCaches clears the counter and overview caches.
// Called after driver/passenger writes and after queue events.
func InvalidateDashboardCaches(ctx context.Context) {
	InvalidateKeys(ctx, DriverCountKey, PassengerCountKey, OverviewKey)
	InvalidatePattern(ctx, QueueKeyFmt+"*")
}

// InvalidateDriverCaches clears driver list caches.
// Called when: RegisterDriver, UpdateDriver, DeleteDriver.
func InvalidateDriverCaches(ctx context.Context) {
	InvalidatePattern(ctx, "drivers:*")
	InvalidateDashboardCaches(ctx)
}

// InvalidatePassengerCaches clears passenger list caches.
func InvalidatePassengerCaches(ctx context.Context) {
	InvalidatePattern(ctx, "passengers:*")
	InvalidateKeys(ctx, PassengerCountKey, OverviewKey)
}

// IsHealthy returns true if the Redis connection is working.
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
