package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// captureWriter records the response while passing it through.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for a repeated Idempotency-Key.
// Scanner devices resend taps on flaky Wi-Fi; with a key, the retry gets
// the original outcome instead of a duplicate-event rejection. Without
// Redis the middleware is a pass-through.
func Idempotency(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to mutating methods.
			if redisClient == nil || (r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := "idempotency:" + key

			cached, err := getCachedResponse(ctx, redisClient, cacheKey)
			if err != nil && err != redis.Nil {
				// Redis error - proceed without idempotency.
				next.ServeHTTP(w, r)
				return
			}

			if cached != nil {
				for k, vals := range cached.Headers {
					for _, v := range vals {
						w.Header().Add(k, v)
					}
				}
				w.WriteHeader(cached.StatusCode)
				w.Write(cached.Body)
				return
			}

			wrapped := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(wrapped, r)

			// Cache everything except server errors so those can retry.
			if wrapped.statusCode >= 200 && wrapped.statusCode < 500 {
				headers := make(http.Header)
				if ct := wrapped.Header().Get("Content-Type"); ct != "" {
					headers.Set("Content-Type", ct)
				}
				response := cachedResponse{
					StatusCode: wrapped.statusCode,
					Body:       wrapped.body.Bytes(),
					Headers:    headers,
				}
				_ = setCachedResponse(ctx, redisClient, cacheKey, &response, idempotencyTTL)
			}
		})
	}
}

func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}
