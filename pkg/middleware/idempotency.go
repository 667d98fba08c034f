package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore remembers successful responses per key. Reserve marks a
// key in flight so a concurrent retry cannot create a second booking.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Reserve(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Release(ctx context.Context, key string) error
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type RedisIdempotencyStore struct {
	rdb         *redis.Client
	ttl         time.Duration
	inFlightTTL time.Duration
	prefix      string
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl, inFlightTTL time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		rdb:         rdb,
		ttl:         ttl,
		inFlightTTL: inFlightTTL,
		prefix:      "cinebook:idempotency:",
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, err
	}
	return &cached, true, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+key+":lock", "1", s.inFlightTTL).Result()
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, data, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key+":lock").Err()
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	store    map[string]*CachedResponse
	inFlight map[string]struct{}
	ttl      time.Duration
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		store:    make(map[string]*CachedResponse),
		inFlight: make(map[string]struct{}),
		ttl:      ttl,
	}
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response, exists := s.store[key]
	if !exists {
		return nil, false, nil
	}
	if time.Since(response.CreatedAt) > s.ttl {
		delete(s.store, key)
		return nil, false, nil
	}
	return response, true, nil
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return false, nil
	}
	s.inFlight[key] = struct{}{}
	return true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
	return nil
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated
// Idempotency-Key. Keys are scoped to the caller and the route.
func Idempotency(store IdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(IdempotencyHeader)
			if clientKey == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := scopedIdempotencyKey(r, clientKey)
			ctx := r.Context()

			if cached, found, err := store.Get(ctx, key); err != nil {
				log.Error("Idempotency store unavailable", "request_id", RequestID(ctx), "error", err)
			} else if found {
				replayCachedResponse(w, cached)
				return
			}

			reserved, err := store.Reserve(ctx, key)
			if err != nil {
				log.Error("Idempotency reservation failed", "request_id", RequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				_ = apperrors.WriteError(w, apperrors.Conflict("A request with this Idempotency-Key is already in progress"))
				return
			}
			defer func() {
				_ = store.Release(context.WithoutCancel(ctx), key)
			}()

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			if capture.statusCode >= 200 && capture.statusCode < 300 {
				cached := &CachedResponse{
					StatusCode: capture.statusCode,
					Headers:    w.Header().Clone(),
					Body:       capture.body.Bytes(),
				}
				if err := store.Set(context.WithoutCancel(ctx), key, cached); err != nil {
					log.Error("Failed to store idempotent response", "request_id", RequestID(ctx), "error", err)
				}
			}
		})
	}
}

func scopedIdempotencyKey(r *http.Request, clientKey string) string {
	user := "anonymous"
	if identity, ok := IdentityFromContext(r.Context()); ok {
		user = identity.UserID
	}
	return user + ":" + r.URL.Path + ":" + clientKey
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
