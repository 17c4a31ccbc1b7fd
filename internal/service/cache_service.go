package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
)

// CacheStore abstracts the cache backend used for catalog responses.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService provides JSON read-through caching for expensive queries.
// A nil *CacheService is valid and disables caching entirely.
type CacheService struct {
	store   CacheStore
	ttl     time.Duration
	logger  *zap.Logger
	metrics *MetricsService
}

func NewCacheService(store CacheStore, ttl time.Duration, logger *zap.Logger, metrics *MetricsService) *CacheService {
	if store == nil {
		return nil
	}
	return &CacheService{
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// GetJSON fetches a cached value and unmarshals it into dest.
// Returns false on a miss or any cache failure.
func (s *CacheService) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil {
		return false
	}

	start := time.Now()
	raw, err := s.store.Get(ctx, key)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))

	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("cache entry corrupted", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores a value as JSON under key. Failures are logged, never returned.
func (s *CacheService) SetJSON(ctx context.Context, key string, value any) {
	if s == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	start := time.Now()
	if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
}

// Invalidate removes all keys matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if s == nil {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
