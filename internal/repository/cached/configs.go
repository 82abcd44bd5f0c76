// Package cached wraps the tracking configuration repository with a Redis
// read-through cache. Configuration changes rarely and is read on every
// page mount.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/pkg/logger"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

const (
	DefaultTTL = 60 * time.Second

	keyPixels   = "tracking:config:pixels"
	keyScripts  = "tracking:config:scripts"
	keySettings = "tracking:config:conversion_settings"
)

var clog = logger.Component("config-cache")

// ConfigRepo caches the three configuration reads. A Redis failure is
// logged and falls through to the wrapped repository.
type ConfigRepo struct {
	next tracking.ConfigRepository
	rdb  *redis.Client
	ttl  time.Duration
}

var _ tracking.ConfigRepository = (*ConfigRepo)(nil)

// NewConfigRepo wraps next. A non-positive ttl uses DefaultTTL.
func NewConfigRepo(next tracking.ConfigRepository, rdb *redis.Client, ttl time.Duration) *ConfigRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConfigRepo{next: next, rdb: rdb, ttl: ttl}
}

func (r *ConfigRepo) EnabledPixels(ctx context.Context) ([]domain.IntegrationConfig, error) {
	var out []domain.IntegrationConfig
	err := readThrough(ctx, r, keyPixels, &out, func() (interface{}, error) {
		return r.next.EnabledPixels(ctx)
	})
	return out, err
}

func (r *ConfigRepo) EnabledMarketingScripts(ctx context.Context) ([]domain.MarketingScript, error) {
	var out []domain.MarketingScript
	err := readThrough(ctx, r, keyScripts, &out, func() (interface{}, error) {
		return r.next.EnabledMarketingScripts(ctx)
	})
	return out, err
}

func (r *ConfigRepo) ConversionSettings(ctx context.Context) (*domain.ConversionSettings, error) {
	var out *domain.ConversionSettings
	err := readThrough(ctx, r, keySettings, &out, func() (interface{}, error) {
		return r.next.ConversionSettings(ctx)
	})
	return out, err
}

// Invalidate drops every cached configuration read.
func (r *ConfigRepo) Invalidate(ctx context.Context) error {
	if err := r.rdb.Del(ctx, keyPixels, keyScripts, keySettings).Err(); err != nil {
		return fmt.Errorf("invalidate config cache: %w", err)
	}
	return nil
}

// readThrough decodes key into dst, or loads, stores and decodes a fresh
// value. Errors from load are returned uncached.
func readThrough(ctx context.Context, r *ConfigRepo, key string, dst interface{}, load func() (interface{}, error)) error {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jerr := json.Unmarshal(raw, dst); jerr == nil {
			return nil
		}
		clog.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		clog.Warn("config cache read failed", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		clog.Warn("config cache write failed", "key", key, "err", err)
	}
	return json.Unmarshal(b, dst)
}
