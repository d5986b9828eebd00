// Package storage holds the Redis read-through caches used by the
// advisor service. A nil or unreachable Redis degrades to direct reads.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
	"github.com/agri-advisor/platform/pkg/recommend"
)

// ForecastSource is satisfied by ingestion.WeatherClient.
type ForecastSource interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error)
}

// ForecastCache caches daily forecasts per rounded coordinate.
type ForecastCache struct {
	redis  *redis.Client
	source ForecastSource
	ttl    time.Duration
}

func NewForecastCache(client *redis.Client, source ForecastSource, ttl time.Duration) *ForecastCache {
	return &ForecastCache{redis: client, source: source, ttl: ttl}
}

// ForecastKey rounds to two decimals (about 1km), finer than forecast resolution.
func ForecastKey(lat, lon float64) string {
	return fmt.Sprintf("forecast:%.2f:%.2f", lat, lon)
}

func (c *ForecastCache) FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error) {
	key := ForecastKey(lat, lon)
	var days []recommend.ForecastDay
	if c.get(ctx, "forecast", key, &days) {
		return days, nil
	}

	days, err := c.source.FetchForecast(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	set(ctx, c.redis, key, days, c.ttl)
	return days, nil
}

func (c *ForecastCache) get(ctx context.Context, cache, key string, dst interface{}) bool {
	hit := getJSON(ctx, c.redis, key, dst)
	metrics.ObserveCache(cache, hit)
	return hit
}

// PriceSource is satisfied by market.Repository.
type PriceSource interface {
	AveragePrice(ctx context.Context, commodity string) (float64, bool, error)
}

type cachedPrice struct {
	Price float64 `json:"price"`
	Found bool    `json:"found"`
}

// PriceCache caches the average modal price per commodity.
type PriceCache struct {
	redis  *redis.Client
	source PriceSource
	ttl    time.Duration
}

func NewPriceCache(client *redis.Client, source PriceSource, ttl time.Duration) *PriceCache {
	return &PriceCache{redis: client, source: source, ttl: ttl}
}

const pricePrefix = "market_price:"

// PriceKey keys the all-commodity average as "all".
func PriceKey(commodity string) string {
	if commodity == "" {
		commodity = "all"
	}
	return pricePrefix + strings.ToLower(commodity)
}

func (c *PriceCache) AveragePrice(ctx context.Context, commodity string) (float64, bool, error) {
	key := PriceKey(commodity)
	var cached cachedPrice
	hit := getJSON(ctx, c.redis, key, &cached)
	metrics.ObserveCache("market_price", hit)
	if hit {
		return cached.Price, cached.Found, nil
	}

	price, found, err := c.source.AveragePrice(ctx, commodity)
	if err != nil {
		return 0, false, err
	}
	set(ctx, c.redis, key, cachedPrice{Price: price, Found: found}, c.ttl)
	return price, found, nil
}

// Invalidate drops every cached price. Called after a market refresh.
func (c *PriceCache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, pricePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan price keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func getJSON(ctx context.Context, client *redis.Client, key string, dst interface{}) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		return false
	}
	return true
}

func set(ctx context.Context, client *redis.Client, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
