// Package market keeps commodity prices fresh and resolves the price
// used by the recommendation engine.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
)

// PriceWriter is implemented by Repository.
type PriceWriter interface {
	Upsert(ctx context.Context, prices []models.MarketPrice) error
}

// Invalidator is implemented by storage.PriceCache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Job struct {
	source   Source
	store    PriceWriter
	cache    Invalidator
	producer kafka.Publisher
	interval time.Duration
}

func NewJob(source Source, store PriceWriter, cache Invalidator, producer kafka.Publisher, interval time.Duration) *Job {
	return &Job{source: source, store: store, cache: cache, producer: producer, interval: interval}
}

// RunOnce fetches and stores one batch of prices and returns how many were stored.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	prices, err := j.source.FetchPrices(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch market prices: %w", err)
	}
	if len(prices) == 0 {
		logger.FromContext(ctx).Warn("Market source returned no prices")
		return 0, nil
	}
	if err := j.store.Upsert(ctx, prices); err != nil {
		return 0, fmt.Errorf("store market prices: %w", err)
	}

	if j.cache != nil {
		if err := j.cache.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to invalidate price cache")
		}
	}
	if j.producer != nil {
		commodities := make([]string, 0, len(prices))
		for _, p := range prices {
			commodities = append(commodities, p.Commodity)
		}
		if err := j.producer.PublishEvent(ctx, models.EventMarketPricesUpdated, "market-data-service", map[string]interface{}{
			"count":       len(prices),
			"commodities": commodities,
		}); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to publish market price update")
		}
	}

	logger.FromContext(ctx).WithField("count", len(prices)).Info("Market price data updated")
	return len(prices), nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (j *Job) Run(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		logger.Log.WithError(err).Warn("market refresh failed")
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				logger.Log.WithError(err).Warn("market refresh failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
