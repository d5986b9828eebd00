package market

import (
	"context"
	"math"

	"github.com/agri-advisor/platform/pkg/common/logger"
)

// Price sources reported alongside a recommendation.
const (
	PriceFromRequest = "request"
	PriceFromMarket  = "market_average"
	PriceFromDefault = "default"
)

// Averager is satisfied by Repository and storage.PriceCache.
type Averager interface {
	AveragePrice(ctx context.Context, commodity string) (float64, bool, error)
}

// Resolver picks the market price for a run: an explicit value wins, then
// the stored average. A nil price means the engine applies its default.
type Resolver struct {
	prices Averager
}

func NewResolver(prices Averager) *Resolver {
	return &Resolver{prices: prices}
}

func (r *Resolver) Resolve(ctx context.Context, requested *float64) (*float64, string) {
	if requested != nil {
		return requested, PriceFromRequest
	}
	if r.prices == nil {
		return nil, PriceFromDefault
	}

	avg, found, err := r.prices.AveragePrice(ctx, "")
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Falling back to default market price")
		return nil, PriceFromDefault
	}
	if !found || math.IsNaN(avg) || avg < 0 {
		return nil, PriceFromDefault
	}
	return &avg, PriceFromMarket
}
