// Package serving runs the recommendation engine for stored farms and
// keeps the run log and the farmer's saved recommendations.
package serving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/market"
	"github.com/agri-advisor/platform/pkg/recommend"
	"github.com/agri-advisor/platform/pkg/validation"
)

var (
	ErrSoilDataMissing = errors.New("soil data not found for this farm")
	ErrForbidden       = errors.New("not authorized")
)

// UpstreamError wraps a failure of an external data provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Recommender is implemented by *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, in recommend.Input, topN int) (recommend.Result, error)
}

// FarmReader is implemented by *farms.Service.
type FarmReader interface {
	GetOwned(ctx context.Context, ownerID, farmID uuid.UUID) (models.Farm, error)
}

type ForecastSource interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error)
}

type PriceResolver interface {
	Resolve(ctx context.Context, requested *float64) (*float64, string)
}

// RunStore is implemented by Repository.
type RunStore interface {
	RecordRun(ctx context.Context, run RecommendationRun) error
	Save(ctx context.Context, req models.SaveRecommendationRequest) (models.SavedRecommendation, error)
	HistoryByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SavedRecommendation, error)
}

type Service struct {
	engine   Recommender
	farms    FarmReader
	weather  ForecastSource
	prices   PriceResolver
	runs     RunStore
	producer kafka.Publisher
	version  string
}

type Deps struct {
	Engine       Recommender
	Farms        FarmReader
	Weather      ForecastSource
	Prices       PriceResolver
	Runs         RunStore
	Producer     kafka.Publisher
	ModelVersion string
}

func NewService(d Deps) *Service {
	prices := d.Prices
	if prices == nil {
		prices = market.NewResolver(nil)
	}
	return &Service{
		engine:   d.Engine,
		farms:    d.Farms,
		weather:  d.Weather,
		prices:   prices,
		runs:     d.Runs,
		producer: d.Producer,
		version:  d.ModelVersion,
	}
}

// ForFarm recommends crops for a farm owned by userID using its stored
// soil and the live forecast at its location.
func (s *Service) ForFarm(ctx context.Context, userID, farmID uuid.UUID, marketPrice *float64, topN int) (models.RecommendationResponse, error) {
	start := time.Now()

	farm, err := s.farms.GetOwned(ctx, userID, farmID)
	if err != nil {
		return models.RecommendationResponse{}, err
	}
	if farm.Soil == nil || farm.Soil.PH == nil {
		return models.RecommendationResponse{}, ErrSoilDataMissing
	}

	days, err := s.weather.FetchForecast(ctx, farm.Latitude, farm.Longitude)
	if err != nil {
		return models.RecommendationResponse{}, &UpstreamError{Provider: "openweather", Err: err}
	}

	price, priceSource := s.prices.Resolve(ctx, marketPrice)
	in := recommend.Input{
		Soil:        soilInput(*farm.Soil),
		Forecast:    days,
		MarketPrice: price,
	}

	result, err := s.engine.Recommend(ctx, in, topN)
	if err != nil {
		return models.RecommendationResponse{}, err
	}

	resp := s.response(result, priceSource, Advisory(days), time.Since(start))
	resp.FarmID = farm.ID
	s.record(ctx, &farm.ID, &userID, result, resp)
	return resp, nil
}

// Evaluate runs the engine on a caller-supplied soil and forecast.
func (s *Service) Evaluate(ctx context.Context, userID uuid.UUID, in recommend.Input, topN int) (models.RecommendationResponse, error) {
	start := time.Now()
	priceSource := market.PriceFromDefault
	if in.MarketPrice != nil {
		priceSource = market.PriceFromRequest
	}

	result, err := s.engine.Recommend(ctx, in, topN)
	if err != nil {
		return models.RecommendationResponse{}, err
	}

	resp := s.response(result, priceSource, Advisory(in.Forecast), time.Since(start))
	s.record(ctx, nil, &userID, result, resp)
	return resp, nil
}

// Save stores a recommendation against a farm the user owns.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, req models.SaveRecommendationRequest) (models.SavedRecommendation, error) {
	if err := validation.Struct(req); err != nil {
		return models.SavedRecommendation{}, err
	}
	if _, err := s.farms.GetOwned(ctx, userID, req.FarmID); err != nil {
		return models.SavedRecommendation{}, ErrForbidden
	}
	return s.runs.Save(ctx, req)
}

// History lists saved recommendations; users may only read their own.
func (s *Service) History(ctx context.Context, userID, ownerID uuid.UUID) ([]models.SavedRecommendation, error) {
	if userID != ownerID {
		return nil, ErrForbidden
	}
	return s.runs.HistoryByOwner(ctx, ownerID)
}

func (s *Service) response(result recommend.Result, priceSource, advisory string, latency time.Duration) models.RecommendationResponse {
	version := result.ModelVersion
	if version == "" {
		version = s.version
	}
	return models.RecommendationResponse{
		RunID:        uuid.New(),
		Candidates:   result.Candidates,
		Features:     result.Features,
		MarketPrice:  result.MarketPrice,
		PriceSource:  priceSource,
		Advisory:     advisory,
		ModelVersion: version,
		Latency:      latency,
		Metadata: map[string]interface{}{
			"schema_version": result.SchemaVersion,
		},
	}
}

// record logs the run and announces it. Neither failure fails the request.
func (s *Service) record(ctx context.Context, farmID, userID *uuid.UUID, result recommend.Result, resp models.RecommendationResponse) {
	topCrop := ""
	if len(result.Candidates) > 0 {
		topCrop = result.Candidates[0].Label
	}

	if s.runs != nil {
		run := RecommendationRun{
			ID:           resp.RunID,
			FarmID:       farmID,
			UserID:       userID,
			Features:     mustJSON(result.Features),
			Candidates:   mustJSON(result.Candidates),
			TopCrop:      topCrop,
			MarketPrice:  result.MarketPrice,
			PriceSource:  resp.PriceSource,
			ModelVersion: resp.ModelVersion,
			LatencyMs:    float64(resp.Latency.Microseconds()) / 1000.0,
		}
		if err := s.runs.RecordRun(ctx, run); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to log recommendation run")
		}
	}

	if s.producer != nil {
		data := map[string]interface{}{
			"run_id":        resp.RunID.String(),
			"top_crop":      topCrop,
			"count":         len(result.Candidates),
			"market_price":  result.MarketPrice,
			"price_source":  resp.PriceSource,
			"model_version": resp.ModelVersion,
		}
		if farmID != nil {
			data["farm_id"] = farmID.String()
		}
		if err := s.producer.PublishEvent(ctx, models.EventRecommendation, models.DefaultRecommendationSource, data); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to publish recommendation event")
		}
	}
}

func soilInput(s models.SoilData) recommend.Soil {
	return recommend.Soil{
		PH:            s.PH,
		OrganicCarbon: s.OrganicCarbon,
		Sand:          s.Sand,
		Silt:          s.Silt,
		Clay:          s.Clay,
		Nitrogen:      s.Nitrogen,
		Phosphorus:    s.Phosphorus,
		Potassium:     s.Potassium,
	}
}
