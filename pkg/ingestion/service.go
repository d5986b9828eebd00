package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
)

// SoilFetcher is satisfied by SoilGridsClient.
type SoilFetcher interface {
	FetchSoil(ctx context.Context, lat, lon float64) (models.SoilData, error)
}

// SoilStore persists the fetched profile against a farm.
type SoilStore interface {
	UpdateSoil(ctx context.Context, farmID uuid.UUID, soil models.SoilData) error
}

// SoilService reacts to new farms by fetching and storing their soil profile.
type SoilService struct {
	fetcher  SoilFetcher
	store    SoilStore
	producer kafka.Publisher
}

func NewSoilService(fetcher SoilFetcher, store SoilStore, producer kafka.Publisher) *SoilService {
	return &SoilService{fetcher: fetcher, store: store, producer: producer}
}

// HandleFarmCreated is a kafka.EventHandler. Malformed events are dropped;
// upstream failures are returned so the message is retried.
func (s *SoilService) HandleFarmCreated(ctx context.Context, event models.Event) error {
	if event.Type != models.EventFarmCreated {
		return nil
	}
	farmID, lat, lon, err := parseFarmEvent(event)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("event_id", event.ID).Warn("Dropping malformed farm event")
		return nil
	}

	soil, err := s.fetcher.FetchSoil(ctx, lat, lon)
	if err != nil {
		if IsValidationError(err) {
			logger.FromContext(ctx).WithError(err).WithField("farm_id", farmID).Warn("SoilGrids has no usable profile for farm")
			return nil
		}
		return fmt.Errorf("fetch soil for farm %s: %w", farmID, err)
	}
	if err := s.store.UpdateSoil(ctx, farmID, soil); err != nil {
		return fmt.Errorf("store soil for farm %s: %w", farmID, err)
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"farm_id": farmID,
		"ph":      *soil.PH,
	}).Info("Soil profile stored")

	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, models.EventSoilDataUpdated, "soil-worker", map[string]interface{}{
			"farm_id": farmID.String(),
			"source":  soil.Source,
		}); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to publish soil update")
		}
	}
	return nil
}

func parseFarmEvent(event models.Event) (uuid.UUID, float64, float64, error) {
	rawID, _ := event.Data["farm_id"].(string)
	farmID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, 0, 0, fmt.Errorf("farm_id: %w", err)
	}
	lat, ok := event.Data["latitude"].(float64)
	if !ok {
		return uuid.Nil, 0, 0, fmt.Errorf("latitude missing")
	}
	lon, ok := event.Data["longitude"].(float64)
	if !ok {
		return uuid.Nil, 0, 0, fmt.Errorf("longitude missing")
	}
	return farmID, lat, lon, nil
}
