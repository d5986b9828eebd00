// Package farms manages farm registration. Creating a farm emits a
// farm.created event that the soil worker turns into a stored profile.
package farms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/validation"
)

var ErrForbidden = errors.New("farm belongs to another user")

// Store is implemented by Repository.
type Store interface {
	Create(ctx context.Context, farm models.Farm) (models.Farm, error)
	Get(ctx context.Context, id uuid.UUID) (models.Farm, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error)
	UpdateSoil(ctx context.Context, farmID uuid.UUID, soil models.SoilData) error
}

// ManualSoilSource marks soil entered by the farmer.
const ManualSoilSource = "manual"

type Service struct {
	store    Store
	producer kafka.Publisher
	source   string
}

func NewService(store Store, producer kafka.Publisher) *Service {
	return &Service{store: store, producer: producer, source: models.DefaultRecommendationSource}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req models.CreateFarmRequest) (models.Farm, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return models.Farm{}, err
	}

	farm, err := s.store.Create(ctx, models.Farm{
		OwnerID:   ownerID,
		Name:      req.Name,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		return models.Farm{}, err
	}

	// The farm is usable without soil data; a lost event only delays enrichment.
	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, models.EventFarmCreated, s.source, map[string]interface{}{
			"farm_id":   farm.ID.String(),
			"owner_id":  ownerID.String(),
			"latitude":  farm.Latitude,
			"longitude": farm.Longitude,
		}); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("farm_id", farm.ID).Warn("Failed to publish farm.created")
		}
	}
	return farm, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// GetOwned returns ErrFarmNotFound or ErrForbidden when ownerID may not read the farm.
func (s *Service) GetOwned(ctx context.Context, ownerID, farmID uuid.UUID) (models.Farm, error) {
	farm, err := s.store.Get(ctx, farmID)
	if err != nil {
		return models.Farm{}, err
	}
	if farm.OwnerID != ownerID {
		return models.Farm{}, ErrForbidden
	}
	return farm, nil
}

// UpdateSoil replaces the farm's soil profile with one entered by its owner.
func (s *Service) UpdateSoil(ctx context.Context, ownerID, farmID uuid.UUID, soil models.SoilData) (models.Farm, error) {
	farm, err := s.GetOwned(ctx, ownerID, farmID)
	if err != nil {
		return models.Farm{}, err
	}
	if err := validation.Struct(soil); err != nil {
		return models.Farm{}, err
	}

	soil.Source = ManualSoilSource
	soil.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSoil(ctx, farmID, soil); err != nil {
		return models.Farm{}, err
	}
	farm.Soil = &soil
	return farm, nil
}
