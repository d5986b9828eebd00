package farms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agri-advisor/platform/pkg/common/models"
)

var ErrFarmNotFound = errors.New("farm not found")

// FarmModel keeps the soil profile as a jsonb document; it is replaced
// wholesale on every SoilGrids refresh.
type FarmModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;index"`
	Name      string
	Latitude  float64
	Longitude float64
	SoilData  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FarmModel) TableName() string {
	return "farms"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&FarmModel{})
}

func (r *Repository) Create(ctx context.Context, farm models.Farm) (models.Farm, error) {
	now := time.Now().UTC()
	row := FarmModel{
		ID:        uuid.New(),
		OwnerID:   farm.OwnerID,
		Name:      farm.Name,
		Latitude:  farm.Latitude,
		Longitude: farm.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Farm{}, err
	}
	return mapFarmModel(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Farm, error) {
	var row FarmModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Farm{}, ErrFarmNotFound
	}
	if err != nil {
		return models.Farm{}, err
	}
	return mapFarmModel(row)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error) {
	var rows []FarmModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Farm, 0, len(rows))
	for _, row := range rows {
		farm, err := mapFarmModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, farm)
	}
	return out, nil
}

// UpdateSoil implements ingestion.SoilStore.
func (r *Repository) UpdateSoil(ctx context.Context, farmID uuid.UUID, soil models.SoilData) error {
	payload, err := json.Marshal(soil)
	if err != nil {
		return fmt.Errorf("marshal soil: %w", err)
	}
	res := r.db.WithContext(ctx).Model(&FarmModel{}).Where("id = ?", farmID).Updates(map[string]interface{}{
		"soil_data":  datatypes.JSON(payload),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFarmNotFound
	}
	return nil
}

func mapFarmModel(row FarmModel) (models.Farm, error) {
	farm := models.Farm{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.SoilData) > 0 && string(row.SoilData) != "null" {
		var soil models.SoilData
		if err := json.Unmarshal(row.SoilData, &soil); err != nil {
			return models.Farm{}, fmt.Errorf("decode soil for farm %s: %w", row.ID, err)
		}
		farm.Soil = &soil
	}
	return farm, nil
}
