package serving

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agri-advisor/platform/pkg/common/models"
)

// RecommendationRun records every engine run for later analysis.
type RecommendationRun struct {
	ID           uuid.UUID      `gorm:"primaryKey;column:id"`
	FarmID       *uuid.UUID     `gorm:"type:uuid;index;column:farm_id"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index;column:user_id"`
	Features     datatypes.JSON `gorm:"type:jsonb;column:features"`
	Candidates   datatypes.JSON `gorm:"type:jsonb;column:candidates"`
	TopCrop      string         `gorm:"column:top_crop"`
	MarketPrice  float64        `gorm:"column:market_price"`
	PriceSource  string         `gorm:"column:price_source"`
	ModelVersion string         `gorm:"column:model_version"`
	LatencyMs    float64        `gorm:"column:latency_ms"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
}

func (RecommendationRun) TableName() string {
	return "recommendation_runs"
}

// SavedRecommendationModel is a recommendation the farmer chose to keep.
type SavedRecommendationModel struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey"`
	FarmID             uuid.UUID         `gorm:"type:uuid;index"`
	RecommendationText string            `gorm:"type:text"`
	Details            datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt          time.Time
}

func (SavedRecommendationModel) TableName() string {
	return "recommendations"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RecommendationRun{}, &SavedRecommendationModel{})
}

func (r *Repository) RecordRun(ctx context.Context, run RecommendationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&run).Error
}

// RecentRuns returns the most recent runs up to limit.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]RecommendationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RecommendationRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *Repository) Save(ctx context.Context, req models.SaveRecommendationRequest) (models.SavedRecommendation, error) {
	row := SavedRecommendationModel{
		ID:                 uuid.New(),
		FarmID:             req.FarmID,
		RecommendationText: req.RecommendationText,
		Details:            datatypes.JSONMap(req.Details),
		CreatedAt:          time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.SavedRecommendation{}, err
	}
	return mapSaved(row), nil
}

// HistoryByOwner lists saved recommendations across all farms of ownerID, newest first.
func (r *Repository) HistoryByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SavedRecommendation, error) {
	var rows []SavedRecommendationModel
	err := r.db.WithContext(ctx).
		Joins("JOIN farms ON farms.id = recommendations.farm_id").
		Where("farms.owner_id = ?", ownerID).
		Order("recommendations.created_at DESC").
		Find(&rows).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	out := make([]models.SavedRecommendation, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSaved(row))
	}
	return out, nil
}

func mapSaved(row SavedRecommendationModel) models.SavedRecommendation {
	return models.SavedRecommendation{
		ID:                 row.ID,
		FarmID:             row.FarmID,
		RecommendationText: row.RecommendationText,
		Details:            map[string]interface{}(row.Details),
		CreatedAt:          row.CreatedAt,
	}
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
