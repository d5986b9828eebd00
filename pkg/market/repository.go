package market

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agri-advisor/platform/pkg/common/models"
)

// PriceModel holds the latest modal price per commodity and market.
type PriceModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Commodity  string    `gorm:"uniqueIndex:idx_market_commodity"`
	Market     string    `gorm:"uniqueIndex:idx_market_commodity"`
	ModalPrice float64
	MinPrice   float64
	MaxPrice   float64
	Date       time.Time
	UpdatedAt  time.Time
}

func (PriceModel) TableName() string {
	return "market_data"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PriceModel{})
}

// Upsert replaces the price of each (commodity, market) pair.
func (r *Repository) Upsert(ctx context.Context, prices []models.MarketPrice) error {
	if len(prices) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]PriceModel, 0, len(prices))
	for _, p := range prices {
		date := p.Date
		if date.IsZero() {
			date = now
		}
		rows = append(rows, PriceModel{
			ID:         uuid.New(),
			Commodity:  p.Commodity,
			Market:     p.Market,
			ModalPrice: p.ModalPrice,
			MinPrice:   p.MinPrice,
			MaxPrice:   p.MaxPrice,
			Date:       date,
			UpdatedAt:  now,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "commodity"}, {Name: "market"}},
		DoUpdates: clause.AssignmentColumns([]string{"modal_price", "min_price", "max_price", "date", "updated_at"}),
	}).Create(&rows).Error
}

func (r *Repository) List(ctx context.Context) ([]models.MarketPrice, error) {
	var rows []PriceModel
	if err := r.db.WithContext(ctx).Order("commodity ASC, market ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.MarketPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.MarketPrice{
			ID:         row.ID,
			Commodity:  row.Commodity,
			Market:     row.Market,
			ModalPrice: row.ModalPrice,
			MinPrice:   row.MinPrice,
			MaxPrice:   row.MaxPrice,
			Date:       row.Date,
		})
	}
	return out, nil
}

// AveragePrice averages modal prices, over every commodity when commodity
// is empty. found is false when no rows match.
func (r *Repository) AveragePrice(ctx context.Context, commodity string) (float64, bool, error) {
	q := r.db.WithContext(ctx).Model(&PriceModel{})
	if commodity != "" {
		q = q.Where("LOWER(commodity) = LOWER(?)", commodity)
	}
	var avg sql.NullFloat64
	if err := q.Select("AVG(modal_price)").Scan(&avg).Error; err != nil {
		return 0, false, err
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}
