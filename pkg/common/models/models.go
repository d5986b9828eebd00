package models

import (
	"time"

	"github.com/google/uuid"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // farm.created, recommendation.generated, market.prices.updated
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventFarmCreated            = "farm.created"
	EventRecommendation         = "recommendation.generated"
	EventMarketPricesUpdated    = "market.prices.updated"
	EventSoilDataUpdated        = "soil.updated"
	DefaultRecommendationSource = "advisor-service"
)

// Identity
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Farms
type Farm struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Soil      *SoilData `json:"soil_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateFarmRequest struct {
	Name      string   `json:"name" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// SoilData is the latest soil record stored for a farm.
type SoilData struct {
	PH            *float64  `json:"ph" validate:"required,gte=0,lte=14"`
	OrganicCarbon *float64  `json:"organic_carbon,omitempty" validate:"omitempty,gte=0"`
	Sand          *float64  `json:"sand,omitempty" validate:"omitempty,gte=0"`
	Silt          *float64  `json:"silt,omitempty" validate:"omitempty,gte=0"`
	Clay          *float64  `json:"clay,omitempty" validate:"omitempty,gte=0"`
	Nitrogen      *float64  `json:"nitrogen,omitempty" validate:"omitempty,gte=0"`
	Phosphorus    *float64  `json:"phosphorus,omitempty" validate:"omitempty,gte=0"`
	Potassium     *float64  `json:"potassium,omitempty" validate:"omitempty,gte=0"`
	Source        string    `json:"source,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Market data
type MarketPrice struct {
	ID         uuid.UUID `json:"id"`
	Commodity  string    `json:"commodity"`
	Market     string    `json:"market"`
	ModalPrice float64   `json:"modal_price"`
	MinPrice   float64   `json:"min_price,omitempty"`
	MaxPrice   float64   `json:"max_price,omitempty"`
	Date       time.Time `json:"date"`
}

// Recommendations
type RecommendationResponse struct {
	RunID        uuid.UUID              `json:"run_id"`
	FarmID       uuid.UUID              `json:"farm_id,omitempty"`
	Candidates   interface{}            `json:"recommendations"`
	Features     interface{}            `json:"features"`
	MarketPrice  float64                `json:"market_price_per_unit"`
	PriceSource  string                 `json:"market_price_source"`
	Advisory     string                 `json:"advisory,omitempty"`
	ModelVersion string                 `json:"model_version,omitempty"`
	Latency      time.Duration          `json:"latency"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type SaveRecommendationRequest struct {
	FarmID             uuid.UUID              `json:"farm_id" validate:"required"`
	RecommendationText string                 `json:"recommendation_text" validate:"required"`
	Details            map[string]interface{} `json:"details,omitempty"`
}

type SavedRecommendation struct {
	ID                 uuid.UUID              `json:"id"`
	FarmID             uuid.UUID              `json:"farm_id"`
	RecommendationText string                 `json:"recommendation_text"`
	Details            map[string]interface{} `json:"details,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// Chatbot
type ChatbotQuery struct {
	Question     string `json:"question" validate:"required"`
	LanguageCode string `json:"language_code,omitempty"`
	Region       string `json:"region,omitempty"`
}

type ChatbotResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Stage   string      `json:"stage,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
