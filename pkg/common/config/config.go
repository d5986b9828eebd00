package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	ServerHost     string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ServerPort     string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	MaxRequestBody int64         `envconfig:"MAX_REQUEST_BODY_BYTES" default:"1048576"`
	RateLimitRPS   int           `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"100"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"agri"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"agri"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"agri_advisor"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Kafka
	KafkaBrokers             []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaGroupID             string   `envconfig:"KAFKA_GROUP_ID" default:"agri-advisor"`
	FarmCreatedTopic         string   `envconfig:"KAFKA_FARM_CREATED_TOPIC" default:"farm.created"`
	RecommendationTopic      string   `envconfig:"KAFKA_RECOMMENDATION_TOPIC" default:"recommendation.generated"`
	MarketPricesUpdatedTopic string   `envconfig:"KAFKA_MARKET_PRICES_TOPIC" default:"market.prices.updated"`
	SoilUpdatedTopic         string   `envconfig:"KAFKA_SOIL_UPDATED_TOPIC" default:"soil.updated"`

	// A failed event is retried in place with backoff between these bounds.
	KafkaRetryDelay    time.Duration `envconfig:"KAFKA_RETRY_DELAY" default:"1s"`
	KafkaMaxRetryDelay time.Duration `envconfig:"KAFKA_MAX_RETRY_DELAY" default:"1m"`

	// Auth
	JWTSecret   string        `envconfig:"JWT_SECRET" default:"change-me-please-0123456789"`
	JWTIssuer   string        `envconfig:"JWT_ISSUER" default:"agri-advisor"`
	JWTAudience string        `envconfig:"JWT_AUDIENCE" default:"agri-advisor-api"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"30m"`

	// Model artifacts
	ArtifactDir    string `envconfig:"ARTIFACT_DIR" default:"models"`
	ONNXRuntimeLib string `envconfig:"ONNX_RUNTIME_LIB"`

	// Recommendation pipeline
	RecommendTopN      int     `envconfig:"RECOMMEND_TOP_N" default:"5"`
	DefaultMarketPrice float64 `envconfig:"DEFAULT_MARKET_PRICE" default:"2500"`

	// Upstream providers
	OpenWeatherAPIKey   string        `envconfig:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL  string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/3.0"`
	OpenWeatherTimeout  time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s"`
	SoilGridsBaseURL    string        `envconfig:"SOILGRIDS_BASE_URL" default:"https://rest.soilgrids.org/soilgrids/v2.0"`
	SoilGridsTimeout    time.Duration `envconfig:"SOILGRIDS_TIMEOUT" default:"20s"`
	UpstreamRetries     int           `envconfig:"UPSTREAM_RETRY_ATTEMPTS" default:"3"`
	UpstreamRetryDelay  time.Duration `envconfig:"UPSTREAM_RETRY_DELAY" default:"200ms"`
	ForecastCacheTTL    time.Duration `envconfig:"FORECAST_CACHE_TTL" default:"30m"`
	MarketPriceCacheTTL time.Duration `envconfig:"MARKET_PRICE_CACHE_TTL" default:"1h"`

	// Market data job
	MarketRefreshInterval time.Duration `envconfig:"MARKET_REFRESH_INTERVAL" default:"12h"`
	MarketName            string        `envconfig:"MARKET_NAME" default:"Nashik"`
	DataGovAPIKey         string        `envconfig:"DATA_GOV_API_KEY"`
	DataGovResourceURL    string        `envconfig:"DATA_GOV_RESOURCE_URL"`

	// Chatbot
	ChatbotServiceURL   string        `envconfig:"CHATBOT_SERVICE_URL"`
	ChatbotTokenURL     string        `envconfig:"CHATBOT_TOKEN_URL"`
	ChatbotClientID     string        `envconfig:"CHATBOT_CLIENT_ID"`
	ChatbotClientSecret string        `envconfig:"CHATBOT_CLIENT_SECRET"`
	ChatbotTimeout      time.Duration `envconfig:"CHATBOT_TIMEOUT" default:"15s"`
	ChatbotRegion       string        `envconfig:"CHATBOT_REGION" default:"Nashik"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for process entry points.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
