package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
)

const dataGovProvider = "data_gov"

// Source yields the current price records for one market.
type Source interface {
	FetchPrices(ctx context.Context) ([]models.MarketPrice, error)
}

// PlaceholderSource serves fixed prices until a data.gov.in resource is configured.
type PlaceholderSource struct {
	Market string
}

func (s PlaceholderSource) FetchPrices(ctx context.Context) ([]models.MarketPrice, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return []models.MarketPrice{
		{Commodity: "Wheat", Market: s.Market, ModalPrice: 2350, Date: today},
		{Commodity: "Onion", Market: s.Market, ModalPrice: 1800, Date: today},
	}, nil
}

// DataGovSource reads the Agmarknet daily price resource on data.gov.in.
type DataGovSource struct {
	resourceURL string
	apiKey      string
	market      string
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker[[]models.MarketPrice]
	attempts    int
	retryDelay  time.Duration
}

func NewDataGovSource(resourceURL, apiKey, market string, client *http.Client, attempts int, retryDelay time.Duration) *DataGovSource {
	return &DataGovSource{
		resourceURL: resourceURL,
		apiKey:      apiKey,
		market:      market,
		http:        client,
		breaker:     httpclient.NewBreaker[[]models.MarketPrice](dataGovProvider, time.Minute),
		attempts:    attempts,
		retryDelay:  retryDelay,
	}
}

type dataGovResponse struct {
	Records []dataGovRecord `json:"records"`
}

// Prices arrive as strings, sometimes with decimals.
type dataGovRecord struct {
	Commodity   string `json:"commodity"`
	Market      string `json:"market"`
	ModalPrice  string `json:"modal_price"`
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ArrivalDate string `json:"arrival_date"`
}

func (s *DataGovSource) FetchPrices(ctx context.Context) ([]models.MarketPrice, error) {
	var prices []models.MarketPrice
	err := httpclient.Retry(ctx, s.attempts, s.retryDelay, func() error {
		var err error
		prices, err = s.breaker.Execute(func() ([]models.MarketPrice, error) {
			return s.fetch(ctx)
		})
		return err
	})
	metrics.ObserveUpstream(dataGovProvider, err)
	return prices, err
}

func (s *DataGovSource) fetch(ctx context.Context) ([]models.MarketPrice, error) {
	q := url.Values{}
	q.Set("api-key", s.apiKey)
	q.Set("format", "json")
	q.Set("filters[market]", s.market)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resourceURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data.gov request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.StatusError{URL: s.resourceURL, StatusCode: resp.StatusCode}
	}

	var body dataGovResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode data.gov response: %w", err)
	}
	return parseRecords(ctx, body.Records), nil
}

func parseRecords(ctx context.Context, records []dataGovRecord) []models.MarketPrice {
	out := make([]models.MarketPrice, 0, len(records))
	for _, rec := range records {
		commodity := strings.TrimSpace(rec.Commodity)
		modal, err := decimal.NewFromString(strings.TrimSpace(rec.ModalPrice))
		if commodity == "" || err != nil || modal.IsNegative() {
			logger.FromContext(ctx).WithField("commodity", rec.Commodity).Warn("Skipping unusable price record")
			continue
		}
		price := models.MarketPrice{
			Commodity:  commodity,
			Market:     strings.TrimSpace(rec.Market),
			ModalPrice: modal.InexactFloat64(),
			MinPrice:   optionalPrice(rec.MinPrice),
			MaxPrice:   optionalPrice(rec.MaxPrice),
		}
		if d, err := time.Parse("02/01/2006", rec.ArrivalDate); err == nil {
			price.Date = d
		}
		out = append(out, price)
	}
	return out
}

func optionalPrice(raw string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
