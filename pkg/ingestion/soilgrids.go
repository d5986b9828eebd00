package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
)

const soilGridsProvider = "soilgrids"

// soilProperties maps SoilGrids property names to our soil fields.
var soilProperties = map[string]string{
	"phh2o": "ph",
	"soc":   "organic_carbon",
	"sand":  "sand",
	"silt":  "silt",
	"clay":  "clay",
}

var soilPropertyOrder = []string{"phh2o", "soc", "sand", "silt", "clay"}

// SoilGridsClient fetches topsoil properties from the ISRIC SoilGrids API.
type SoilGridsClient struct {
	baseURL    string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[models.SoilData]
	attempts   int
	retryDelay time.Duration
}

func NewSoilGridsClient(baseURL string, client *http.Client, attempts int, retryDelay time.Duration) *SoilGridsClient {
	return &SoilGridsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       client,
		breaker:    httpclient.NewBreaker[models.SoilData](soilGridsProvider, 30*time.Second),
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// FetchSoil returns the 0-5cm mean soil profile at the given point. pH and
// organic carbon are converted from SoilGrids' integer scale; texture
// fractions stay in g/kg.
func (c *SoilGridsClient) FetchSoil(ctx context.Context, lat, lon float64) (models.SoilData, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return models.SoilData{}, err
	}

	var soil models.SoilData
	err := httpclient.Retry(ctx, c.attempts, c.retryDelay, func() error {
		var err error
		soil, err = c.breaker.Execute(func() (models.SoilData, error) {
			return c.fetch(ctx, lat, lon)
		})
		return err
	})
	metrics.ObserveUpstream(soilGridsProvider, err)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"lat": lat,
			"lon": lon,
		}).Warn("SoilGrids fetch failed")
		return models.SoilData{}, err
	}
	return soil, nil
}

func (c *SoilGridsClient) fetch(ctx context.Context, lat, lon float64) (models.SoilData, error) {
	q := url.Values{}
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	for _, p := range soilPropertyOrder {
		q.Add("property", p)
	}
	q.Set("depth", "0-5cm")
	q.Set("value", "mean")
	endpoint := c.baseURL + "/properties/query?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.SoilData{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.SoilData{}, fmt.Errorf("soilgrids request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.SoilData{}, &httpclient.StatusError{URL: c.baseURL, StatusCode: resp.StatusCode}
	}

	var body soilGridsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SoilData{}, fmt.Errorf("decode soilgrids response: %w", err)
	}
	return parseSoil(body)
}

func parseSoil(body soilGridsResponse) (models.SoilData, error) {
	values := make(map[string]float64, len(soilProperties))
	for _, layer := range body.Properties.Layers {
		field, ok := soilProperties[layer.Name]
		if !ok || len(layer.Depths) == 0 {
			continue
		}
		mean := layer.Depths[0].Values["mean"]
		if mean == nil {
			continue
		}
		v := *mean
		if field == "ph" || field == "organic_carbon" {
			v /= 10
		}
		values[field] = v
	}
	if len(values) != len(soilProperties) {
		return models.SoilData{}, ValidationError{reason: fmt.Errorf("got %d of %d properties: %w", len(values), len(soilProperties), errIncompleteSoil)}
	}

	ptr := func(name string) *float64 {
		v := values[name]
		return &v
	}
	return models.SoilData{
		PH:            ptr("ph"),
		OrganicCarbon: ptr("organic_carbon"),
		Sand:          ptr("sand"),
		Silt:          ptr("silt"),
		Clay:          ptr("clay"),
		Source:        soilGridsProvider,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}
