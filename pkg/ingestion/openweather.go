package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
	"github.com/agri-advisor/platform/pkg/recommend"
)

const openWeatherProvider = "openweather"

// ErrWeatherNotConfigured is returned when no API key is set.
var ErrWeatherNotConfigured = errors.New("openweather api key not configured")

// WeatherClient reads the daily forecast from the OpenWeather One Call 3.0 API.
type WeatherClient struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[[]recommend.ForecastDay]
	attempts   int
	retryDelay time.Duration
}

func NewWeatherClient(baseURL, apiKey string, client *http.Client, attempts int, retryDelay time.Duration) *WeatherClient {
	return &WeatherClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		http:       client,
		breaker:    httpclient.NewBreaker[[]recommend.ForecastDay](openWeatherProvider, 30*time.Second),
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// FetchForecast returns the daily forecast in metric units, today first.
func (c *WeatherClient) FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error) {
	if c.apiKey == "" {
		return nil, ErrWeatherNotConfigured
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	var days []recommend.ForecastDay
	err := httpclient.Retry(ctx, c.attempts, c.retryDelay, func() error {
		var err error
		days, err = c.breaker.Execute(func() ([]recommend.ForecastDay, error) {
			return c.fetch(ctx, lat, lon)
		})
		return err
	})
	metrics.ObserveUpstream(openWeatherProvider, err)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("OpenWeather fetch failed")
		return nil, err
	}
	return days, nil
}

func (c *WeatherClient) fetch(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("exclude", "current,minutely,hourly,alerts")
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/onecall?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.StatusError{URL: c.baseURL, StatusCode: resp.StatusCode}
	}

	var body oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode openweather response: %w", err)
	}
	return parseForecast(body)
}

// parseForecast keeps missing temperature or humidity as nil so the
// pipeline rejects the day instead of assuming a value.
func parseForecast(body oneCallResponse) ([]recommend.ForecastDay, error) {
	if len(body.Daily) == 0 {
		return nil, ValidationError{reason: errNoForecast}
	}
	days := make([]recommend.ForecastDay, 0, len(body.Daily))
	for _, d := range body.Daily {
		day := recommend.ForecastDay{
			Humidity:                 d.Humidity,
			PrecipitationProbability: d.Pop,
			Rainfall:                 d.Rain,
		}
		if d.Temp != nil {
			t := d.Temp.Day
			day.Temperature = &t
		}
		days = append(days, day)
	}
	return days, nil
}
