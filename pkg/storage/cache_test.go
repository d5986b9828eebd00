package storage

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/recommend"
)

type countingSource struct {
	calls int
}

func (s *countingSource) FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error) {
	s.calls++
	t, h := 25.0, 60.0
	return []recommend.ForecastDay{{Temperature: &t, Humidity: &h}}, nil
}

func (s *countingSource) AveragePrice(ctx context.Context, commodity string) (float64, bool, error) {
	s.calls++
	return 2350, true, nil
}

// unreachable points at a port nothing listens on.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestForecastKey(t *testing.T) {
	assert.Equal(t, "forecast:19.99:73.79", ForecastKey(19.9912, 73.7888))
}

func TestForecastCacheWithoutRedis(t *testing.T) {
	src := &countingSource{}
	c := NewForecastCache(nil, src, time.Minute)

	days, err := c.FetchForecast(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, days, 1)
	_, _ = c.FetchForecast(context.Background(), 1, 2)
	assert.Equal(t, 2, src.calls)
}

func TestForecastCacheDegradesWhenRedisDown(t *testing.T) {
	client := unreachable()
	defer client.Close()
	src := &countingSource{}
	c := NewForecastCache(client, src, time.Minute)

	days, err := c.FetchForecast(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 25.0, *days[0].Temperature)
	assert.Equal(t, 1, src.calls)
}

func TestPriceCacheDegradesWhenRedisDown(t *testing.T) {
	client := unreachable()
	defer client.Close()
	src := &countingSource{}
	c := NewPriceCache(client, src, time.Minute)

	price, found, err := c.AveragePrice(context.Background(), "Wheat")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2350.0, price)
	assert.Error(t, c.Invalidate(context.Background()))
}

func TestPriceCacheInvalidateWithoutRedis(t *testing.T) {
	c := NewPriceCache(nil, &countingSource{}, time.Minute)
	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestPriceKey(t *testing.T) {
	assert.Equal(t, "market_price:all", PriceKey(""))
	assert.Equal(t, "market_price:wheat", PriceKey("Wheat"))
}
