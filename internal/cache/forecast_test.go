package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-alerts/internal/cache"
	"github.com/i474232898/weather-alerts/internal/observability"
	"github.com/i474232898/weather-alerts/internal/weather"
)

var nairobi = weather.Coordinates{Lat: -1.28, Lon: 36.82}

func newTestCache(t *testing.T, ttl time.Duration) (*cache.ForecastCache, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := observability.NewMetricsForTesting()
	return cache.NewForecastCache(client, ttl, m), mr, m
}

func sampleSeries() *weather.ForecastSeries {
	return &weather.ForecastSeries{
		City: "Nairobi",
		Points: []weather.ForecastPoint{
			{
				Timestamp:    time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
				Main:         "Rain",
				Description:  "light rain",
				TemperatureC: 21.5,
			},
		},
	}
}

func TestForecastCache_SetAndGet(t *testing.T) {
	c, _, m := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, nairobi, sampleSeries()))

	got, err := c.Get(ctx, nairobi)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *sampleSeries(), *got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastCacheLookup.WithLabelValues("hit")))
}

func TestForecastCache_Miss(t *testing.T) {
	c, _, m := newTestCache(t, time.Hour)

	got, err := c.Get(context.Background(), nairobi)
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss should return nil, nil")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastCacheLookup.WithLabelValues("miss")))
}

func TestForecastCache_TTL(t *testing.T) {
	c, mr, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, nairobi, sampleSeries()))
	assert.Equal(t, 10*time.Minute, mr.TTL("forecast:-1.2800:36.8200"))

	mr.FastForward(11 * time.Minute)

	got, err := c.Get(ctx, nairobi)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestForecastCache_NilSeriesIsIgnored(t *testing.T) {
	c, mr, _ := newTestCache(t, 0)

	require.NoError(t, c.Set(context.Background(), nairobi, nil))
	assert.Empty(t, mr.Keys())
}

func TestForecastCache_CorruptEntry(t *testing.T) {
	c, mr, m := newTestCache(t, time.Hour)
	require.NoError(t, mr.Set("forecast:-1.2800:36.8200", "{not json"))

	_, err := c.Get(context.Background(), nairobi)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastCacheLookup.WithLabelValues("error")))
}
