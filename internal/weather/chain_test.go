package weather

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCurrent struct {
	cw    CurrentWeather
	err   error
	calls int
}

func (s *stubCurrent) FetchCurrent(context.Context, Coordinates) (CurrentWeather, error) {
	s.calls++
	return s.cw, s.err
}

func TestCurrentChain(t *testing.T) {
	coords := Coordinates{Lat: -1.28, Lon: 36.82}

	t.Run("first success wins", func(t *testing.T) {
		first := &stubCurrent{cw: CurrentWeather{Main: "Rain"}}
		second := &stubCurrent{cw: CurrentWeather{Main: "Clear"}}

		cw, err := CurrentChain{first, second}.FetchCurrent(context.Background(), coords)
		require.NoError(t, err)
		assert.Equal(t, "Rain", cw.Main)
		assert.Zero(t, second.calls)
	})

	t.Run("falls back on failure", func(t *testing.T) {
		first := &stubCurrent{err: ErrUpstreamFetch}
		second := &stubCurrent{cw: CurrentWeather{Main: "Fog"}}

		cw, err := CurrentChain{first, second}.FetchCurrent(context.Background(), coords)
		require.NoError(t, err)
		assert.Equal(t, "Fog", cw.Main)
		assert.Equal(t, 1, first.calls)
	})

	t.Run("all failing joins errors", func(t *testing.T) {
		boom := errors.New("boom")
		chain := CurrentChain{
			&stubCurrent{err: ErrUpstreamFetch},
			&stubCurrent{err: boom},
		}

		_, err := chain.FetchCurrent(context.Background(), coords)
		assert.ErrorIs(t, err, ErrUpstreamFetch)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := CurrentChain{}.FetchCurrent(context.Background(), coords)
		assert.ErrorIs(t, err, ErrUpstreamFetch)
	})
}
