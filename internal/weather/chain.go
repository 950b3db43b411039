package weather

import (
	"context"
	"errors"
	"fmt"
)

// CurrentChain tries each provider in order and returns the first success.
type CurrentChain []CurrentProvider

func (c CurrentChain) FetchCurrent(ctx context.Context, coords Coordinates) (CurrentWeather, error) {
	if len(c) == 0 {
		return CurrentWeather{}, fmt.Errorf("%w: no current conditions provider configured", ErrUpstreamFetch)
	}

	var errs []error
	for _, p := range c {
		cw, err := p.FetchCurrent(ctx, coords)
		if err == nil {
			return cw, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return CurrentWeather{}, errors.Join(errs...)
}
