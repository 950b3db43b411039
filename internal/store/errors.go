// Package store provides subscriber store implementations: in-memory, MongoDB,
// Redis and PostgreSQL.
package store

import (
	"fmt"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

// unavailable wraps a persistence failure so callers can detect it with
// errors.Is(err, subscription.ErrUnavailable).
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, subscription.ErrUnavailable, err)
}
