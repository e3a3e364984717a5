package repository

import (
	"context"
	"errors"
	"time"

	"FuelPhases/internal/domain/models"
)

// ErrNotFound is returned when a store has nothing for the query.
var ErrNotFound = errors.New("not found")

// ObservationQuery selects observations. Zero From/To leave the range open;
// an empty Region selects every region.
type ObservationQuery struct {
	Fuel   string
	Region string
	From   time.Time
	To     time.Time
}

// ObservationStore provides read-only access to daily price observations.
type ObservationStore interface {
	LoadObservations(ctx context.Context, q ObservationQuery) (*models.Table, error)
}
