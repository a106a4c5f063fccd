package repository

import (
	"context"
	"errors"

	"docsend/internal/model"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// ProfileRepository defines data access for profiles and their delivery history.
// No business logic here: strictly persistence operations.
type ProfileRepository interface {
	// Create inserts a new profile record together with its document reference.
	// Returns the stored profile with an empty history.
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)

	// FindByID returns a profile with its full delivery history in insertion order.
	// Returns ErrNotFound when the profile does not exist.
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// List returns profiles ordered by creation time, newest first, with their histories.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Profile], error)

	// AppendDelivery atomically appends one record to a profile's history. It never rewrites
	// existing records, so concurrent appends to the same profile are all preserved.
	// Appending a record whose ID is already stored is a no-op, which makes retries safe.
	// Returns ErrNotFound when the profile does not exist.
	AppendDelivery(ctx context.Context, profileID string, rec model.DeliveryRecord) error
}

// PageQuery holds limit/offset pagination parameters. A non-positive Limit means no limit.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
