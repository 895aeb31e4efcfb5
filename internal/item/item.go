// Package item implements the example CRUD resource served by the API.
package item

import (
	"context"
	"time"
)

// Item is the example resource.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput is the payload of a create request.
type CreateInput struct {
	Name        string `json:"name" validate:"min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=100"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
}

// Patch is the set of columns an update writes.
type Patch struct {
	Name        *string
	Description *string
	UpdatedAt   time.Time
}

// ListFilter selects one page of items, newest first.
type ListFilter struct {
	// OwnerID restricts the page to one owner when non-empty.
	OwnerID string
	Limit   int
	Offset  int
}

// Repository persists items. Implementations report a missing row as an
// *apperr.StoreError with the missing-row code.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Item, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Get(ctx context.Context, id string) (Item, error)
	Create(ctx context.Context, it Item) (Item, error)
	Update(ctx context.Context, id string, p Patch) (Item, error)
	Delete(ctx context.Context, id string) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
