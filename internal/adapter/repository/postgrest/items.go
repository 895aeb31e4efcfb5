// Package postgrest implements the item repository on the Supabase data API.
package postgrest

import (
	"context"
	"net/url"
	"time"

	"api-go-template/internal/adapter/external/supabase"
	"api-go-template/internal/item"
)

const table = "items"

// DataAPI is the subset of *supabase.Client the repository uses.
type DataAPI interface {
	Select(ctx context.Context, table string, q supabase.Query, out any) (int, error)
	Insert(ctx context.Context, table string, row, out any) error
	Update(ctx context.Context, table string, filters url.Values, patch, out any) error
	Delete(ctx context.Context, table string, filters url.Values) error
	Ping(ctx context.Context) error
}

var _ DataAPI = (*supabase.Client)(nil)

// Items is the PostgREST item.Repository.
type Items struct {
	api DataAPI
}

var _ item.Repository = (*Items)(nil)

// NewItems creates an Items repository.
func NewItems(api DataAPI) *Items {
	return &Items{api: api}
}

type row struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r row) item() item.Item {
	return item.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type patch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Items) List(ctx context.Context, f item.ListFilter) ([]item.Item, error) {
	var rows []row
	_, err := r.api.Select(ctx, table, supabase.Query{
		Filters: ownerFilter(f.OwnerID),
		Order:   "created_at.desc,id.asc",
		Limit:   f.Limit,
		Offset:  f.Offset,
	}, &rows)
	if err != nil {
		return nil, err
	}
	items := make([]item.Item, 0, len(rows))
	for _, rw := range rows {
		items = append(items, rw.item())
	}
	return items, nil
}

// Count asks for one id and reads the exact total from Content-Range.
func (r *Items) Count(ctx context.Context, ownerID string) (int, error) {
	var ids []struct {
		ID string `json:"id"`
	}
	return r.api.Select(ctx, table, supabase.Query{
		Filters: ownerFilter(ownerID),
		Select:  "id",
		Limit:   1,
		Count:   true,
	}, &ids)
}

func (r *Items) Get(ctx context.Context, id string) (item.Item, error) {
	var rw row
	_, err := r.api.Select(ctx, table, supabase.Query{Filters: idFilter(id), Single: true}, &rw)
	if err != nil {
		return item.Item{}, err
	}
	return rw.item(), nil
}

func (r *Items) Create(ctx context.Context, it item.Item) (item.Item, error) {
	in := row{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		OwnerID:     it.OwnerID,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	var out row
	if err := r.api.Insert(ctx, table, in, &out); err != nil {
		return item.Item{}, err
	}
	return out.item(), nil
}

func (r *Items) Update(ctx context.Context, id string, p item.Patch) (item.Item, error) {
	var out row
	body := patch{Name: p.Name, Description: p.Description, UpdatedAt: p.UpdatedAt}
	if err := r.api.Update(ctx, table, idFilter(id), body, &out); err != nil {
		return item.Item{}, err
	}
	return out.item(), nil
}

func (r *Items) Delete(ctx context.Context, id string) error {
	return r.api.Delete(ctx, table, idFilter(id))
}

func (r *Items) Ping(ctx context.Context) error {
	return r.api.Ping(ctx)
}

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

func ownerFilter(ownerID string) url.Values {
	if ownerID == "" {
		return nil
	}
	return url.Values{"owner_id": {"eq." + ownerID}}
}
