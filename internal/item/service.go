package item

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
	"api-go-template/internal/platform/validate"
)

// Service implements the item use cases on top of a Repository.
type Service struct {
	repo     Repository
	validate *validate.Validator
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(repo Repository, v *validate.Validator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, validate: v, log: log, now: time.Now}
}

// List returns one page and the total. Count and fetch run concurrently. A
// page whose offset does not fit in an int is answered from the count alone.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	q = q.normalized()
	if q.OffsetOverflows() {
		total, err := s.repo.Count(ctx, q.OwnerID)
		if err != nil {
			return ListResult{}, apperr.Wrap(err, "count items")
		}
		return ListResult{Items: []Item{}, Pagination: NewPagination(q.Page, q.Limit, total)}, nil
	}

	var (
		items []Item
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.List(gctx, ListFilter{OwnerID: q.OwnerID, Limit: q.Limit, Offset: q.Offset()})
		return apperr.Wrap(err, "list items")
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, q.OwnerID)
		return apperr.Wrap(err, "count items")
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Item{}
	}
	return ListResult{Items: items, Pagination: NewPagination(q.Page, q.Limit, total)}, nil
}

// Get returns the item with id.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	if !validID(id) {
		return Item{}, apperr.NotFound("item")
	}
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, notFound(err)
	}
	return it, nil
}

// Create stores a new item owned by p.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in CreateInput) (Item, error) {
	if err := auth.Authorize(p); err != nil {
		return Item{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Item{}, err
	}
	now := s.now().UTC()
	it, err := s.repo.Create(ctx, Item{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     p.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Item{}, apperr.Wrap(err, "create item")
	}
	s.log.Info("item created", slog.String("item_id", it.ID), slog.String("owner_id", it.OwnerID))
	return it, nil
}

// Update applies in to the item with id. Only the owner or an admin may
// update an item.
func (s *Service) Update(ctx context.Context, p *auth.Principal, id string, in UpdateInput) (Item, error) {
	if err := auth.Authorize(p); err != nil {
		return Item{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return Item{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if current.OwnerID != p.ID && !p.HasRole(auth.RoleAdmin) {
		return Item{}, apperr.Forbidden("only the owner can modify this item")
	}

	it, err := s.repo.Update(ctx, id, Patch{
		Name:        in.Name,
		Description: in.Description,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return Item{}, notFound(err)
	}
	return it, nil
}

// Delete removes the item with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperr.NotFound("item")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.log.Info("item deleted", slog.String("item_id", id))
	return nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// notFound names the resource when the store reports a missing row.
func notFound(err error) error {
	var se *apperr.StoreError
	if errors.As(err, &se) && se.Code == apperr.NoRowsCode {
		return apperr.NotFound("item")
	}
	return err
}
