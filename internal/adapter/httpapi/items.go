package httpapi

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/auth"
	"api-go-template/internal/item"
)

// Items is the item use case surface served under /api/items.
type Items interface {
	List(ctx context.Context, q item.ListQuery) (item.ListResult, error)
	Get(ctx context.Context, id string) (item.Item, error)
	Create(ctx context.Context, p *auth.Principal, in item.CreateInput) (item.Item, error)
	Update(ctx context.Context, p *auth.Principal, id string, in item.UpdateInput) (item.Item, error)
	Delete(ctx context.Context, id string) error
}

var _ Items = (*item.Service)(nil)

type itemHandlers struct {
	items Items
}

// list serves one page. With ?mine=true an authenticated caller sees only
// their own items.
func (h itemHandlers) list(c *gin.Context, p *auth.Principal) (Reply, error) {
	q := listQuery(c)
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine && p != nil {
		q.OwnerID = p.ID
	}
	res, err := h.items.List(c.Request.Context(), q)
	if err != nil {
		return Reply{}, err
	}
	return OK(res), nil
}

func (h itemHandlers) get(c *gin.Context, _ *auth.Principal) (Reply, error) {
	it, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return Reply{}, err
	}
	return OK(it), nil
}

func (h itemHandlers) create(c *gin.Context, p *auth.Principal) (Reply, error) {
	var in item.CreateInput
	if err := bindJSON(c, &in); err != nil {
		return Reply{}, err
	}
	it, err := h.items.Create(c.Request.Context(), p, in)
	if err != nil {
		return Reply{}, err
	}
	return Created(it), nil
}

func (h itemHandlers) update(c *gin.Context, p *auth.Principal) (Reply, error) {
	var in item.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		return Reply{}, err
	}
	it, err := h.items.Update(c.Request.Context(), p, c.Param("id"), in)
	if err != nil {
		return Reply{}, err
	}
	return OK(it), nil
}

func (h itemHandlers) delete(c *gin.Context, _ *auth.Principal) (Reply, error) {
	id := c.Param("id")
	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		return Reply{}, err
	}
	return OK(gin.H{"id": id}), nil
}
