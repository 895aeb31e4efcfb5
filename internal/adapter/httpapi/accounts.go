package httpapi

import (
	"github.com/gin-gonic/gin"

	"api-go-template/internal/account"
	"api-go-template/internal/auth"
)

// Accounts is the account use case surface served under /api/auth.
type Accounts = account.Service

type accountHandlers struct {
	accounts Accounts
}

func (h accountHandlers) register(c *gin.Context, _ *auth.Principal) (Reply, error) {
	var in account.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		return Reply{}, err
	}
	s, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		return Reply{}, err
	}
	return Created(s), nil
}

func (h accountHandlers) login(c *gin.Context, _ *auth.Principal) (Reply, error) {
	var in account.LoginInput
	if err := bindJSON(c, &in); err != nil {
		return Reply{}, err
	}
	s, err := h.accounts.Login(c.Request.Context(), in)
	if err != nil {
		return Reply{}, err
	}
	return OK(s), nil
}

func (h accountHandlers) refresh(c *gin.Context, _ *auth.Principal) (Reply, error) {
	var in account.RefreshInput
	if err := bindJSON(c, &in); err != nil {
		return Reply{}, err
	}
	s, err := h.accounts.Refresh(c.Request.Context(), in)
	if err != nil {
		return Reply{}, err
	}
	return OK(s), nil
}

func me(_ *gin.Context, p *auth.Principal) (Reply, error) {
	return OK(p), nil
}
