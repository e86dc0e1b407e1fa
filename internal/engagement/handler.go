package engagement

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/pkg/errs"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/water", h.Water)
}

// RegisterAccountRoutes mounts the per-account reads.
func (h *Handler) RegisterAccountRoutes(r *gin.RouterGroup) {
	r.GET("/engagement", h.State)
	r.GET("/engagement/can-water", h.CanWater)
	r.GET("/engagement/preview", h.Preview)
	r.GET("/points", h.Balance)
}

// RegisterAdminRoutes mounts the privileged point grant.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/points/grant", h.GrantPoints)
}

func (h *Handler) Water(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	result, err := h.service.Water(c.Request.Context(), caller)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) State(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	state, err := h.service.State(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) CanWater(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	eligible, remaining, err := h.service.CanWater(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligible": eligible, "seconds_remaining": remaining})
}

func (h *Handler) Preview(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	projection, err := h.service.Preview(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, projection)
}

func (h *Handler) Balance(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	balance, err := h.service.Balance(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type grantRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

func (h *Handler) GrantPoints(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Account) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is not a valid address"})
		return
	}
	if err := h.service.GrantPoints(c.Request.Context(), caller, common.HexToAddress(req.Account), req.Amount); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func accountParam(c *gin.Context) (common.Address, bool) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}
