package settings

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/pkg/errs"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the open read; mutations go on the privileged group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.GetParams)
}

// RegisterAdminRoutes mounts the tuning endpoints behind auth.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/cooldown", h.SetCooldown)
	r.PUT("/min-purchase", h.SetMinPurchase)
	r.PUT("/rewards", h.SetRewardParams)
}

func (h *Handler) GetParams(c *gin.Context) {
	params, err := h.service.Get(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, params)
}

type setCooldownRequest struct {
	Seconds int64 `json:"seconds" binding:"required"`
}

func (h *Handler) SetCooldown(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req setCooldownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetCooldown(c.Request.Context(), caller, req.Seconds); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type setMinPurchaseRequest struct {
	AmountWei string `json:"amount_wei" binding:"required"`
}

func (h *Handler) SetMinPurchase(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req setMinPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wei, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_wei is not a decimal integer"})
		return
	}
	if err := h.service.SetMinPurchase(c.Request.Context(), caller, wei); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) SetRewardParams(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req RewardParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetRewardParams(c.Request.Context(), caller, req); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
