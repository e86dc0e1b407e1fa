package forest

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
	r.POST("/claim", h.ClaimFreeTree)
	r.POST("/redeem", h.Redeem)
}

// RegisterAccountRoutes mounts the per-account reads.
func (h *Handler) RegisterAccountRoutes(r *gin.RouterGroup) {
	r.GET("/forest", h.Summary)
	r.GET("/trees/total", h.TotalTrees)
	r.GET("/trees/virtual", h.VirtualTrees)
}

func (h *Handler) ClaimFreeTree(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	state, err := h.service.ClaimFreeTree(c.Request.Context(), caller)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

type redeemRequest struct {
	Quantity uint64 `json:"quantity" binding:"required"`
}

func (h *Handler) Redeem(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := h.service.Redeem(c.Request.Context(), caller, req.Quantity)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) Summary(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) TotalTrees(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	total, err := h.service.TotalTrees(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (h *Handler) VirtualTrees(c *gin.Context) {
	addr, ok := accountParam(c)
	if !ok {
		return
	}
	virtual, err := h.service.VirtualTrees(c.Request.Context(), addr)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"virtual": virtual})
}

func accountParam(c *gin.Context) (common.Address, bool) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}
