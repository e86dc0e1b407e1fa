package purchases

import (
	"math/big"
	"net/http"
	"strconv"

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

// RegisterRoutes mounts the public reads and the buy route. Buying needs the
// caller's identity, so it takes the auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("", auth, h.Create)
	r.GET("/total", h.Total)
	r.GET("/:id", h.Get)
}

// RegisterAccountRoutes mounts the per-account reads.
func (h *Handler) RegisterAccountRoutes(r *gin.RouterGroup) {
	r.GET("/purchases", h.ListByAccount)
	r.GET("/purchases/count", h.CountByAccount)
}

// RegisterAdminRoutes mounts the privileged processing callback.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/purchases/:id/process", h.MarkProcessed)
}

type createRequest struct {
	SpeciesID uint64 `json:"species_id"`
	ProjectID uint64 `json:"project_id"`
	AmountWei string `json:"amount_wei" binding:"required"`
	RefPrice  string `json:"ref_price"`
}

func (h *Handler) Create(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_wei is not a decimal integer"})
		return
	}

	p, err := h.service.Purchase(c.Request.Context(), PurchaseRequest{
		Buyer:     caller,
		SpeciesID: req.SpeciesID,
		ProjectID: req.ProjectID,
		AmountWei: amount,
		RefPrice:  req.RefPrice,
	})
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListByAccount(c *gin.Context) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return
	}
	list, err := h.service.ListByAccount(c.Request.Context(), common.HexToAddress(addr))
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CountByAccount(c *gin.Context) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return
	}
	count, err := h.service.CountByAccount(c.Request.Context(), common.HexToAddress(addr))
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) Total(c *gin.Context) {
	total, err := h.service.Total(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (h *Handler) MarkProcessed(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}
	if err := h.service.MarkProcessed(c.Request.Context(), caller, id); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
