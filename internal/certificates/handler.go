package certificates

import (
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

// RegisterRoutes mounts the public reads and the owner transfer. Transfer
// needs the caller's identity, so it takes the auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.GET("/total", h.Total)
	r.GET("/:id", h.Get)
	r.GET("/by-purchase/:purchaseId", h.GetByPurchase)
	r.POST("/:id/transfer", auth, h.Transfer)
}

// RegisterAccountRoutes mounts the per-account reads.
func (h *Handler) RegisterAccountRoutes(r *gin.RouterGroup) {
	r.GET("/certificates", h.ListByOwner)
}

// RegisterAdminRoutes mounts the privileged mint.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/certificates/mint", h.Mint)
}

type mintRequest struct {
	PurchaseID  uint64 `json:"purchase_id"`
	MetadataURI string `json:"metadata_uri" binding:"required"`
	PlantingRef string `json:"planting_ref"`
}

func (h *Handler) Mint(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.service.Mint(c.Request.Context(), caller, req.PurchaseID, req.MetadataURI, req.PlantingRef)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cert)
}

type transferRequest struct {
	To string `json:"to" binding:"required"`
}

func (h *Handler) Transfer(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is not a valid address"})
		return
	}
	if err := h.service.Transfer(c.Request.Context(), caller, id, common.HexToAddress(req.To)); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}
	cert, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *Handler) GetByPurchase(c *gin.Context) {
	purchaseID, err := strconv.ParseUint(c.Param("purchaseId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}
	cert, err := h.service.GetByPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *Handler) ListByOwner(c *gin.Context) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return
	}
	list, err := h.service.ListByOwner(c.Request.Context(), common.HexToAddress(addr))
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Total(c *gin.Context) {
	total, err := h.service.Total(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}
