package treasury

import (
	"net/http"

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

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/residual", h.getResidual)
}

func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/recover", h.recover)
}

func (h *Handler) getResidual(c *gin.Context) {
	residual, err := h.service.Residual(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"residual_wei": residual.String()})
}

func (h *Handler) recover(c *gin.Context) {
	caller, ok := authority.CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not authenticated"})
		return
	}
	hash, amount, err := h.service.EmergencyRecover(c.Request.Context(), caller)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tx_hash":    hash,
		"amount_wei": amount.String(),
	})
}
