package authority

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/canopylabs/treeledger/pkg/errs"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public read and the token-identified handoff
// routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.GET("", h.Current)
	r.POST("/propose", auth, h.Propose)
	r.POST("/accept", auth, h.Accept)
}

func (h *Handler) Current(c *gin.Context) {
	current, err := h.service.Current(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	pending, err := h.service.Pending(c.Request.Context())
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"authority": current.Hex()}
	if pending != (common.Address{}) {
		resp["pending"] = pending.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

type proposeRequest struct {
	NewAuthority string `json:"new_authority" binding:"required"`
}

func (h *Handler) Propose(c *gin.Context) {
	caller, ok := CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.NewAuthority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_authority is not a valid address"})
		return
	}
	if err := h.service.Propose(c.Request.Context(), caller, common.HexToAddress(req.NewAuthority)); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "proposed"})
}

func (h *Handler) Accept(c *gin.Context) {
	caller, ok := CallerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if err := h.service.Accept(c.Request.Context(), caller); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
