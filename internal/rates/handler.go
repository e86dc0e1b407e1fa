package rates

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopylabs/treeledger/pkg/errs"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.getRate)
	router.GET("/convert", h.convert)
}

func (h *Handler) getRate(c *gin.Context) {
	rate, err := h.service.LatestRate()
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rate":       rate.String(),
		"decimals":   Decimals,
		"updated_at": h.service.LastUpdated(),
	})
}

func (h *Handler) convert(c *gin.Context) {
	weiStr := c.Query("wei")
	refStr := c.Query("ref")

	switch {
	case weiStr != "":
		wei, ok := new(big.Int).SetString(weiStr, 10)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wei amount"})
			return
		}
		ref, err := h.service.ToReference(wei)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"wei": wei.String(), "ref": ref.String(), "decimals": Decimals})
	case refStr != "":
		ref, ok := new(big.Int).SetString(refStr, 10)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference amount"})
			return
		}
		wei, err := h.service.ToPayment(ref)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"wei": wei.String(), "ref": ref.String(), "decimals": Decimals})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide wei or ref query parameter"})
	}
}
