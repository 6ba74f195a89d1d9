package retirement

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carbon-exchange/marketplace-backend/internal/auth"
	"carbon-exchange/marketplace-backend/internal/market"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the retirement endpoints.  Reads are public; the
// mutation goes on the authenticated group.
func (h *Handler) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.GET("/retirements", h.ListRetirements)
	secured.POST("/retirements", h.RetireCredits)
}

func (h *Handler) ListRetirements(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Retirements(c.Request.Context()))
}

func (h *Handler) RetireCredits(c *gin.Context) {
	var req RetireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.RetiringAddress = caller
	}

	record, err := h.service.Retire(c.Request.Context(), req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}
