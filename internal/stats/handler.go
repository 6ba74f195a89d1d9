package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	aggregator *Aggregator
	hub        *Hub
}

func NewHandler(aggregator *Aggregator, hub *Hub) *Handler {
	return &Handler{aggregator: aggregator, hub: hub}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.GetSnapshot)
	r.GET("/ws/stats", h.StreamSnapshots)
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.aggregator.Snapshot(c.Request.Context()))
}

func (h *Handler) StreamSnapshots(c *gin.Context) {
	h.hub.HandleConnection(c.Writer, c.Request)
}
