package registry

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

// RegisterRoutes mounts the registry endpoints.  Reads are public; mutations
// go on the authenticated group.
func (h *Handler) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.GET("/projects", h.ListProjects)
	public.GET("/projects/:id", h.GetProject)
	public.GET("/projects/:id/batches", h.ListBatches)
	secured.POST("/projects", h.RegisterProject)
	secured.POST("/projects/:id/verify", h.VerifyProject)
	secured.POST("/projects/:id/suspend", h.SuspendProject)
	secured.POST("/projects/:id/issue", h.IssueCredits)
}

func (h *Handler) ListProjects(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List(c.Request.Context()))
}

func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) RegisterProject(c *gin.Context) {
	var req RegisterProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.DeveloperAddress = caller
	}

	project, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) VerifyProject(c *gin.Context) {
	verifier, _ := auth.CallerAddress(c)
	if err := h.service.Verify(c.Request.Context(), c.Param("id"), verifier); err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (h *Handler) SuspendProject(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.service.Suspend(c.Request.Context(), c.Param("id"), body.Reason); err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suspended"})
}

func (h *Handler) ListBatches(c *gin.Context) {
	batches, err := h.service.Batches(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, batches)
}

func (h *Handler) IssueCredits(c *gin.Context) {
	var body struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.IssueCredits(c.Request.Context(), c.Param("id"), body.Quantity); err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "issued"})
}
