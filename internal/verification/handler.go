package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carbon-exchange/marketplace-backend/internal/auth"
	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/pkg/addresses"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the verification endpoints.  Reads are public;
// mutations go on the authenticated group.
func (h *Handler) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.GET("/verifiers", h.ListVerifiers)
	public.GET("/verifiers/:address", h.GetVerifier)
	public.GET("/verifications", h.ListRequests)
	secured.POST("/verifiers", h.RegisterVerifier)
	secured.POST("/verifiers/:address/status", h.SetVerifierStatus)
	secured.POST("/verifications", h.SubmitRequest)
	secured.POST("/verifications/:id/conduct", h.ConductVerification)
}

func (h *Handler) ListVerifiers(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Verifiers(c.Request.Context()))
}

func (h *Handler) GetVerifier(c *gin.Context) {
	authority, err := addresses.Decode(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verifier address"})
		return
	}

	verifier, err := h.service.GetVerifier(c.Request.Context(), authority)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, verifier)
}

func (h *Handler) RegisterVerifier(c *gin.Context) {
	var req RegisterVerifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.AuthorityAddress = caller
	}

	verifier, err := h.service.RegisterVerifier(c.Request.Context(), req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, verifier)
}

func (h *Handler) SetVerifierStatus(c *gin.Context) {
	authority, err := addresses.Decode(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verifier address"})
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetVerifierActive(c.Request.Context(), authority, body.Active); err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": body.Active})
}

func (h *Handler) ListRequests(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Requests(c.Request.Context()))
}

func (h *Handler) SubmitRequest(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.RequesterAddress = caller
	}

	request, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *Handler) ConductVerification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var req ConductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.VerifierAuthority = caller
	}

	request, err := h.service.Conduct(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, request)
}
