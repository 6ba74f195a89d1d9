package marketplace

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carbon-exchange/marketplace-backend/internal/auth"
	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/internal/query"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the listing endpoints.  Reads are public; mutations
// go on the authenticated group.
func (h *Handler) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.GET("/listings", h.ListListings)
	public.GET("/listings/:id", h.GetListing)
	public.GET("/purchases", h.ListPurchases)
	secured.POST("/listings", h.CreateListing)
	secured.POST("/listings/:id/purchase", h.PurchaseCredits)
	secured.POST("/listings/:id/cancel", h.CancelListing)
}

// ListListings serves the filtered, sorted active-listing view.  Inactive
// listings are retained for history and returned with include_inactive=true.
func (h *Handler) ListListings(c *gin.Context) {
	ctx := c.Request.Context()

	var listings []market.Listing
	if c.Query("include_inactive") == "true" {
		listings = h.service.Listings(ctx)
	} else {
		listings = h.service.ActiveListings(ctx, time.Now().UTC())
	}

	filter := query.Filter{Search: c.Query("search")}
	if v := c.Query("type"); v != "" {
		t := market.ProjectType(v)
		filter.ProjectType = &t
	}
	if v := c.Query("standard"); v != "" {
		s := market.VerificationStandard(v)
		filter.VerificationStandard = &s
	}
	if v := c.Query("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		}
	}
	if v := c.Query("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		}
	}
	listings = query.Apply(listings, filter)

	if v := c.Query("sort"); v != "" {
		order := query.Ascending
		if c.Query("order") == string(query.Descending) {
			order = query.Descending
		}
		listings = query.Sort(listings, query.SortKey(v), order)
	}

	c.JSON(http.StatusOK, listings)
}

func (h *Handler) GetListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if caller, ok := auth.CallerAddress(c); ok {
		req.SellerAddress = caller
	}

	listing, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) PurchaseCredits(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buyer, _ := auth.CallerAddress(c)
	purchase, err := h.service.Purchase(c.Request.Context(), id, buyer, body.Amount)
	if err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

func (h *Handler) CancelListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	caller, _ := auth.CallerAddress(c)
	if err := h.service.Cancel(c.Request.Context(), id, caller); err != nil {
		c.JSON(market.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) ListPurchases(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Purchases(c.Request.Context()))
}
