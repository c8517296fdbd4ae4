package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty/catalog/internal/api/apierr"
	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
	"realty/catalog/internal/services"
)

const (
	msgNotFound = "Объект не найден"
	msgDeleted  = "Объект успешно удален"

	maxPayloadBytes = 1 << 20
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

// SearchListings handles GET /api/properties
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	criteria, err := search.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		if !apierr.Validation(c, err) {
			apierr.Internal(c, err)
		}
		return
	}

	page, err := h.listingService.SearchListings(c.Request.Context(), criteria)
	if err != nil {
		apierr.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// FeaturedListings handles GET /api/properties/featured/list
func (h *RestListingHandler) FeaturedListings(c *gin.Context) {
	listings, err := h.listingService.FeaturedListings(c.Request.Context())
	if err != nil {
		apierr.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// GetListingByID handles GET /api/properties/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	listing, err := h.listingService.FindListingByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /api/properties
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	raw, ok := readPayload(c)
	if !ok {
		return
	}
	in, err := models.ParseListingInput(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	listing, err := h.listingService.CreateListing(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// ReplaceListing handles PUT /api/properties/:id
func (h *RestListingHandler) ReplaceListing(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	raw, ok := readPayload(c)
	if !ok {
		return
	}
	in, err := models.ParseListingInput(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	listing, err := h.listingService.ReplaceListing(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// PatchListing handles PATCH /api/properties/:id
func (h *RestListingHandler) PatchListing(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	raw, ok := readPayload(c)
	if !ok {
		return
	}
	listing, err := h.listingService.PatchListing(c.Request.Context(), id, raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /api/properties/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	if err := h.listingService.DeleteListing(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

func (h *RestListingHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrListingNotFound):
		apierr.NotFound(c, msgNotFound)
	case apierr.Validation(c, err):
	default:
		apierr.Internal(c, err)
	}
}

// listingID parses the :id path parameter. A malformed ID cannot name an
// existing listing, so it is reported as not found.
func listingID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		apierr.NotFound(c, msgNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

// readPayload returns the listing JSON from a plain JSON body or from the
// "data" field of a multipart form.
func readPayload(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		data := c.PostForm("data")
		if data == "" {
			apierr.Validation(c, &models.ValidationError{Field: "data", Message: "multipart field is required"})
			return nil, false
		}
		return []byte(data), true
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apierr.Validation(c, &models.ValidationError{Message: "request body too large or unreadable"})
		return nil, false
	}
	return raw, true
}
