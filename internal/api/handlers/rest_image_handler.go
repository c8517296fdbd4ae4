package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"realty/catalog/internal/api/apierr"
	"realty/catalog/internal/models"
	"realty/catalog/internal/services"
	"realty/catalog/internal/storage"
	"realty/catalog/internal/tasks"
)

// IAsynqClient defines the interface for the Asynq client methods used by the handler.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestImageHandler hands out upload URLs and queues uploaded images for processing.
type RestImageHandler struct {
	listingService services.IListingService
	storage        storage.IS3Storage
	taskClient     IAsynqClient
}

func NewRestImageHandler(listingService services.IListingService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestImageHandler {
	return &RestImageHandler{
		listingService: listingService,
		storage:        storageService,
		taskClient:     taskClient,
	}
}

type uploadRequest struct {
	ContentType string `json:"contentType"`
}

type confirmRequest struct {
	Key string `json:"key"`
}

// RequestUpload handles POST /api/properties/:id/images
func (h *RestImageHandler) RequestUpload(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ContentType == "" {
		apierr.Validation(c, &models.ValidationError{Field: "contentType", Message: "is required"})
		return
	}
	if _, ok := storage.ImageContentTypes[req.ContentType]; !ok {
		apierr.Validation(c, &models.ValidationError{Field: "contentType", Message: "must be image/jpeg, image/png or image/gif"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.listingService.FindListingByID(ctx, id); err != nil {
		h.fail(c, err)
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(ctx, id.Hex(), req.ContentType)
	if err != nil {
		apierr.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": url, "key": key, "publicUrl": h.storage.PublicURL(key)})
}

// ConfirmUpload handles POST /api/properties/:id/images/confirm
func (h *RestImageHandler) ConfirmUpload(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		apierr.Validation(c, &models.ValidationError{Field: "key", Message: "is required"})
		return
	}
	// Keys are minted per listing by RequestUpload.
	if !strings.HasPrefix(req.Key, "listings/"+id.Hex()+"/") {
		apierr.Validation(c, &models.ValidationError{Field: "key", Message: "does not belong to this listing"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.listingService.FindListingByID(ctx, id); err != nil {
		h.fail(c, err)
		return
	}

	task, err := tasks.NewImageProcessTask(id, req.Key)
	if err != nil {
		apierr.Internal(c, err)
		return
	}
	info, err := h.taskClient.EnqueueContext(ctx, task)
	if err != nil {
		apierr.Internal(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": info.ID, "key": req.Key})
}

func (h *RestImageHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrListingNotFound) {
		apierr.NotFound(c, msgNotFound)
		return
	}
	apierr.Internal(c, err)
}
