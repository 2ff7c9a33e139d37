package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
	"github.com/noah-isme/ai-declaration-api/pkg/response"
	"github.com/noah-isme/ai-declaration-api/pkg/storage"
)

type objectOpener interface {
	Open(ctx context.Context, key string) (*storage.Object, error)
}

// UploadHandler streams stored screenshots back to browsers.
type UploadHandler struct {
	store objectOpener
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(store objectOpener) *UploadHandler {
	return &UploadHandler{store: store}
}

// Serve godoc
// @Summary Fetch an uploaded screenshot
// @Tags Uploads
// @Produce image/png
// @Produce image/jpeg
// @Param filename path string true "Stored file name"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /uploads/{filename} [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload storage not configured"))
		return
	}
	obj, err := h.store.Open(c.Request.Context(), c.Param("filename"))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "File not found"))
			return
		}
		response.Error(c, appErrors.Internal(err, "Failed to read file"))
		return
	}
	defer obj.Reader.Close() //nolint:errcheck

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Reader, nil)
}
