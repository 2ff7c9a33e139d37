package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ai-declaration-api/internal/dto"
	"github.com/noah-isme/ai-declaration-api/internal/models"
	"github.com/noah-isme/ai-declaration-api/internal/service"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
	"github.com/noah-isme/ai-declaration-api/pkg/response"
)

const screenshotField = "screenshot"

type declarationService interface {
	Submit(ctx context.Context, form dto.DeclarationForm, upload *service.ScreenshotUpload) (*dto.CreateDeclarationResult, error)
	List(ctx context.Context) ([]models.Declaration, error)
	Groups(ctx context.Context) ([]models.DeclarationGroup, error)
}

type exportService interface {
	Export(ctx context.Context, rawFormat string) (*service.ExportFile, error)
}

// DeclarationHandler manages declaration HTTP endpoints.
type DeclarationHandler struct {
	service  declarationService
	exporter exportService
}

// NewDeclarationHandler constructs the handler.
func NewDeclarationHandler(service declarationService, exporter exportService) *DeclarationHandler {
	return &DeclarationHandler{service: service, exporter: exporter}
}

// Create godoc
// @Summary Submit an AI usage declaration
// @Description Creates one row per selected AI tool. aiTools is a JSON array of strings.
// @Tags Declarations
// @Accept multipart/form-data
// @Produce json
// @Param userName formData string true "Student name"
// @Param assignmentTitle formData string true "Assignment title"
// @Param aiTools formData string true "JSON array of tool names"
// @Param customTool formData string false "Free text tool name"
// @Param usagePurpose formData string true "How the tools were used"
// @Param aiContent formData string true "Content produced by the tools"
// @Param screenshot formData file false "Screenshot (jpeg, png, gif, webp; max 5MB)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /declarations [post]
func (h *DeclarationHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "declaration service not configured"))
		return
	}
	var form dto.DeclarationForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Invalid declaration payload"))
		return
	}

	upload, closeUpload, err := screenshotFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	result, err := h.service.Submit(c.Request.Context(), form, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fmt.Sprintf("Successfully created %d declaration(s)", result.Count), result)
}

// List godoc
// @Summary List declarations
// @Description Every stored row, newest first.
// @Tags Declarations
// @Produce json
// @Success 200 {object} response.ListEnvelope
// @Failure 500 {object} response.Envelope
// @Router /declarations [get]
func (h *DeclarationHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "declaration service not configured"))
		return
	}
	rows, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, rows, len(rows))
}

// Groups godoc
// @Summary List declarations grouped by submission
// @Tags Declarations
// @Produce json
// @Success 200 {object} response.ListEnvelope
// @Failure 500 {object} response.Envelope
// @Router /declarations/groups [get]
func (h *DeclarationHandler) Groups(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "declaration service not configured"))
		return
	}
	groups, err := h.service.Groups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, groups, len(groups))
}

// Export godoc
// @Summary Export every declaration
// @Tags Declarations
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /declarations/export [get]
func (h *DeclarationHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// screenshotFromRequest returns nil when no screenshot part was sent.
func screenshotFromRequest(c *gin.Context) (*service.ScreenshotUpload, func(), error) {
	noop := func() {}
	fileHeader, err := c.FormFile(screenshotField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "Invalid screenshot upload")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, noop, appErrors.Internal(err, "Failed to read screenshot")
	}
	closer := func() { src.Close() } //nolint:errcheck

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		closer()
		if readErr != nil {
			return nil, noop, appErrors.Internal(readErr, "Failed to buffer screenshot")
		}
		reader = bytes.NewReader(buf)
		closer = noop
	}
	return &service.ScreenshotUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	}, closer, nil
}
