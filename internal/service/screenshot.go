package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

// DefaultMaxScreenshotSize is the upload ceiling when none is configured.
const DefaultMaxScreenshotSize int64 = 5 * 1024 * 1024

var allowedScreenshotExtensions = map[string]struct{}{
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

var allowedScreenshotMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// ScreenshotUpload carries an uploaded image and the client supplied metadata.
type ScreenshotUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// checkScreenshot validates size, extension, declared type and sniffed content.
// It returns the canonical MIME type of the image.
func checkScreenshot(upload *ScreenshotUpload, maxSize int64) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrInvalidFile, "Uploaded file is empty")
	}
	if upload.Size > maxSize {
		return "", appErrors.Clone(appErrors.ErrInvalidFile, fmt.Sprintf("File too large. Maximum size is %s", humanSize(maxSize)))
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if _, ok := allowedScreenshotExtensions[ext]; !ok {
		return "", onlyImagesError()
	}
	if declared := normaliseMIME(upload.MimeType); declared != "" && declared != "application/octet-stream" {
		if _, ok := allowedScreenshotMIMEs[declared]; !ok {
			return "", onlyImagesError()
		}
	}

	detected, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to inspect uploaded file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to reset upload stream")
	}
	sniffed := normaliseMIME(detected.String())
	if _, ok := allowedScreenshotMIMEs[sniffed]; !ok {
		return "", onlyImagesError()
	}
	return sniffed, nil
}

func onlyImagesError() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrInvalidFile, "Only image files are allowed (jpeg, jpg, png, gif, webp)")
}

func normaliseMIME(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}

// screenshotKey builds a unique storage key keeping the original extension.
func screenshotKey(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("screenshot-%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

func humanSize(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
